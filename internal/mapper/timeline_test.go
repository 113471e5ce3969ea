package mapper

import (
	"strings"
	"testing"
	"unicode/utf8"

	"mixcue/internal/domain"
)

func timelineFields(times []any, activities []any) map[string]any {
	f := map[string]any{"timeline_times": times}
	if activities != nil {
		f["timeline_activities"] = activities
	}
	return f
}

func TestFillTimelineFormOrderingAndChaining(t *testing.T) {
	m := testMapper()
	got := m.FillTimelineForm(domain.EmptyTimelineForm(), domain.Extraction{ExtractedFields: timelineFields(
		[]any{"6pm", "2pm", "4:30pm"}, nil,
	)}, false)

	items := got.TimelineItems
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	wantStarts := []string{"14:00", "16:30", "18:00"}
	for i, w := range wantStarts {
		if items[i].StartTime != w {
			t.Errorf("items[%d].StartTime = %q, want %q", i, items[i].StartTime, w)
		}
		if items[i].Order != i {
			t.Errorf("items[%d].Order = %d, want %d", i, items[i].Order, i)
		}
	}
	if items[0].EndTime != "16:30" || items[1].EndTime != "18:00" {
		t.Errorf("end_time chaining broken: %q %q", items[0].EndTime, items[1].EndTime)
	}
	if items[2].EndTime != "" {
		t.Errorf("last item should be open-ended, got %q", items[2].EndTime)
	}
}

func TestFillTimelineFormNames(t *testing.T) {
	m := testMapper()
	got := m.FillTimelineForm(domain.EmptyTimelineForm(), domain.Extraction{ExtractedFields: timelineFields(
		[]any{"9am", "1pm", "8pm", "10am"},
		[]any{"", "", "", "Hair and makeup for the whole wedding party"},
	)}, false)

	items := got.TimelineItems
	if len(items) != 4 {
		t.Fatalf("items = %d, want 4", len(items))
	}
	// Sorted: 09:00, 10:00, 13:00, 20:00. The 10:00 slot carried activity text.
	if items[0].Name != "Morning Activity" {
		t.Errorf("items[0].Name = %q", items[0].Name)
	}
	if items[1].Name != "Hair and makeup for" {
		t.Errorf("activity name not derived: %q", items[1].Name)
	}
	if items[2].Name != "Afternoon Activity" {
		t.Errorf("items[2].Name = %q", items[2].Name)
	}
	if items[3].Name != "Evening Activity" {
		t.Errorf("items[3].Name = %q", items[3].Name)
	}
}

func TestItemName(t *testing.T) {
	if got := itemName("Cake cutting", "20:00"); got != "Cake cutting" {
		t.Errorf("short activity changed: %q", got)
	}
	// 4-word prefix is 26 chars, so it gets cut at 20 and ellipsized.
	if got := itemName("Photographs beneath the willows", "10:00"); got != "Photographs beneath ..." {
		t.Errorf("ellipsis: %q", got)
	}
	// 8 three-byte runes = 24 bytes; the 20-byte cut backs up to a rune start.
	if got := itemName(strings.Repeat("桜", 8), "10:00"); got != strings.Repeat("桜", 6)+"..." {
		t.Errorf("multibyte ellipsis: %q", got)
	}
	if !utf8.ValidString(itemName(strings.Repeat("桜", 8), "10:00")) {
		t.Error("multibyte name is not valid UTF-8")
	}
	if got := itemName("", "11:59"); got != "Morning Activity" {
		t.Errorf("morning label: %q", got)
	}
	if got := itemName("", "12:00"); got != "Afternoon Activity" {
		t.Errorf("afternoon label: %q", got)
	}
	if got := itemName("", "17:00"); got != "Evening Activity" {
		t.Errorf("evening label: %q", got)
	}
}

func TestFillTimelineFormDropsUnparseableTimes(t *testing.T) {
	m := testMapper()
	got := m.FillTimelineForm(domain.EmptyTimelineForm(), domain.Extraction{ExtractedFields: timelineFields(
		[]any{"2pm", "whenever", "4pm"}, nil,
	)}, false)
	if len(got.TimelineItems) != 2 {
		t.Fatalf("malformed entry should be dropped, not fatal: %d items", len(got.TimelineItems))
	}
}

func TestFillTimelineFormReplaceVsAppend(t *testing.T) {
	m := testMapper()
	first := domain.Extraction{ExtractedFields: timelineFields([]any{"2pm"}, nil)}
	second := domain.Extraction{ExtractedFields: timelineFields([]any{"6pm"}, nil)}

	replaced := m.FillTimelineForm(m.FillTimelineForm(domain.EmptyTimelineForm(), first, false), second, false)
	if len(replaced.TimelineItems) != 1 || replaced.TimelineItems[0].StartTime != "18:00" {
		t.Fatalf("replace mode left residue: %+v", replaced.TimelineItems)
	}

	appended := m.FillTimelineForm(m.FillTimelineForm(domain.EmptyTimelineForm(), first, true), second, true)
	if len(appended.TimelineItems) != 2 {
		t.Fatalf("append mode did not accumulate: %+v", appended.TimelineItems)
	}
	if appended.TimelineItems[1].Order != 1 {
		t.Errorf("order should continue the sequence: %d", appended.TimelineItems[1].Order)
	}
	if appended.TimelineItems[0].ID == appended.TimelineItems[1].ID {
		t.Error("generated IDs collided")
	}
}

func TestFillTimelineFormIDCollisionAvoidance(t *testing.T) {
	m := testMapper()
	current := domain.TimelineForm{TimelineItems: []domain.TimelineItem{
		{ID: "item-1", Name: "Setup", StartTime: "10:00", Order: 0},
	}}
	got := m.FillTimelineForm(current, domain.Extraction{ExtractedFields: timelineFields([]any{"2pm"}, nil)}, true)
	if len(got.TimelineItems) != 2 {
		t.Fatalf("items = %d", len(got.TimelineItems))
	}
	if got.TimelineItems[1].ID == "item-1" {
		t.Error("new item reused an existing ID")
	}
}

func TestFillTimelineFormMilestonePass(t *testing.T) {
	m := testMapper()
	current := domain.TimelineForm{TimelineItems: []domain.TimelineItem{
		{ID: "item-1", Name: "Ceremony at the arch", StartTime: "15:00", EndTime: "16:00", Order: 0},
		{ID: "item-2", Name: "Break", Notes: "cocktail hour on the patio", StartTime: "16:00", Order: 1},
		{ID: "item-3", Name: "Band setup", StartTime: "17:00", Order: 2},
	}}
	got := m.FillTimelineForm(current, domain.Extraction{ExtractedFields: map[string]any{
		"ceremonyStartTime":     "4pm",
		"cocktailHourStartTime": "5pm",
	}}, true)

	items := got.TimelineItems
	if items[0].StartTime != "16:00" {
		t.Errorf("ceremony item not retimed: %q", items[0].StartTime)
	}
	if items[0].EndTime != "17:00" {
		t.Errorf("ceremony end should chain to cocktail start: %q", items[0].EndTime)
	}
	if items[1].StartTime != "17:00" {
		t.Errorf("notes keyword match failed: %q", items[1].StartTime)
	}
	if items[2].StartTime != "17:00" || items[2].Name != "Band setup" {
		t.Errorf("unrelated item touched: %+v", items[2])
	}
}

func TestMilestoneMatches(t *testing.T) {
	item := domain.TimelineItem{Name: "Grand CEREMONY entrance"}
	if !MilestoneMatches(item, "ceremony") {
		t.Error("case-insensitive name match failed")
	}
	item = domain.TimelineItem{Name: "Break", Notes: "move to Cocktail area"}
	if !MilestoneMatches(item, "cocktail") {
		t.Error("notes match failed")
	}
	if MilestoneMatches(domain.TimelineItem{Name: "Dinner"}, "reception") {
		t.Error("unexpected match")
	}
}

func TestFillTimelineFormTotalOnEmptyInput(t *testing.T) {
	m := testMapper()
	got := m.FillTimelineForm(domain.EmptyTimelineForm(), domain.Extraction{}, false)
	if got.TimelineItems == nil || len(got.TimelineItems) != 0 {
		t.Fatalf("empty extraction should return empty form: %+v", got)
	}
}
