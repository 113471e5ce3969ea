package mapper

import (
	"fmt"
	"sort"
	"strings"

	"mixcue/internal/domain"
)

// Milestone fields in day-of order. The "next" milestone with a known time
// supplies the end_time for items matched by the earlier keyword.
var timelineMilestones = []struct {
	field   string
	keyword string
}{
	{"ceremonyStartTime", "ceremony"},
	{"cocktailHourStartTime", "cocktail"},
	{"introductionsTime", "introduction"},
	{"dinnerStartTime", "dinner"},
	{"receptionStartTime", "reception"},
}

// FillTimelineForm builds timeline items from the parser's parallel
// timeline_times / timeline_activities arrays, then runs a milestone pass
// that retimes existing items by keyword. Unparseable times are dropped
// entry by entry, never failing the whole mapping.
func (m Mapper) FillTimelineForm(current domain.TimelineForm, ex domain.Extraction, appendMode bool) domain.TimelineForm {
	out := current
	out.TimelineItems = append(make([]domain.TimelineItem, 0, len(current.TimelineItems)), current.TimelineItems...)

	times := asStringSlice(ex.ExtractedFields["timeline_times"])
	activities := asStringSlice(ex.ExtractedFields["timeline_activities"])

	if len(times) > 0 {
		if !appendMode {
			out.TimelineItems = []domain.TimelineItem{}
		}

		type entry struct {
			start    string
			activity string
		}
		entries := make([]entry, 0, len(times))
		for i, raw := range times {
			start := NormalizeTime(raw)
			if start == "" {
				m.Log.Debug().Str("value", raw).Msg("dropping timeline entry with unparseable time")
				continue
			}
			activity := ""
			if i < len(activities) {
				activity = strings.TrimSpace(activities[i])
			}
			entries = append(entries, entry{start: start, activity: activity})
		}
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].start < entries[j].start })

		existing := make(map[string]bool, len(out.TimelineItems))
		for _, item := range out.TimelineItems {
			existing[item.ID] = true
		}
		counter := 0
		base := len(out.TimelineItems)

		for i, e := range entries {
			endTime := ""
			if i+1 < len(entries) {
				endTime = entries[i+1].start
			}
			out.TimelineItems = append(out.TimelineItems, domain.TimelineItem{
				ID:        nextItemID(existing, &counter),
				Name:      itemName(e.activity, e.start),
				StartTime: e.start,
				EndTime:   endTime,
				Order:     base + i,
			})
		}
	}

	// Milestone pass: runs regardless of appendMode and of whether the
	// times array was present.
	for i, ms := range timelineMilestones {
		raw, present := ex.ExtractedFields[ms.field]
		if !present {
			continue
		}
		start := NormalizeTime(asString(raw))
		if start == "" {
			continue
		}
		endTime := ""
		for j := i + 1; j < len(timelineMilestones); j++ {
			next := NormalizeTime(asString(ex.ExtractedFields[timelineMilestones[j].field]))
			if next != "" {
				endTime = next
				break
			}
		}
		for k := range out.TimelineItems {
			if !MilestoneMatches(out.TimelineItems[k], ms.keyword) {
				continue
			}
			out.TimelineItems[k].StartTime = start
			if endTime != "" {
				out.TimelineItems[k].EndTime = endTime
			}
		}
	}

	return out
}

// MilestoneMatches reports whether an item belongs to a milestone keyword.
// The match is a case-insensitive substring test over name and notes; it is
// the single place the matching rule lives.
func MilestoneMatches(item domain.TimelineItem, keyword string) bool {
	return strings.Contains(strings.ToLower(item.Name), keyword) ||
		strings.Contains(strings.ToLower(item.Notes), keyword)
}

// itemName derives a display name from the parallel activity text, or a
// coarse time-of-day label when none was extracted.
func itemName(activity, start string) string {
	if activity != "" {
		words := strings.Fields(activity)
		if len(words) > 4 {
			words = words[:4]
		}
		name := strings.Join(words, " ")
		if len(name) > 20 {
			name = capLen(name, 20) + "..."
		}
		return name
	}
	switch {
	case start < "12:00":
		return "Morning Activity"
	case start < "17:00":
		return "Afternoon Activity"
	default:
		return "Evening Activity"
	}
}

// nextItemID issues counter-based IDs, skipping any already present.
func nextItemID(existing map[string]bool, counter *int) string {
	for {
		*counter++
		id := fmt.Sprintf("item-%d", *counter)
		if !existing[id] {
			existing[id] = true
			return id
		}
	}
}
