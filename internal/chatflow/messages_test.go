package chatflow

import (
	"strings"
	"testing"
	"time"

	"mixcue/internal/domain"
)

func TestIsDuplicate(t *testing.T) {
	prev := domain.ChatMessage{Text: "hello", IsBot: false, Timestamp: 10_000}
	if !IsDuplicate(prev, "hello", false, 10_500) {
		t.Error("same text inside window should be a duplicate")
	}
	if !IsDuplicate(prev, "hello", false, 9_200) {
		t.Error("window applies in both directions")
	}
	if IsDuplicate(prev, "hello", false, 11_000) {
		t.Error("1000ms boundary is exclusive")
	}
	if IsDuplicate(prev, "hello", true, 10_500) {
		t.Error("author kind must match")
	}
	if IsDuplicate(prev, "hello!", false, 10_500) {
		t.Error("text must match exactly")
	}
}

func TestDedupTranscript(t *testing.T) {
	msgs := []domain.ChatMessage{
		{ID: "a", Text: "hi"},
		{ID: "a", Text: "hi"},
		{ID: "a", Text: "different"},
		{ID: "b", Text: "hi"},
	}
	got := DedupTranscript(msgs)
	if len(got) != 3 {
		t.Fatalf("deduped to %d, want 3", len(got))
	}
}

func TestAugmentCalendarLink(t *testing.T) {
	got := AugmentCalendarLink(CompletionPhrase, "https://cal.example/dj")
	if !strings.HasPrefix(got, CompletionPhrase) || !strings.Contains(got, "https://cal.example/dj") {
		t.Fatalf("augmented = %q", got)
	}
	// Guarded by the phrase, so augmenting the stored text again cannot
	// stack fragments.
	if again := AugmentCalendarLink(got, "https://cal.example/dj"); again != got {
		t.Fatalf("double augmentation: %q", again)
	}
	if AugmentCalendarLink("any other message", "https://cal.example/dj") != "any other message" {
		t.Error("non-completion messages must pass through")
	}
	if AugmentCalendarLink(CompletionPhrase, "") != CompletionPhrase {
		t.Error("no link, no fragment")
	}
}

func TestNewMessageIDEmbedsTimestamp(t *testing.T) {
	now := time.Date(2026, 6, 20, 10, 0, 0, 0, time.UTC)
	id := NewMessageID(now)
	if !strings.HasPrefix(id, "1781949600000-") {
		t.Fatalf("id = %q", id)
	}
}

func TestBuildExtractionEmptyAnswers(t *testing.T) {
	ex := BuildExtraction(nil)
	if len(ex.ExtractedFields) != 0 {
		t.Fatalf("no answers should yield no fields: %+v", ex.ExtractedFields)
	}
}
