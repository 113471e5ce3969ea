package chatflow

import (
	"fmt"
	"math/rand"
	"time"

	"mixcue/internal/domain"
)

// DedupWindowMillis is how close two identical (isBot, text) messages may be
// before the second is treated as a double submit.
const DedupWindowMillis = 1000

// NewMessageID derives an opaque message ID from the clock plus randomness
// to keep collisions unlikely across tabs.
func NewMessageID(now time.Time) string {
	return fmt.Sprintf("%d-%06d", now.UnixMilli(), rand.Intn(1000000))
}

// IsDuplicate reports whether a candidate message is a double submit of an
// already-stored one: same author kind, same text, timestamps within the
// dedup window.
func IsDuplicate(prev domain.ChatMessage, text string, isBot bool, tsMillis int64) bool {
	if prev.IsBot != isBot || prev.Text != text {
		return false
	}
	delta := tsMillis - prev.Timestamp
	if delta < 0 {
		delta = -delta
	}
	return delta < DedupWindowMillis
}

// DedupTranscript filters a persisted transcript by (id, text) pair so a
// reload reconstructs an identical message list even if a double write
// slipped through.
func DedupTranscript(msgs []domain.ChatMessage) []domain.ChatMessage {
	seen := make(map[string]bool, len(msgs))
	out := msgs[:0:0]
	for _, m := range msgs {
		key := m.ID + "\x00" + m.Text
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

// AugmentCalendarLink appends the DJ's scheduling link to the completion
// message. The guard is the phrase itself, not the presence of a prior
// link, so replaying history augments identically instead of stacking
// fragments.
func AugmentCalendarLink(text, calendarLink string) string {
	if calendarLink == "" || text != CompletionPhrase {
		return text
	}
	return text + fmt.Sprintf(` <a href="%s" target="_blank">Schedule a call with your DJ</a>`, calendarLink)
}

// AugmentTranscript applies the calendar-link augmentation across a
// transcript the way it is applied to a fresh completion message.
func AugmentTranscript(msgs []domain.ChatMessage, calendarLink string) []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(msgs))
	for i, m := range msgs {
		m.Text = AugmentCalendarLink(m.Text, calendarLink)
		out[i] = m
	}
	return out
}
