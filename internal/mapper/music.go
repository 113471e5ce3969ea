package mapper

import (
	"strings"
	"unicode/utf8"

	"mixcue/internal/domain"
)

const (
	splitThreshold   = 100
	fieldCap         = 250
	discardThreshold = 255
	truncateWords    = 8
)

// FillMusicIdeasForm routes extracted songs into the six category lists.
// Without appendMode every list is cleared first (a document replaces);
// with it new songs are pushed after the existing ones (notes accumulate).
// Category caps are deliberately not applied here; the interactive editor
// owns those, so an import may transiently exceed a cap.
func (m Mapper) FillMusicIdeasForm(current domain.MusicIdeasForm, ex domain.Extraction, appendMode bool) domain.MusicIdeasForm {
	raw, present := ex.ExtractedFields["songs"]
	if !present {
		return current
	}
	songs := decodeSongs(raw)
	if songs == nil {
		return current
	}

	out := current
	if !appendMode {
		out = domain.EmptyMusicIdeasForm()
	}

	for _, s := range songs {
		title := cleanSongTitle(s.Title)
		if title == "" {
			continue
		}
		if len(title) > discardThreshold {
			m.Log.Debug().Int("len", len(title)).Msg("discarding oversized song title")
			continue
		}
		title = capLen(title, fieldCap)
		artist := capLen(strings.TrimSpace(s.Artist), fieldCap)

		category := s.Category
		if domain.MusicCategoryLimits[category] == 0 && category != domain.CategoryGuestRequest {
			if category != "" {
				m.Log.Debug().Str("category", category).Msg("unknown song category, defaulting")
			}
			category = domain.CategoryPlayIfPossible
		}

		out.SetCategory(category, append(out.Category(category), domain.Song{
			SongTitle:          title,
			Artist:             artist,
			ClientVisibleTitle: title,
		}))
	}

	return out
}

// cleanSongTitle strips embedded newlines and, when the title is
// implausibly long, isolates the real title ahead of a " - " or " by "
// separator, falling back to the first few words.
func cleanSongTitle(raw string) string {
	t := strings.ReplaceAll(raw, "\r\n", " ")
	t = strings.ReplaceAll(t, "\n", " ")
	t = strings.ReplaceAll(t, "\r", " ")
	t = strings.TrimSpace(t)
	if len(t) <= splitThreshold {
		return t
	}
	if i := strings.Index(t, " - "); i > 0 {
		return strings.TrimSpace(t[:i])
	}
	if i := strings.Index(t, " by "); i > 0 {
		return strings.TrimSpace(t[:i])
	}
	words := strings.Fields(t)
	if len(words) > truncateWords {
		words = words[:truncateWords]
	}
	return strings.Join(words, " ")
}

// capLen truncates to at most n bytes without splitting a rune.
func capLen(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// decodeSongs tolerates both the typed slice and the []any shape a generic
// JSON decode produces. Entries that are not objects are skipped.
func decodeSongs(v any) []domain.ExtractedSong {
	switch songs := v.(type) {
	case []domain.ExtractedSong:
		return songs
	case []any:
		out := make([]domain.ExtractedSong, 0, len(songs))
		for _, e := range songs {
			obj, ok := e.(map[string]any)
			if !ok {
				continue
			}
			var s domain.ExtractedSong
			if t, ok := obj["title"].(string); ok {
				s.Title = t
			}
			if a, ok := obj["artist"].(string); ok {
				s.Artist = a
			}
			if c, ok := obj["category"].(string); ok {
				s.Category = c
			}
			out = append(out, s)
		}
		return out
	}
	return nil
}
