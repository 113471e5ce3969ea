package mapper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ampmPattern = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)$`)
	hhmmPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	barePattern = regexp.MustCompile(`^(\d{1,2})$`)
)

// NormalizeTime converts loose human time strings into 24-hour HH:MM.
// The ladder is fixed: am/pm form, then plain HH:MM, then a bare hour
// (assumed PM when below 12). Anything else fails closed to "".
func NormalizeTime(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	if m := ampmPattern.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return ""
		}
		if m[3] == "pm" && hour != 12 {
			hour += 12
		}
		if m[3] == "am" && hour == 12 {
			hour = 0
		}
		return fmt.Sprintf("%02d:%02d", hour, minute)
	}

	if m := hhmmPattern.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return ""
		}
		return fmt.Sprintf("%02d:%02d", hour, minute)
	}

	if m := barePattern.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour > 23 {
			return ""
		}
		if hour < 12 {
			hour += 12
		}
		return fmt.Sprintf("%02d:00", hour)
	}

	return ""
}
