package mapper

import "testing"

func TestNormalizeTime(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"5pm", "17:00"},
		{"5 pm", "17:00"},
		{"5:30pm", "17:30"},
		{"5:30 PM", "17:30"},
		{"12pm", "12:00"},
		{"12am", "00:00"},
		{"9:15am", "09:15"},
		{"17:30", "17:30"},
		{"17", "17:00"},
		{"5", "17:00"},
		{"0", "12:00"},
		{"  14:05 ", "14:05"},
		{"", ""},
		{"noon", ""},
		{"25:00", ""},
		{"13pm", ""},
		{"5:75pm", ""},
		{"99", ""},
	}
	for _, c := range cases {
		if got := NormalizeTime(c.in); got != c.want {
			t.Errorf("NormalizeTime(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeTimeIdempotent(t *testing.T) {
	for _, s := range []string{"09:15", "12:00", "17:30", "23:59", "00:00"} {
		if got := NormalizeTime(s); got != s {
			t.Errorf("NormalizeTime(%q) = %q, want unchanged", s, got)
		}
	}
}
