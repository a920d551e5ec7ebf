package repository

import "testing"

func TestDayKeyDate(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"day:20240615:abc123", "20240615"},
		{"day:20231231:zzzzzz", "20231231"},
		{"day:abc123", ""},         // no date component
		{"day:2024:abc123", ""},    // date too short
		{"day:202406150:ab", ""},   // date too long
		{"clicks:abc123", ""},      // wrong namespace
	}

	for _, tt := range tests {
		if got := DayKeyDate(tt.key); got != tt.want {
			t.Errorf("DayKeyDate(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
