package text_test

import (
	"testing"

	"infopulse/internal/utils/text"
)

func TestCountRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"empty", "", 0},
		{"ASCII", "hello world", 11},
		{"Japanese", "こんにちは世界", 7},
		{"accented", "café crème", 10},
		{"emoji", "Hello👋", 6},
		{"mixed", "test123テスト", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := text.CountRunes(tt.input); got != tt.expected {
				t.Errorf("CountRunes(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only whitespace", " \n\t ", ""},
		{"paragraph joins", "First paragraph.\n\nSecond  paragraph.", "First paragraph. Second paragraph."},
		{"leading and trailing", "\n  body text \t", "body text"},
		{"non-breaking tab mix", "a\t\tb\r\nc", "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := text.CollapseWhitespace(tt.input); got != tt.want {
				t.Errorf("CollapseWhitespace(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"shorter", "short", 10, "short"},
		{"exact", "exact", 5, "exact"},
		{"cut", "abcdefgh", 3, "abc..."},
		{"multibyte", "日本語のテキスト", 3, "日本語..."},
		{"negative max", "abc", -1, "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := text.Truncate(tt.input, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
		})
	}
}
