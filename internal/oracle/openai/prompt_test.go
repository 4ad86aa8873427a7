package openai

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "shorter than limit", in: "hello", n: 10, want: "hello"},
		{name: "exactly at limit", in: "hello", n: 5, want: "hello"},
		{name: "ascii cut", in: "hello world", n: 5, want: "hello"},
		{name: "cut inside multibyte rune", in: "资产负债表", n: 4, want: "资"},
		{name: "cut on rune boundary", in: "资产负债表", n: 6, want: "资产"},
		{name: "limit smaller than first rune", in: "资产", n: 2, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.n)
			}
		})
	}
}

func TestBuildBatchUserPromptTruncatesValidUTF8(t *testing.T) {
	// page text big enough to force the per-page cut, in multibyte runes
	page := strings.Repeat("車輛買賣合約 ", 200)
	texts := make([]string, 20)
	for i := range texts {
		texts[i] = page
	}

	prompt := buildBatchUserPrompt(texts, map[string]any{"type": "object"})
	if !utf8.ValidString(prompt) {
		t.Error("batch prompt contains invalid UTF-8 after truncation")
	}
}
