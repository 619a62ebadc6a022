package cmd

import (
	"strings"
	"testing"
)

func TestFormatTokens(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{950, "950"},
		{1_234, "1.2k"},
		{56_789, "57k"},
		{1_200_000, "1.2M"},
		{34_000_000, "34M"},
	}
	for _, tc := range tests {
		if got := formatTokens(tc.n); got != tc.want {
			t.Fatalf("formatTokens(%d)=%q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestShortenModelName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"claude-sonnet-4-6", "claude-sonnet-4-6"},
		{"accounts/fireworks/models/llama-v3", "llama-v3"},
		{strings.Repeat("x", 40), strings.Repeat("x", 29) + "..."},
	}
	for _, tc := range tests {
		if got := shortenModelName(tc.input); got != tc.want {
			t.Fatalf("shortenModelName(%q)=%q, want %q", tc.input, got, tc.want)
		}
	}
}
