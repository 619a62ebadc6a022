package cmd

import (
	"strings"
	"testing"
)

func TestSuggestCommand(t *testing.T) {
	s := &chatSession{}

	out := captureStdout(t, func() error {
		s.suggestCommand("/moel")
		return nil
	})
	if !strings.Contains(out, "did you mean /model?") {
		t.Fatalf("expected /model suggestion, got %q", out)
	}

	out = captureStdout(t, func() error {
		s.suggestCommand("/xyzzy")
		return nil
	})
	if strings.Contains(out, "did you mean") {
		t.Fatalf("unexpected suggestion for gibberish: %q", out)
	}
	if !strings.Contains(out, "/help") {
		t.Fatalf("expected /help hint, got %q", out)
	}
}
