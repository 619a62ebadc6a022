package pricing

import (
	"math"
	"strings"
	"testing"

	"github.com/codewright/codewright/internal/llm"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCost_KnownModel(t *testing.T) {
	// 1M input at $3 + 1M output at $15
	result := Cost("claude-sonnet-4-6", llm.Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000})
	if !result.Known {
		t.Fatal("expected known model")
	}
	if !almostEqual(result.USD, 18.00) {
		t.Errorf("cost = %f, want 18.00", result.USD)
	}
	if result.Note != "" {
		t.Errorf("known model should not carry a note: %q", result.Note)
	}
}

func TestCost_CachedTokens(t *testing.T) {
	// Cached input bills at the cached rate, not the input rate.
	result := Cost("claude-sonnet-4-6", llm.Usage{
		InputTokens:       100_000,
		CachedInputTokens: 1_000_000,
	})
	want := 0.1*3.00 + 1.0*0.30
	if !almostEqual(result.USD, want) {
		t.Errorf("cost = %f, want %f", result.USD, want)
	}
}

func TestCost_UnknownModel(t *testing.T) {
	result := Cost("mystery-model-9000", llm.Usage{InputTokens: 1000})
	if result.Known {
		t.Error("unknown model should not be known")
	}
	if result.USD != 0 {
		t.Errorf("unknown model cost = %f, want 0", result.USD)
	}
	if !strings.Contains(result.Note, "mystery-model-9000") {
		t.Errorf("note should name the model: %q", result.Note)
	}
}

func TestCost_LocalModelIsFree(t *testing.T) {
	result := Cost("qwen3-coder", llm.Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000})
	if !result.Known {
		t.Error("local models should be known")
	}
	if result.USD != 0 {
		t.Errorf("local model cost = %f, want 0", result.USD)
	}
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"claude-sonnet-4-6", "claude-sonnet-4-6"},
		{"sonnet", "claude-sonnet-4-6"},
		{"claude-sonnet-4-6-20250918", "claude-sonnet-4-6"},
		{"claude-sonnet-4-6@20250918", "claude-sonnet-4-6"},
		{"claude-opus-4-6-latest", "claude-opus-4-6"},
		{"anthropic/claude-haiku-4-5", "claude-haiku-4-5"},
		{"  gpt  ", "gpt-5.2"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := Canonicalize(tt.model); got != tt.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.model, got, tt.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	p, ok := Lookup("sonnet")
	if !ok {
		t.Fatal("alias lookup should succeed")
	}
	if p.InputPerMTok != 3.00 {
		t.Errorf("input price = %f, want 3.00", p.InputPerMTok)
	}

	if _, ok := Lookup("not-a-model"); ok {
		t.Error("lookup of unknown model should fail")
	}
}

func TestTable_Sorted(t *testing.T) {
	entries := Table()
	if len(entries) == 0 {
		t.Fatal("table should not be empty")
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Model >= entries[i].Model {
			t.Errorf("table not sorted at %d: %s >= %s", i, entries[i-1].Model, entries[i].Model)
		}
	}
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		usd  float64
		want string
	}{
		{0, "$0.00"},
		{1.5, "$1.50"},
		{0.0042, "$0.0042"},
		{0.01, "$0.01"},
	}

	for _, tt := range tests {
		if got := FormatUSD(tt.usd); got != tt.want {
			t.Errorf("FormatUSD(%f) = %q, want %q", tt.usd, got, tt.want)
		}
	}
}
