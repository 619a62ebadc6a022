// Package pricing computes request cost from a static per-million-token
// price table for the curated model set.
package pricing

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/codewright/codewright/internal/llm"
)

// ModelPricing holds USD prices per million tokens.
type ModelPricing struct {
	InputPerMTok       float64
	OutputPerMTok      float64
	CachedInputPerMTok float64
}

// prices is keyed by canonical model ID. Local models carry explicit zero
// prices so they report as free rather than unknown.
var prices = map[string]ModelPricing{
	// Anthropic
	"claude-sonnet-4-6": {InputPerMTok: 3.00, OutputPerMTok: 15.00, CachedInputPerMTok: 0.30},
	"claude-sonnet-4-5": {InputPerMTok: 3.00, OutputPerMTok: 15.00, CachedInputPerMTok: 0.30},
	"claude-opus-4-6":   {InputPerMTok: 5.00, OutputPerMTok: 25.00, CachedInputPerMTok: 0.50},
	"claude-opus-4-5":   {InputPerMTok: 5.00, OutputPerMTok: 25.00, CachedInputPerMTok: 0.50},
	"claude-haiku-4-5":  {InputPerMTok: 1.00, OutputPerMTok: 5.00, CachedInputPerMTok: 0.10},

	// OpenAI
	"gpt-5.2":    {InputPerMTok: 1.25, OutputPerMTok: 10.00, CachedInputPerMTok: 0.125},
	"gpt-5.1":    {InputPerMTok: 1.25, OutputPerMTok: 10.00, CachedInputPerMTok: 0.125},
	"gpt-5":      {InputPerMTok: 1.25, OutputPerMTok: 10.00, CachedInputPerMTok: 0.125},
	"gpt-5-mini": {InputPerMTok: 0.25, OutputPerMTok: 2.00, CachedInputPerMTok: 0.025},
	"gpt-5-nano": {InputPerMTok: 0.05, OutputPerMTok: 0.40, CachedInputPerMTok: 0.005},
	"o3-mini":    {InputPerMTok: 1.10, OutputPerMTok: 4.40, CachedInputPerMTok: 0.55},

	// Gemini
	"gemini-3-pro-preview":   {InputPerMTok: 2.00, OutputPerMTok: 12.00, CachedInputPerMTok: 0.20},
	"gemini-3-flash-preview": {InputPerMTok: 0.30, OutputPerMTok: 2.50, CachedInputPerMTok: 0.03},
	"gemini-2.5-flash":       {InputPerMTok: 0.30, OutputPerMTok: 2.50, CachedInputPerMTok: 0.03},
	"gemini-2.5-flash-lite":  {InputPerMTok: 0.10, OutputPerMTok: 0.40, CachedInputPerMTok: 0.01},

	// Local models run for free.
	"qwen3-coder":   {},
	"llama3.3":      {},
	"deepseek-v3.2": {},
}

// CostResult is the outcome of a cost calculation.
type CostResult struct {
	USD   float64
	Known bool
	Note  string // set when the model has no table entry
}

// dateSuffix matches trailing release-date qualifiers like -20250918 or
// @20250918 that providers append to canonical IDs.
var dateSuffix = regexp.MustCompile(`[-@]20\d{6}$`)

// Canonicalize reduces a model identifier to its price-table key: alias
// expansion, provider prefix and date/latest suffix stripping.
func Canonicalize(model string) string {
	m := strings.TrimSpace(llm.ResolveModelAlias(model))
	if idx := strings.LastIndex(m, "/"); idx >= 0 {
		m = m[idx+1:]
	}
	m = strings.TrimSuffix(m, "-latest")
	m = dateSuffix.ReplaceAllString(m, "")
	return m
}

// Cost computes the USD cost of a usage count for a model. Unknown models
// cost zero and carry an explanatory note.
func Cost(model string, usage llm.Usage) CostResult {
	key := Canonicalize(model)
	p, ok := prices[key]
	if !ok {
		return CostResult{Note: fmt.Sprintf("no pricing for model %q; cost reported as zero", model)}
	}

	usd := float64(usage.InputTokens)*p.InputPerMTok/1e6 +
		float64(usage.OutputTokens)*p.OutputPerMTok/1e6 +
		float64(usage.CachedInputTokens)*p.CachedInputPerMTok/1e6

	return CostResult{USD: usd, Known: true}
}

// TableEntry is one row for pricing display.
type TableEntry struct {
	Model   string
	Pricing ModelPricing
}

// Table returns the full price table sorted by model ID, for the models
// command's pricing columns.
func Table() []TableEntry {
	entries := make([]TableEntry, 0, len(prices))
	for model, p := range prices {
		entries = append(entries, TableEntry{Model: model, Pricing: p})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Model < entries[j].Model
	})
	return entries
}

// Lookup returns the table entry for a model, applying canonicalization.
func Lookup(model string) (ModelPricing, bool) {
	p, ok := prices[Canonicalize(model)]
	return p, ok
}

// FormatUSD renders a cost for display. Sub-cent amounts keep four decimal
// places so small requests do not round to $0.00.
func FormatUSD(usd float64) string {
	if usd >= 0.01 || usd == 0 {
		return fmt.Sprintf("$%.2f", usd)
	}
	return fmt.Sprintf("$%.4f", usd)
}
