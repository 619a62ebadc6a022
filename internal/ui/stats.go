package ui

import (
	"fmt"
	"time"
)

// SessionStats tracks timing and token counts for one session.
type SessionStats struct {
	StartTime     time.Time
	InputTokens   int
	OutputTokens  int
	CachedTokens  int
	ToolCallCount int
	TurnCount     int // request/response cycles in chat
	CostUSD       float64
	CostKnown     bool

	LLMTime       time.Duration
	ToolTime      time.Duration
	lastEventTime time.Time
	inTool        bool
}

// NewSessionStats creates stats with StartTime set to now.
func NewSessionStats() *SessionStats {
	now := time.Now()
	return &SessionStats{
		StartTime:     now,
		lastEventTime: now,
		CostKnown:     true,
	}
}

// AddUsage accumulates token usage.
func (s *SessionStats) AddUsage(input, output, cached int) {
	s.InputTokens += input
	s.OutputTokens += output
	s.CachedTokens += cached
}

// AddCost accumulates a computed request cost. Unknown pricing poisons
// the total so a partial figure is never shown as if it were complete.
func (s *SessionStats) AddCost(usd float64, known bool) {
	s.CostUSD += usd
	if !known {
		s.CostKnown = false
	}
}

// ToolStart marks the start of a tool execution.
func (s *SessionStats) ToolStart() {
	now := time.Now()
	if !s.inTool {
		s.LLMTime += now.Sub(s.lastEventTime)
	}
	s.lastEventTime = now
	s.inTool = true
	s.ToolCallCount++
}

// ToolEnd marks the end of tool execution, back to model time.
func (s *SessionStats) ToolEnd() {
	now := time.Now()
	if s.inTool {
		s.ToolTime += now.Sub(s.lastEventTime)
	}
	s.lastEventTime = now
	s.inTool = false
}

// Finalize records any remaining time.
func (s *SessionStats) Finalize() {
	now := time.Now()
	if s.inTool {
		s.ToolTime += now.Sub(s.lastEventTime)
	} else {
		s.LLMTime += now.Sub(s.lastEventTime)
	}
	s.lastEventTime = now
}

// AddTurn increments the turn count.
func (s *SessionStats) AddTurn() {
	s.TurnCount++
}

// Render returns the stats as a compact single-line string.
func (s SessionStats) Render() string {
	total := time.Since(s.StartTime)

	tokensStr := fmt.Sprintf("%s in / %s out",
		formatTokenCount(s.InputTokens),
		formatTokenCount(s.OutputTokens))
	if s.CachedTokens > 0 {
		tokensStr += fmt.Sprintf(" (%s cached)", formatTokenCount(s.CachedTokens))
	}

	var timeStr string
	if s.ToolCallCount > 0 {
		timeStr = fmt.Sprintf("%.1fs (llm %.1fs + tool %.1fs)",
			total.Seconds(), s.LLMTime.Seconds(), s.ToolTime.Seconds())
	} else {
		timeStr = fmt.Sprintf("%.1fs", total.Seconds())
	}

	costStr := ""
	if s.CostUSD > 0 || s.CostKnown {
		costStr = " | " + FormatCost(s.CostUSD, s.CostKnown)
	}

	if s.TurnCount > 0 {
		return fmt.Sprintf("Stats: %s | %d turns | %s | %d tools%s",
			timeStr, s.TurnCount, tokensStr, s.ToolCallCount, costStr)
	}
	return fmt.Sprintf("Stats: %s | %s | %d tools%s",
		timeStr, tokensStr, s.ToolCallCount, costStr)
}

// FormatCost renders a dollar amount; unknown pricing gets a ~ prefix to
// show the figure is a floor, not a total.
func FormatCost(usd float64, known bool) string {
	var f string
	switch {
	case usd == 0:
		f = "$0.00"
	case usd < 0.01:
		f = fmt.Sprintf("$%.4f", usd)
	default:
		f = fmt.Sprintf("$%.2f", usd)
	}
	if !known {
		return "~" + f
	}
	return f
}

// formatTokenCount renders a count as 950, 1.2k, or 3.4M.
func formatTokenCount(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
