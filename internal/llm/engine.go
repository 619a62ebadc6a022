package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// defaultMaxTurns bounds the request/tool-execution cycles of one exchange.
// A model can request tools forever; the cap is the backstop, and hitting
// it is a defined termination with a visible notice, not an error.
const defaultMaxTurns = 10

func turnLimitNotice(limit int) string {
	return fmt.Sprintf("[Reached the tool-use limit of %d turns for this request; stopping here. Send a follow-up message to continue.]", limit)
}

// Engine orchestrates provider calls and external tool execution.
type Engine struct {
	provider Provider
	tools    *ToolRegistry

	// Defaults seeds the requests built by ProcessMessage: model, system
	// messages, sampling settings. Zero value means provider defaults.
	Defaults Request
}

func NewEngine(provider Provider, tools *ToolRegistry) *Engine {
	if tools == nil {
		tools = NewToolRegistry()
	}
	return &Engine{provider: provider, tools: tools}
}

// RegisterTool adds a tool to the engine's registry.
func (e *Engine) RegisterTool(tool Tool) {
	e.tools.Register(tool)
}

// Tools returns the engine's tool registry.
func (e *Engine) Tools() *ToolRegistry {
	return e.tools
}

// Provider returns the engine's provider.
func (e *Engine) Provider() Provider {
	return e.provider
}

// ToolUse records one executed tool invocation and its outcome.
type ToolUse struct {
	Name      string
	Arguments json.RawMessage
	Output    string
	IsError   bool
	Elapsed   time.Duration
}

// Reply is the aggregate outcome of one exchange.
type Reply struct {
	Success     bool
	Content     string           // all model text from the exchange, in order
	Invocations []ToolInvocation // the final model turn's tool requests
	ToolUses    []ToolUse        // every executed invocation, execution order
	Usage       Usage            // summed across all turns of the exchange
	Elapsed     time.Duration
	Messages    []Message // updated history; nil when the exchange failed
	Truncated   bool      // true when the turn limit forced termination
}

// Stream drives req through the agentic loop and returns the live event
// feed: text deltas as they arrive, tool execution progress, running usage
// totals, and a final EventDone carrying the Reply.
func (e *Engine) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		_, err := e.runLoop(ctx, req, events)
		return err
	}), nil
}

// Exchange runs req to completion without a live event feed and returns
// the folded Reply. The reply is non-nil even on failure.
func (e *Engine) Exchange(ctx context.Context, req Request) *Reply {
	reply, _ := e.runLoop(ctx, req, nil)
	return reply
}

// ProcessMessage runs a single user message using the engine's default
// request settings and the full tool registry. Failures fold into the
// reply as "Error: ..." content; the call never panics on a conversation
// error.
func (e *Engine) ProcessMessage(ctx context.Context, userText string) *Reply {
	req := e.Defaults
	req.Messages = append(append([]Message(nil), e.Defaults.Messages...), UserText(userText))
	if len(req.Tools) == 0 {
		req.Tools = e.tools.AllSpecs()
	}
	return e.Exchange(ctx, req)
}

// runLoop is the conversation loop: dispatch, interpret, execute tools,
// append exactly one assistant and one tool-result message, repeat until
// the model stops requesting tools or the turn limit is hit.
//
// History bookkeeping is transactional per turn: nothing is appended until
// all of a turn's outcomes are known, so a cancelled or failed dispatch
// leaves no partial turn behind.
func (e *Engine) runLoop(ctx context.Context, req Request, events chan<- Event) (*Reply, error) {
	start := time.Now()
	limit := turnLimit(req)
	history := append([]Message(nil), req.Messages...)

	// Providers without tool support get the same loop with the tool
	// list stripped.
	if !e.provider.Capabilities().ToolCalls {
		req.Tools = nil
	}

	var final strings.Builder
	var total Usage
	var uses []ToolUse
	var lastInvocations []ToolInvocation
	truncated := false

	fail := func(err error) (*Reply, error) {
		reply := &Reply{
			Success:     false,
			Content:     "Error: " + err.Error(),
			Invocations: lastInvocations,
			ToolUses:    uses,
			Usage:       total,
			Elapsed:     time.Since(start),
		}
		_ = emit(ctx, events, Event{Type: EventDone, Reply: reply})
		return reply, err
	}

	for turn := 0; ; {
		req.Messages = history
		turnResult, err := e.dispatch(ctx, req, events)

		// Count whatever the stream reported before any failure: the
		// tokens are already spent.
		total = total.Add(turnResult.Usage)
		lastInvocations = turnResult.Invocations
		if err != nil {
			return fail(err)
		}

		final.WriteString(turnResult.Text)
		running := total
		_ = emit(ctx, events, Event{Type: EventUsage, Use: &running})

		if len(turnResult.Invocations) == 0 {
			if turnResult.Text != "" {
				history = append(history, AssistantText(turnResult.Text))
			}
			break
		}

		invocations := dedupeInvocations(ensureInvocationIDs(turnResult.Invocations))
		results := e.executeInvocations(ctx, invocations, events, &uses)

		history = append(history, assistantMessage(turnResult.Text, invocations))
		history = append(history, ToolResultsMessage(results))

		turn++
		if turn >= limit {
			notice := turnLimitNotice(limit)
			if final.Len() > 0 {
				final.WriteString("\n\n")
			}
			final.WriteString(notice)
			_ = emit(ctx, events, Event{Type: EventNotice, Notice: notice})
			truncated = true
			break
		}

		// Follow-up turns always run in auto mode; a forced first call
		// must not pin every subsequent turn to the same tool.
		if req.ToolChoice.Mode == ToolChoiceName || req.ToolChoice.Mode == ToolChoiceRequired {
			req.ToolChoice = ToolChoice{Mode: ToolChoiceAuto}
		}
	}

	reply := &Reply{
		Success:     true,
		Content:     final.String(),
		Invocations: lastInvocations,
		ToolUses:    uses,
		Usage:       total,
		Elapsed:     time.Since(start),
		Messages:    history,
		Truncated:   truncated,
	}
	_ = emit(ctx, events, Event{Type: EventDone, Reply: reply})
	return reply, nil
}

// turnLimit returns the effective turn bound. A request can lower the
// bound for interactive use but never raise it past the default.
func turnLimit(req Request) int {
	if req.MaxTurns > 0 && req.MaxTurns < defaultMaxTurns {
		return req.MaxTurns
	}
	return defaultMaxTurns
}

// dispatch sends one model request and interprets its event stream. Text
// deltas are forwarded the moment they arrive; display must not wait for
// the stream to finish. The returned Turn is meaningful even when err is
// non-nil: usage and text interpreted before the failure are preserved.
func (e *Engine) dispatch(ctx context.Context, req Request, events chan<- Event) (Turn, error) {
	stream, err := e.provider.Stream(ctx, req)
	if err != nil {
		return Turn{}, err
	}
	defer stream.Close()

	interp := NewInterpreter()
	for {
		event, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return interp.Turn(), err
		}
		interp.Feed(event)

		switch event.Type {
		case EventTextDelta:
			if event.Text == "" {
				continue
			}
			if emitErr := emit(ctx, events, event); emitErr != nil {
				return interp.Turn(), emitErr
			}
		case EventRetry:
			if emitErr := emit(ctx, events, event); emitErr != nil {
				return interp.Turn(), emitErr
			}
		}
	}
	return interp.Turn(), nil
}

// executeInvocations runs one turn's tool calls strictly in request order,
// one at a time. Outcomes keep that order regardless of how long each
// handler takes, and every failure is isolated to its own outcome.
func (e *Engine) executeInvocations(ctx context.Context, invocations []ToolInvocation, events chan<- Event, uses *[]ToolUse) []ToolResult {
	results := make([]ToolResult, 0, len(invocations))
	for _, inv := range invocations {
		results = append(results, e.executeOne(ctx, inv, events, uses))
	}
	return results
}

func (e *Engine) executeOne(ctx context.Context, inv ToolInvocation, events chan<- Event, uses *[]ToolUse) ToolResult {
	call := inv.Call
	info := e.toolPreview(call)
	_ = emit(ctx, events, Event{Type: EventToolExecStart, ToolCallID: call.ID, ToolName: call.Name, ToolInfo: info})

	started := time.Now()
	result := ToolResult{ID: call.ID, Name: call.Name}
	var diff *DiffData

	switch {
	case inv.ParseErr != "":
		// Never execute with guessed input; report the assembly failure
		// back to the model instead.
		result.Content = fmt.Sprintf("Error: tool input for %s could not be assembled: %s (raw input: %s)",
			call.Name, inv.ParseErr, truncateForError(inv.RawInput, 200))
		result.IsError = true
	default:
		tool, ok := e.tools.Get(call.Name)
		if !ok {
			result.Content = fmt.Sprintf("Error: tool not found: %s", call.Name)
			result.IsError = true
			break
		}
		output, err := tool.Execute(ctx, call.Arguments)
		if err != nil {
			result.Content = fmt.Sprintf("Error: %v", err)
			result.IsError = true
			break
		}
		result.Content = output.Content
		result.IsError = output.IsError
		diff = output.Diff
	}

	*uses = append(*uses, ToolUse{
		Name:      call.Name,
		Arguments: call.Arguments,
		Output:    result.Content,
		IsError:   result.IsError,
		Elapsed:   time.Since(started),
	})
	_ = emit(ctx, events, Event{
		Type:        EventToolExecEnd,
		ToolCallID:  call.ID,
		ToolName:    call.Name,
		ToolInfo:    info,
		ToolSuccess: !result.IsError,
		ToolOutput:  result.Content,
		Diff:        diff,
	})
	return result
}

// assistantMessage builds the history entry for one model turn: its text,
// if any, followed by its tool calls in invocation order.
func assistantMessage(text string, invocations []ToolInvocation) Message {
	var parts []Part
	if text != "" {
		parts = append(parts, Part{Type: PartText, Text: text})
	}
	for i := range invocations {
		call := invocations[i].Call
		parts = append(parts, Part{Type: PartToolCall, ToolCall: &call})
	}
	return Message{Role: RoleAssistant, Parts: parts}
}

func ensureInvocationIDs(invocations []ToolInvocation) []ToolInvocation {
	for i := range invocations {
		if strings.TrimSpace(invocations[i].Call.ID) == "" {
			invocations[i].Call.ID = fmt.Sprintf("toolcall-%d", i+1)
		}
	}
	return invocations
}

func dedupeInvocations(invocations []ToolInvocation) []ToolInvocation {
	if len(invocations) < 2 {
		return invocations
	}
	seen := make(map[string]struct{}, len(invocations))
	out := make([]ToolInvocation, 0, len(invocations))
	for _, inv := range invocations {
		id := strings.TrimSpace(inv.Call.ID)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, inv)
	}
	return out
}

func truncateForError(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// toolPreview returns a short display string for a tool call.
func (e *Engine) toolPreview(call ToolCall) string {
	if tool, ok := e.tools.Get(call.Name); ok {
		if preview := tool.Preview(call.Arguments); preview != "" {
			if !strings.HasPrefix(preview, "(") {
				return "(" + preview + ")"
			}
			return preview
		}
	}
	return ExtractToolInfo(call)
}

// ExtractToolInfo extracts a preview string from tool call arguments.
// Used for displaying tool calls in the UI (e.g., "(path:main.go)" for
// read_file).
func ExtractToolInfo(call ToolCall) string {
	if len(call.Arguments) == 0 {
		return ""
	}
	var args map[string]any
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return ""
	}
	return formatToolArgs(args, 500, 5)
}

func formatToolArgs(args map[string]any, maxLen, maxParams int) string {
	if len(args) == 0 {
		return ""
	}

	type argPair struct {
		key string
		val string
	}
	var pairs []argPair

	for k, v := range args {
		var valStr string
		switch val := v.(type) {
		case string:
			if val == "" {
				continue
			}
			valStr = val
		case float64:
			if val == float64(int(val)) {
				valStr = fmt.Sprintf("%d", int(val))
			} else {
				valStr = fmt.Sprintf("%g", val)
			}
		case bool:
			valStr = fmt.Sprintf("%v", val)
		default:
			continue
		}

		if len(valStr) > 200 {
			valStr = valStr[:197] + "..."
		}
		pairs = append(pairs, argPair{key: k, val: valStr})
	}

	if len(pairs) == 0 {
		return ""
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].key < pairs[j].key
	})

	var result string
	if len(pairs) == 1 {
		result = "(" + pairs[0].val + ")"
	} else {
		var parts []string
		for i, p := range pairs {
			if i >= maxParams {
				parts = append(parts, "...")
				break
			}
			parts = append(parts, p.key+":"+p.val)
		}
		result = "(" + strings.Join(parts, ", ") + ")"
	}

	if len(result) > maxLen {
		result = result[:maxLen-4] + "...)"
	}

	return result
}
