package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

type countingTool struct {
	calls int
}

func (t *countingTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        "count_tool",
		Description: "Counts executions",
		Schema:      map[string]any{"type": "object"},
	}
}

func (t *countingTool) Execute(ctx context.Context, args json.RawMessage) (ToolOutput, error) {
	t.calls++
	return TextOutput("ok"), nil
}

func (t *countingTool) Preview(args json.RawMessage) string {
	return ""
}

type echoTool struct {
	name string
}

func (t *echoTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        t.name,
		Description: "Echoes its value argument",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"value": map[string]any{"type": "string"}},
		},
	}
}

func (t *echoTool) Execute(ctx context.Context, args json.RawMessage) (ToolOutput, error) {
	var parsed struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(args, &parsed); err != nil {
		return ToolOutput{}, err
	}
	return TextOutput("echo: " + parsed.Value), nil
}

func (t *echoTool) Preview(args json.RawMessage) string {
	return ""
}

// namedTool appends its name to a shared log on execution, so tests can
// assert cross-tool execution order.
type namedTool struct {
	name string
	log  *[]string
}

func (t *namedTool) Spec() ToolSpec {
	return ToolSpec{Name: t.name, Description: t.name, Schema: map[string]any{"type": "object"}}
}

func (t *namedTool) Execute(ctx context.Context, args json.RawMessage) (ToolOutput, error) {
	if t.log != nil {
		*t.log = append(*t.log, t.name)
	}
	return TextOutput("done: " + t.name), nil
}

func (t *namedTool) Preview(args json.RawMessage) string {
	return ""
}

type failingTool struct {
	name string
	err  error
}

func (t *failingTool) Spec() ToolSpec {
	return ToolSpec{Name: t.name, Description: "Always fails", Schema: map[string]any{"type": "object"}}
}

func (t *failingTool) Execute(ctx context.Context, args json.RawMessage) (ToolOutput, error) {
	return ToolOutput{}, t.err
}

func (t *failingTool) Preview(args json.RawMessage) string {
	return ""
}

type refusingTool struct {
	name string
}

func (t *refusingTool) Spec() ToolSpec {
	return ToolSpec{Name: t.name, Description: "Reports an expected failure", Schema: map[string]any{"type": "object"}}
}

func (t *refusingTool) Execute(ctx context.Context, args json.RawMessage) (ToolOutput, error) {
	return ErrorOutput("file missing"), nil
}

func (t *refusingTool) Preview(args json.RawMessage) string {
	return ""
}

func newTestEngine(provider Provider, tools ...Tool) *Engine {
	registry := NewToolRegistry()
	for _, tool := range tools {
		registry.Register(tool)
	}
	return NewEngine(provider, registry)
}

func baseRequest(engine *Engine) Request {
	return Request{
		Model:    "test-model",
		Messages: []Message{UserText("go")},
		Tools:    engine.Tools().AllSpecs(),
	}
}

// toolCallEvents scripts a model turn of optional text plus one tool call.
func toolCallEvents(text, id, name, args string) []Event {
	var events []Event
	if text != "" {
		events = append(events, Event{Type: EventTextDelta, Text: text})
	}
	events = append(events, toolStart(1, id, name))
	if args != "" {
		events = append(events, jsonDelta(1, args))
	}
	events = append(events, blockStop(1), Event{Type: EventMessageEnd})
	return events
}

func collectEvents(t *testing.T, stream Stream) []Event {
	t.Helper()
	var events []Event
	for {
		event, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		events = append(events, event)
	}
	return events
}

func TestExchangeTextOnly(t *testing.T) {
	provider := NewMockProvider("mock").
		AddTextTurn("Hello there").
		WithUsage(Usage{InputTokens: 10, OutputTokens: 5})
	engine := newTestEngine(provider)

	reply := engine.Exchange(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserText("hi")},
	})

	if !reply.Success {
		t.Fatalf("exchange failed: %s", reply.Content)
	}
	if reply.Content != "Hello there" {
		t.Errorf("content=%q, want %q", reply.Content, "Hello there")
	}
	if reply.Truncated {
		t.Error("truncated=true, want false")
	}
	if want := (Usage{InputTokens: 10, OutputTokens: 5}); reply.Usage != want {
		t.Errorf("usage=%+v, want %+v", reply.Usage, want)
	}
	if len(reply.Invocations) != 0 || len(reply.ToolUses) != 0 {
		t.Errorf("got %d invocations and %d tool uses, want none", len(reply.Invocations), len(reply.ToolUses))
	}
	if len(reply.Messages) != 2 {
		t.Fatalf("got %d history messages, want 2", len(reply.Messages))
	}
	last := reply.Messages[1]
	if last.Role != RoleAssistant || len(last.Parts) != 1 || last.Parts[0].Text != "Hello there" {
		t.Errorf("unexpected assistant message: %+v", last)
	}
}

func TestExchangeSingleToolRound(t *testing.T) {
	provider := NewMockProvider("mock").
		AddToolCallTurn("Let me check.", "call-1", "fetch_value", `{"value":"hi"}`).
		WithUsage(Usage{InputTokens: 100, OutputTokens: 10}).
		AddTextTurn("Done: hi").
		WithUsage(Usage{InputTokens: 50, OutputTokens: 5})
	engine := newTestEngine(provider, &echoTool{name: "fetch_value"})

	reply := engine.Exchange(context.Background(), baseRequest(engine))

	if !reply.Success {
		t.Fatalf("exchange failed: %s", reply.Content)
	}
	// Text from all turns is concatenated in order, with no separator.
	if reply.Content != "Let me check.Done: hi" {
		t.Errorf("content=%q, want %q", reply.Content, "Let me check.Done: hi")
	}
	if len(reply.Invocations) != 0 {
		t.Errorf("final-turn invocations=%d, want 0", len(reply.Invocations))
	}
	if len(reply.ToolUses) != 1 {
		t.Fatalf("got %d tool uses, want 1", len(reply.ToolUses))
	}
	use := reply.ToolUses[0]
	if use.Name != "fetch_value" || use.Output != "echo: hi" || use.IsError {
		t.Errorf("tool use=%+v, want fetch_value/echo: hi/ok", use)
	}
	if want := (Usage{InputTokens: 150, OutputTokens: 15}); reply.Usage != want {
		t.Errorf("usage=%+v, want %+v", reply.Usage, want)
	}

	if len(reply.Messages) != 4 {
		t.Fatalf("got %d history messages, want 4", len(reply.Messages))
	}
	assistant := reply.Messages[1]
	if assistant.Role != RoleAssistant || len(assistant.Parts) != 2 {
		t.Fatalf("unexpected first assistant message: %+v", assistant)
	}
	if assistant.Parts[0].Text != "Let me check." {
		t.Errorf("assistant text=%q, want %q", assistant.Parts[0].Text, "Let me check.")
	}
	call := assistant.Parts[1].ToolCall
	if call == nil || call.ID != "call-1" || call.Name != "fetch_value" {
		t.Errorf("assistant tool call=%+v, want call-1/fetch_value", call)
	}
	toolMsg := reply.Messages[2]
	if toolMsg.Role != RoleTool || len(toolMsg.Parts) != 1 {
		t.Fatalf("unexpected tool message: %+v", toolMsg)
	}
	result := toolMsg.Parts[0].ToolResult
	if result.ID != "call-1" || result.Content != "echo: hi" || result.IsError {
		t.Errorf("tool result=%+v, want call-1/echo: hi/ok", result)
	}
	if reply.Messages[3].Role != RoleAssistant || reply.Messages[3].Parts[0].Text != "Done: hi" {
		t.Errorf("unexpected final assistant message: %+v", reply.Messages[3])
	}

	// The second dispatch carries the updated history.
	if len(provider.Requests) != 2 {
		t.Fatalf("got %d provider calls, want 2", len(provider.Requests))
	}
	if got := len(provider.Requests[1].Messages); got != 3 {
		t.Errorf("second request history=%d messages, want 3", got)
	}
}

func TestExchangeMultipleToolsInOrder(t *testing.T) {
	var log []string
	provider := NewMockProvider("mock").
		AddTurn(
			toolStart(1, "c1", "alpha"), jsonDelta(1, `{}`), blockStop(1),
			toolStart(2, "c2", "beta"), jsonDelta(2, `{}`), blockStop(2),
			toolStart(3, "c3", "gamma"), jsonDelta(3, `{}`), blockStop(3),
			Event{Type: EventMessageEnd},
		).
		AddTextTurn("finished")
	engine := newTestEngine(provider,
		&namedTool{name: "alpha", log: &log},
		&namedTool{name: "beta", log: &log},
		&namedTool{name: "gamma", log: &log},
	)

	reply := engine.Exchange(context.Background(), baseRequest(engine))

	if !reply.Success {
		t.Fatalf("exchange failed: %s", reply.Content)
	}
	if want := []string{"alpha", "beta", "gamma"}; strings.Join(log, ",") != strings.Join(want, ",") {
		t.Errorf("execution order=%v, want %v", log, want)
	}
	toolMsg := reply.Messages[2]
	if len(toolMsg.Parts) != 3 {
		t.Fatalf("got %d result parts, want 3", len(toolMsg.Parts))
	}
	for i, wantID := range []string{"c1", "c2", "c3"} {
		if got := toolMsg.Parts[i].ToolResult.ID; got != wantID {
			t.Errorf("result %d id=%q, want %q", i, got, wantID)
		}
	}
}

func TestTurnLimitStopsLoop(t *testing.T) {
	tool := &countingTool{}
	provider := NewMockProvider("mock")
	provider.Script = func(call int, req Request) MockTurn {
		return MockTurn{Events: toolCallEvents("x", fmt.Sprintf("c%d", call), "count_tool", `{}`)}
	}
	engine := newTestEngine(provider, tool)

	reply := engine.Exchange(context.Background(), baseRequest(engine))

	if !reply.Success {
		t.Fatalf("exchange failed: %s", reply.Content)
	}
	if !reply.Truncated {
		t.Error("truncated=false, want true")
	}
	if provider.Calls() != 10 {
		t.Errorf("provider calls=%d, want 10", provider.Calls())
	}
	if tool.calls != 10 {
		t.Errorf("tool executions=%d, want 10", tool.calls)
	}
	want := strings.Repeat("x", 10) + "\n\n" + turnLimitNotice(10)
	if reply.Content != want {
		t.Errorf("content=%q, want %q", reply.Content, want)
	}
	// One user message plus an assistant and a tool-result message per turn.
	if len(reply.Messages) != 21 {
		t.Errorf("got %d history messages, want 21", len(reply.Messages))
	}
	if last := reply.Messages[len(reply.Messages)-1]; last.Role != RoleTool {
		t.Errorf("last message role=%q, want %q", last.Role, RoleTool)
	}
	if len(reply.Invocations) != 1 {
		t.Errorf("final-turn invocations=%d, want 1", len(reply.Invocations))
	}
}

func TestTurnLimitBounds(t *testing.T) {
	tests := []struct {
		name      string
		maxTurns  int
		wantCalls int
	}{
		{"default", 0, 10},
		{"lowered", 2, 2},
		{"floor", 1, 1},
		{"cannot raise past default", 50, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := NewMockProvider("mock")
			provider.Script = func(call int, req Request) MockTurn {
				return MockTurn{Events: toolCallEvents("", fmt.Sprintf("c%d", call), "count_tool", `{}`)}
			}
			engine := newTestEngine(provider, &countingTool{})
			req := baseRequest(engine)
			req.MaxTurns = tt.maxTurns

			reply := engine.Exchange(context.Background(), req)

			if provider.Calls() != tt.wantCalls {
				t.Errorf("provider calls=%d, want %d", provider.Calls(), tt.wantCalls)
			}
			if !reply.Truncated {
				t.Error("truncated=false, want true")
			}
		})
	}
}

func TestTransportFailurePreservesUsage(t *testing.T) {
	provider := NewMockProvider("mock").AddErrorTurn(
		errors.New("boom"),
		Event{Type: EventUsage, Use: &Usage{InputTokens: 50, OutputTokens: 7}},
		Event{Type: EventTextDelta, Text: "par"},
	)
	engine := newTestEngine(provider)

	reply := engine.Exchange(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserText("hi")},
	})

	if reply == nil {
		t.Fatal("reply is nil")
	}
	if reply.Success {
		t.Error("success=true, want false")
	}
	if reply.Content != "Error: boom" {
		t.Errorf("content=%q, want %q", reply.Content, "Error: boom")
	}
	// Tokens counted before the failure are already spent and stay counted.
	if want := (Usage{InputTokens: 50, OutputTokens: 7}); reply.Usage != want {
		t.Errorf("usage=%+v, want %+v", reply.Usage, want)
	}
	if reply.Messages != nil {
		t.Errorf("history=%v, want nil on failure", reply.Messages)
	}
}

func TestStreamSurfacesFailure(t *testing.T) {
	provider := NewMockProvider("mock").AddErrorTurn(
		errors.New("boom"),
		Event{Type: EventTextDelta, Text: "par"},
	)
	engine := newTestEngine(provider)

	stream, err := engine.Stream(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserText("hi")},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	var events []Event
	var terminal error
	for {
		event, err := stream.Recv()
		if err != nil {
			terminal = err
			break
		}
		events = append(events, event)
	}
	if terminal == nil || terminal == io.EOF || terminal.Error() != "boom" {
		t.Fatalf("terminal error=%v, want boom", terminal)
	}
	if len(events) == 0 {
		t.Fatal("no events before failure")
	}
	if events[0].Type != EventTextDelta || events[0].Text != "par" {
		t.Errorf("first event=%+v, want the forwarded text delta", events[0])
	}
	done := events[len(events)-1]
	if done.Type != EventDone || done.Reply == nil || done.Reply.Success {
		t.Errorf("last event=%+v, want a done event with a failure reply", done)
	}
}

func TestToolFailuresAreIsolated(t *testing.T) {
	provider := NewMockProvider("mock").
		AddTurn(
			toolStart(1, "c1", "broken"), blockStop(1),
			toolStart(2, "c2", "flaky"), blockStop(2),
			toolStart(3, "c3", "fetch_value"), jsonDelta(3, `{"value":"ok"}`), blockStop(3),
			Event{Type: EventMessageEnd},
		).
		AddTextTurn("done")
	engine := newTestEngine(provider,
		&failingTool{name: "broken", err: errors.New("disk offline")},
		&refusingTool{name: "flaky"},
		&echoTool{name: "fetch_value"},
	)

	reply := engine.Exchange(context.Background(), baseRequest(engine))

	if !reply.Success {
		t.Fatalf("exchange failed: %s", reply.Content)
	}
	if len(reply.ToolUses) != 3 {
		t.Fatalf("got %d tool uses, want 3", len(reply.ToolUses))
	}
	checks := []struct {
		output  string
		isError bool
	}{
		{"Error: disk offline", true},
		{"file missing", true},
		{"echo: ok", false},
	}
	for i, want := range checks {
		use := reply.ToolUses[i]
		if use.Output != want.output || use.IsError != want.isError {
			t.Errorf("tool use %d = %q/%v, want %q/%v", i, use.Output, use.IsError, want.output, want.isError)
		}
	}
	toolMsg := reply.Messages[2]
	if !toolMsg.Parts[0].ToolResult.IsError || !toolMsg.Parts[1].ToolResult.IsError || toolMsg.Parts[2].ToolResult.IsError {
		t.Errorf("result error flags=%v,%v,%v, want true,true,false",
			toolMsg.Parts[0].ToolResult.IsError, toolMsg.Parts[1].ToolResult.IsError, toolMsg.Parts[2].ToolResult.IsError)
	}
}

func TestUnknownToolReported(t *testing.T) {
	tool := &countingTool{}
	provider := NewMockProvider("mock").
		AddToolCallTurn("", "c1", "bogus", `{}`).
		AddTextTurn("ok")
	engine := newTestEngine(provider, tool)

	reply := engine.Exchange(context.Background(), baseRequest(engine))

	if !reply.Success {
		t.Fatalf("exchange failed: %s", reply.Content)
	}
	if tool.calls != 0 {
		t.Errorf("registered tool ran %d times, want 0", tool.calls)
	}
	if len(reply.ToolUses) != 1 {
		t.Fatalf("got %d tool uses, want 1", len(reply.ToolUses))
	}
	use := reply.ToolUses[0]
	if use.Output != "Error: tool not found: bogus" || !use.IsError {
		t.Errorf("tool use=%q/%v, want not-found error", use.Output, use.IsError)
	}
}

func TestUnparsableToolInputNeverExecutes(t *testing.T) {
	tool := &countingTool{}
	provider := NewMockProvider("mock").
		AddTurn(
			toolStart(1, "c1", "count_tool"),
			jsonDelta(1, `{"broken`),
			blockStop(1),
			Event{Type: EventMessageEnd},
		).
		AddTextTurn("recovered")
	engine := newTestEngine(provider, tool)

	reply := engine.Exchange(context.Background(), baseRequest(engine))

	if !reply.Success {
		t.Fatalf("exchange failed: %s", reply.Content)
	}
	if tool.calls != 0 {
		t.Errorf("tool ran %d times, want 0", tool.calls)
	}
	if len(reply.ToolUses) != 1 {
		t.Fatalf("got %d tool uses, want 1", len(reply.ToolUses))
	}
	use := reply.ToolUses[0]
	if !use.IsError {
		t.Error("tool use not marked as error")
	}
	if !strings.Contains(use.Output, "could not be assembled") || !strings.Contains(use.Output, `{"broken`) {
		t.Errorf("output=%q, want assembly failure with raw input", use.Output)
	}
	// History still records the call, with a valid empty-object argument.
	call := reply.Messages[1].Parts[0].ToolCall
	if call == nil || string(call.Arguments) != "{}" {
		t.Errorf("recorded call=%+v, want arguments {}", call)
	}
}

func TestUsageSummedAcrossTurns(t *testing.T) {
	provider := NewMockProvider("mock").
		AddToolCallTurn("", "c1", "count_tool", `{}`).
		WithUsage(Usage{InputTokens: 100, OutputTokens: 10, CachedInputTokens: 40}).
		AddTextTurn("done").
		WithUsage(Usage{InputTokens: 200, OutputTokens: 20})
	engine := newTestEngine(provider, &countingTool{})

	reply := engine.Exchange(context.Background(), baseRequest(engine))

	want := Usage{InputTokens: 300, OutputTokens: 30, CachedInputTokens: 40}
	if reply.Usage != want {
		t.Errorf("usage=%+v, want %+v", reply.Usage, want)
	}
}

func TestStreamEventSequence(t *testing.T) {
	provider := NewMockProvider("mock").
		AddToolCallTurn("Let me check.", "c1", "count_tool", `{}`).
		WithUsage(Usage{InputTokens: 3, OutputTokens: 1}).
		AddTextTurn("Done.").
		WithUsage(Usage{InputTokens: 5, OutputTokens: 2})
	engine := newTestEngine(provider, &countingTool{})

	stream, err := engine.Stream(context.Background(), baseRequest(engine))
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()
	events := collectEvents(t, stream)

	var types []string
	for _, event := range events {
		types = append(types, string(event.Type))
	}
	want := []string{
		"text_delta", "text_delta", "text_delta", // "Let m", "e che", "ck."
		"usage",
		"tool_exec_start", "tool_exec_end",
		"text_delta", // "Done."
		"usage",
		"done",
	}
	if strings.Join(types, " ") != strings.Join(want, " ") {
		t.Fatalf("event sequence=%v, want %v", types, want)
	}

	var text strings.Builder
	for _, event := range events {
		if event.Type == EventTextDelta {
			text.WriteString(event.Text)
		}
	}
	if text.String() != "Let me check.Done." {
		t.Errorf("streamed text=%q, want %q", text.String(), "Let me check.Done.")
	}

	if got := events[3].Use; got == nil || *got != (Usage{InputTokens: 3, OutputTokens: 1}) {
		t.Errorf("first usage total=%+v, want {3 1 0}", got)
	}
	if got := events[7].Use; got == nil || *got != (Usage{InputTokens: 8, OutputTokens: 3}) {
		t.Errorf("second usage total=%+v, want {8 3 0}", got)
	}
	execStart := events[4]
	if execStart.ToolCallID != "c1" || execStart.ToolName != "count_tool" {
		t.Errorf("exec start=%+v, want c1/count_tool", execStart)
	}
	execEnd := events[5]
	if !execEnd.ToolSuccess || execEnd.ToolOutput != "ok" {
		t.Errorf("exec end=%+v, want success with output ok", execEnd)
	}
	done := events[len(events)-1]
	if done.Reply == nil || !done.Reply.Success || done.Reply.Content != "Let me check.Done." {
		t.Errorf("done reply=%+v, want successful reply", done.Reply)
	}
}

func TestStreamSkipsEmptyTextDeltas(t *testing.T) {
	provider := NewMockProvider("mock").AddTurn(
		Event{Type: EventTextDelta, Text: ""},
		Event{Type: EventTextDelta, Text: "hi"},
		Event{Type: EventMessageEnd},
	)
	engine := newTestEngine(provider)

	stream, err := engine.Stream(context.Background(), Request{Model: "m", Messages: []Message{UserText("x")}})
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	var deltas []string
	for _, event := range collectEvents(t, stream) {
		if event.Type == EventTextDelta {
			deltas = append(deltas, event.Text)
		}
	}
	if len(deltas) != 1 || deltas[0] != "hi" {
		t.Errorf("forwarded deltas=%v, want only %q", deltas, "hi")
	}
}

func TestForcedToolChoiceResetsAfterFirstTurn(t *testing.T) {
	tests := []struct {
		name   string
		choice ToolChoice
	}{
		{"required", ToolChoice{Mode: ToolChoiceRequired}},
		{"named", ToolChoice{Mode: ToolChoiceName, Name: "count_tool"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := NewMockProvider("mock").
				AddToolCallTurn("", "c1", "count_tool", `{}`).
				AddTextTurn("done")
			engine := newTestEngine(provider, &countingTool{})
			req := baseRequest(engine)
			req.ToolChoice = tt.choice

			engine.Exchange(context.Background(), req)

			if len(provider.Requests) != 2 {
				t.Fatalf("got %d provider calls, want 2", len(provider.Requests))
			}
			if got := provider.Requests[0].ToolChoice; got != tt.choice {
				t.Errorf("first request choice=%+v, want %+v", got, tt.choice)
			}
			second := provider.Requests[1].ToolChoice
			if second.Mode != ToolChoiceAuto || second.Name != "" {
				t.Errorf("second request choice=%+v, want auto", second)
			}
		})
	}
}

func TestToolsStrippedWithoutCapability(t *testing.T) {
	provider := NewMockProvider("basic").
		WithCapabilities(Capabilities{ToolCalls: false}).
		AddTextTurn("plain")
	engine := newTestEngine(provider, &countingTool{})

	reply := engine.Exchange(context.Background(), baseRequest(engine))

	if !reply.Success || reply.Content != "plain" {
		t.Fatalf("reply=%+v, want plain text success", reply)
	}
	if got := provider.Requests[0].Tools; got != nil {
		t.Errorf("request tools=%v, want nil", got)
	}
}

func TestEmptyTurnLeavesHistoryUnchanged(t *testing.T) {
	provider := NewMockProvider("mock").AddTurn(Event{Type: EventMessageEnd})
	engine := newTestEngine(provider)

	reply := engine.Exchange(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{UserText("hi")},
	})

	if !reply.Success {
		t.Fatalf("exchange failed: %s", reply.Content)
	}
	if reply.Content != "" {
		t.Errorf("content=%q, want empty", reply.Content)
	}
	if len(reply.Messages) != 1 {
		t.Errorf("got %d history messages, want just the user message", len(reply.Messages))
	}
}

func TestDuplicateInvocationIDsExecuteOnce(t *testing.T) {
	tool := &countingTool{}
	provider := NewMockProvider("mock").
		AddTurn(
			toolStart(1, "dup", "count_tool"), jsonDelta(1, `{}`), blockStop(1),
			toolStart(2, "dup", "count_tool"), jsonDelta(2, `{}`), blockStop(2),
			Event{Type: EventMessageEnd},
		).
		AddTextTurn("done")
	engine := newTestEngine(provider, tool)

	reply := engine.Exchange(context.Background(), baseRequest(engine))

	if tool.calls != 1 {
		t.Errorf("tool executions=%d, want 1", tool.calls)
	}
	if len(reply.ToolUses) != 1 {
		t.Errorf("got %d tool uses, want 1", len(reply.ToolUses))
	}
	if got := len(reply.Messages[2].Parts); got != 1 {
		t.Errorf("got %d result parts, want 1", got)
	}
}

func TestBlankInvocationIDsAssigned(t *testing.T) {
	provider := NewMockProvider("mock").
		AddTurn(
			toolStart(1, "", "count_tool"), blockStop(1),
			Event{Type: EventMessageEnd},
		).
		AddTextTurn("done")
	engine := newTestEngine(provider, &countingTool{})

	reply := engine.Exchange(context.Background(), baseRequest(engine))

	call := reply.Messages[1].Parts[0].ToolCall
	if call == nil || call.ID != "toolcall-1" {
		t.Errorf("assigned id=%+v, want toolcall-1", call)
	}
	if got := reply.Messages[2].Parts[0].ToolResult.ID; got != "toolcall-1" {
		t.Errorf("result id=%q, want toolcall-1", got)
	}
}

func TestProcessMessageUsesDefaults(t *testing.T) {
	provider := NewMockProvider("mock").
		AddTextTurn("hi").
		AddTextTurn("again")
	engine := newTestEngine(provider, &countingTool{})
	engine.Defaults = Request{
		Model:           "m-1",
		Messages:        []Message{SystemText("be brief")},
		MaxOutputTokens: 256,
	}

	reply := engine.ProcessMessage(context.Background(), "hello")
	if !reply.Success {
		t.Fatalf("exchange failed: %s", reply.Content)
	}

	req := provider.Requests[0]
	if req.Model != "m-1" || req.MaxOutputTokens != 256 {
		t.Errorf("request=%+v, want defaults applied", req)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != RoleSystem || req.Messages[1].Parts[0].Text != "hello" {
		t.Errorf("messages=%+v, want system then user", req.Messages)
	}
	if len(req.Tools) != 1 {
		t.Errorf("got %d tools, want the registry spec", len(req.Tools))
	}

	// Defaults are not mutated between calls.
	engine.ProcessMessage(context.Background(), "next")
	if got := len(provider.Requests[1].Messages); got != 2 {
		t.Errorf("second call history=%d messages, want 2", got)
	}
	if got := len(engine.Defaults.Messages); got != 1 {
		t.Errorf("defaults grew to %d messages, want 1", got)
	}
}
