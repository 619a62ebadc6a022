package llm

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
)

// MockTurn scripts one provider response: its events, then an optional
// terminal error surfaced after the events are drained.
type MockTurn struct {
	Events []Event
	Err    error
}

// MockProvider replays scripted turns and records every request it
// receives. When Script is set it overrides the scripted turns and
// produces the response for each call dynamically.
type MockProvider struct {
	mu       sync.Mutex
	name     string
	caps     Capabilities
	turns    []MockTurn
	call     int
	Requests []Request

	Script func(call int, req Request) MockTurn
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name, caps: Capabilities{ToolCalls: true}}
}

func (p *MockProvider) Name() string               { return p.name }
func (p *MockProvider) Credential() string         { return "mock" }
func (p *MockProvider) Capabilities() Capabilities { return p.caps }

func (p *MockProvider) WithCapabilities(caps Capabilities) *MockProvider {
	p.caps = caps
	return p
}

// AddTurn appends a scripted turn with the given raw events.
func (p *MockProvider) AddTurn(events ...Event) *MockProvider {
	p.turns = append(p.turns, MockTurn{Events: events})
	return p
}

// AddTextTurn appends a turn that streams text in small delta chunks.
func (p *MockProvider) AddTextTurn(text string) *MockProvider {
	events := []Event{{Type: EventBlockStart, Index: 0, Block: &BlockStart{Kind: BlockText}}}
	for _, chunk := range chunkText(text, 5) {
		events = append(events, Event{Type: EventTextDelta, Index: 0, Text: chunk})
	}
	events = append(events,
		Event{Type: EventBlockStop, Index: 0},
		Event{Type: EventMessageEnd},
	)
	return p.AddTurn(events...)
}

// AddToolCallTurn appends a turn that streams text followed by one tool
// call whose input arrives in fragments.
func (p *MockProvider) AddToolCallTurn(text, id, name, argsJSON string) *MockProvider {
	var events []Event
	for _, chunk := range chunkText(text, 5) {
		events = append(events, Event{Type: EventTextDelta, Index: 0, Text: chunk})
	}
	events = append(events, Event{Type: EventBlockStart, Index: 1, Block: &BlockStart{Kind: BlockToolUse, ID: id, Name: name}})
	for _, chunk := range chunkText(argsJSON, 8) {
		events = append(events, Event{Type: EventInputJSONDelta, Index: 1, PartialJSON: chunk})
	}
	events = append(events,
		Event{Type: EventBlockStop, Index: 1},
		Event{Type: EventMessageEnd},
	)
	return p.AddTurn(events...)
}

// AddErrorTurn appends a turn that fails mid-stream after emitting the
// given events.
func (p *MockProvider) AddErrorTurn(err error, events ...Event) *MockProvider {
	p.turns = append(p.turns, MockTurn{Events: events, Err: err})
	return p
}

// WithUsage attaches a usage snapshot to the most recently added turn.
func (p *MockProvider) WithUsage(u Usage) *MockProvider {
	if len(p.turns) == 0 {
		panic("WithUsage: no turn to attach to")
	}
	last := &p.turns[len(p.turns)-1]
	last.Events = append(last.Events, Event{Type: EventUsage, Use: &u})
	return p
}

func (p *MockProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	p.mu.Lock()
	call := p.call
	p.call++
	p.Requests = append(p.Requests, req)
	var turn MockTurn
	switch {
	case p.Script != nil:
		turn = p.Script(call, req)
	case call < len(p.turns):
		turn = p.turns[call]
	default:
		p.mu.Unlock()
		return nil, fmt.Errorf("mock: no scripted turn for call %d", call)
	}
	p.mu.Unlock()

	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		for _, event := range turn.Events {
			if err := emit(ctx, events, event); err != nil {
				return err
			}
		}
		return turn.Err
	}), nil
}

// Calls reports how many times Stream was invoked.
func (p *MockProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.call
}

func chunkText(text string, size int) []string {
	var chunks []string
	for len(text) > size {
		chunks = append(chunks, text[:size])
		text = text[size:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func TestMockProviderBasicInfo(t *testing.T) {
	p := NewMockProvider("test-mock")

	if got := p.Name(); got != "test-mock" {
		t.Errorf("Name() = %q, want %q", got, "test-mock")
	}
	if got := p.Credential(); got != "mock" {
		t.Errorf("Credential() = %q, want %q", got, "mock")
	}
	if !p.Capabilities().ToolCalls {
		t.Error("expected ToolCalls to be true by default")
	}
	if p.WithCapabilities(Capabilities{}).Capabilities().ToolCalls {
		t.Error("expected ToolCalls to be false after WithCapabilities")
	}
}

func TestMockProviderReplaysTurns(t *testing.T) {
	provider := NewMockProvider("mock").
		AddTextTurn("first").
		AddTextTurn("second")

	for call, want := range []string{"first", "second"} {
		stream, err := provider.Stream(context.Background(), Request{Model: "m"})
		if err != nil {
			t.Fatalf("call %d: %v", call, err)
		}
		in := NewInterpreter()
		for {
			event, err := stream.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("call %d: recv: %v", call, err)
			}
			in.Feed(event)
		}
		stream.Close()
		if got := in.Turn().Text; got != want {
			t.Errorf("call %d: text=%q, want %q", call, got, want)
		}
	}

	if _, err := provider.Stream(context.Background(), Request{}); err == nil {
		t.Error("expected an error once the script is exhausted")
	}
}

func TestMockProviderRecordsRequests(t *testing.T) {
	provider := NewMockProvider("mock").AddTextTurn("ok")
	req := Request{Model: "test-model", Messages: []Message{UserText("hi")}}
	stream, err := provider.Stream(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	stream.Close()

	if len(provider.Requests) != 1 {
		t.Fatalf("got %d recorded requests, want 1", len(provider.Requests))
	}
	if provider.Requests[0].Model != "test-model" {
		t.Errorf("model=%q, want test-model", provider.Requests[0].Model)
	}
	if provider.Calls() != 1 {
		t.Errorf("calls=%d, want 1", provider.Calls())
	}
}

func TestMockProviderSurfacesTerminalError(t *testing.T) {
	provider := NewMockProvider("mock").AddErrorTurn(
		fmt.Errorf("connection reset"),
		Event{Type: EventTextDelta, Text: "par"},
	)
	stream, err := provider.Stream(context.Background(), Request{})
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	event, err := stream.Recv()
	if err != nil {
		t.Fatalf("first recv: %v", err)
	}
	if event.Text != "par" {
		t.Errorf("text=%q, want par", event.Text)
	}
	if _, err := stream.Recv(); err == nil || err.Error() != "connection reset" {
		t.Errorf("terminal err=%v, want connection reset", err)
	}
}

func TestChunkText(t *testing.T) {
	tests := []struct {
		text string
		size int
		want []string
	}{
		{"hello world", 5, []string{"hello", " worl", "d"}},
		{"hi", 5, []string{"hi"}},
		{"", 5, nil},
		{"abcdef", 3, []string{"abc", "def"}},
	}
	for _, tt := range tests {
		got := chunkText(tt.text, tt.size)
		if len(got) != len(tt.want) {
			t.Errorf("chunkText(%q, %d) = %v, want %v", tt.text, tt.size, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("chunkText(%q, %d)[%d] = %q, want %q", tt.text, tt.size, i, got[i], tt.want[i])
			}
		}
	}
}
