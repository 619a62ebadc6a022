package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ToolInvocation is one assembled tool request from a model response.
// When the streamed input could not be parsed, ParseErr holds the reason,
// RawInput holds the offending buffer, and Call.Arguments is left as an
// empty object so the conversation history stays replayable.
type ToolInvocation struct {
	Call     ToolCall
	ParseErr string
	RawInput string
}

// Turn is the interpreted result of one complete model response stream.
type Turn struct {
	Text        string
	Invocations []ToolInvocation
	Usage       Usage
}

// Interpreter folds wire events into a Turn. Content accumulation is keyed
// strictly by block index: interleaved fragments for different blocks never
// mix, regardless of arrival order. The interpreter performs no I/O; text
// forwarding for live display is the caller's concern.
type Interpreter struct {
	text   strings.Builder
	blocks map[int64]*contentBlock
	order  []int64 // tool blocks in the order their block-start arrived
	usage  Usage
}

type contentBlock struct {
	kind    BlockKind
	id      string
	name    string
	initial json.RawMessage
	buf     strings.Builder
	inv     *ToolInvocation // set exactly once, at block-stop
}

func NewInterpreter() *Interpreter {
	return &Interpreter{blocks: make(map[int64]*contentBlock)}
}

// Feed consumes one wire event. Event types the interpreter does not
// recognize are ignored, as are fragments for indexes with no open block.
func (in *Interpreter) Feed(event Event) {
	switch event.Type {
	case EventBlockStart:
		if event.Block == nil {
			return
		}
		if _, open := in.blocks[event.Index]; open {
			return // duplicate start for an index: first one wins
		}
		b := &contentBlock{
			kind: event.Block.Kind,
			id:   event.Block.ID,
			name: event.Block.Name,
		}
		if len(event.Block.Input) > 0 {
			b.initial = append(json.RawMessage(nil), event.Block.Input...)
		}
		in.blocks[event.Index] = b
		if b.kind == BlockToolUse {
			in.order = append(in.order, event.Index)
		}

	case EventTextDelta:
		in.text.WriteString(event.Text)

	case EventInputJSONDelta:
		if b, ok := in.blocks[event.Index]; ok && b.kind == BlockToolUse && b.inv == nil {
			b.buf.WriteString(event.PartialJSON)
		}

	case EventBlockStop:
		b, ok := in.blocks[event.Index]
		if !ok || b.kind != BlockToolUse || b.inv != nil {
			return
		}
		b.inv = finalizeBlock(b)

	case EventUsage:
		// Upstream usage events are cumulative snapshots, so the latest
		// one replaces the previous value. Summation across model turns
		// happens in the engine, never here.
		if event.Use != nil {
			in.usage = *event.Use
		}
	}
}

// Turn returns the interpreted result. Invocations appear in the order
// their blocks were opened; blocks that never closed are dropped.
func (in *Interpreter) Turn() Turn {
	turn := Turn{Text: in.text.String(), Usage: in.usage}
	for _, index := range in.order {
		if inv := in.blocks[index].inv; inv != nil {
			turn.Invocations = append(turn.Invocations, *inv)
		}
	}
	return turn
}

// finalizeBlock parses the accumulated input exactly once and releases the
// buffer.
func finalizeBlock(b *contentBlock) *ToolInvocation {
	raw := b.buf.String()
	b.buf.Reset()
	inv := &ToolInvocation{Call: ToolCall{ID: b.id, Name: b.name}}
	args, parseErr := assembleInput(b.initial, raw)
	inv.Call.Arguments = args
	if parseErr != "" {
		inv.ParseErr = parseErr
		inv.RawInput = raw
	}
	return inv
}

// assembleInput combines a block's initial input literal with its streamed
// fragment buffer. An empty buffer keeps the initial object as-is. A parsed
// object merges over the initial one, streamed keys winning. A parsed
// non-object value replaces the initial input outright. A buffer that is
// not valid JSON reports a parse error; the returned arguments fall back
// to an empty object.
func assembleInput(initial json.RawMessage, raw string) (json.RawMessage, string) {
	if strings.TrimSpace(raw) == "" {
		if len(initial) > 0 {
			return initial, ""
		}
		return json.RawMessage("{}"), ""
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return json.RawMessage("{}"), fmt.Sprintf("invalid tool input JSON: %v", err)
	}

	obj, isObject := parsed.(map[string]any)
	if !isObject {
		return json.RawMessage(raw), ""
	}

	base := map[string]any{}
	if len(initial) > 0 {
		var head map[string]any
		if err := json.Unmarshal(initial, &head); err == nil {
			base = head
		}
	}
	for k, v := range obj {
		base[k] = v
	}

	merged, err := json.Marshal(base)
	if err != nil {
		return json.RawMessage("{}"), fmt.Sprintf("merge tool input: %v", err)
	}
	return merged, ""
}
