package llm

import (
	"context"
	"encoding/json"
)

// Provider streams model output events for a request.
type Provider interface {
	Name() string
	Credential() string // Returns credential source for diagnostics (e.g., "api_key", "env")
	Capabilities() Capabilities
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Capabilities describe optional provider features.
type Capabilities struct {
	ToolCalls bool
}

// ModelLister is implemented by providers that can enumerate remote models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Stream yields events until io.EOF.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

// Request represents a single model turn.
type Request struct {
	Model             string
	Messages          []Message
	Tools             []ToolSpec
	ToolChoice        ToolChoice
	ParallelToolCalls bool
	MaxOutputTokens   int
	Temperature       float32
	MaxTurns          int // Max agentic turns for tool execution (0 = use default)
}

// Role identifies a message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType identifies a message content part.
type PartType string

const (
	PartText       PartType = "text"
	PartToolCall   PartType = "tool_call"
	PartToolResult PartType = "tool_result"
)

// Message holds a role with structured parts. Messages are append-only:
// once added to a conversation they are never mutated.
type Message struct {
	Role  Role
	Parts []Part
}

// Part represents a single content part.
type Part struct {
	Type       PartType
	Text       string
	ToolCall   *ToolCall
	ToolResult *ToolResult
}

// ToolSpec describes a callable tool.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]any
}

// ToolChoiceMode controls tool selection behavior.
type ToolChoiceMode string

const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceRequired ToolChoiceMode = "required"
	ToolChoiceName     ToolChoiceMode = "name"
)

// ToolChoice configures which tool the model should call.
type ToolChoice struct {
	Mode ToolChoiceMode
	Name string
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolResult is the output from executing a tool call.
type ToolResult struct {
	ID      string
	Name    string
	Content string
	IsError bool // True if this result represents a tool execution error
}

// BlockKind identifies a streamed content block's type.
type BlockKind string

const (
	BlockText    BlockKind = "text"
	BlockToolUse BlockKind = "tool_use"
)

// BlockStart carries the opening metadata of a content block.
type BlockStart struct {
	Kind  BlockKind
	ID    string          // tool_use: invocation id
	Name  string          // tool_use: tool name
	Input json.RawMessage // tool_use: input literal known at open, may be empty
}

// EventType describes streaming events.
type EventType string

// Wire events, as emitted by providers. Consumers must ignore types they
// do not recognize; providers are free to add new ones.
const (
	EventBlockStart     EventType = "block_start"
	EventTextDelta      EventType = "text_delta"
	EventInputJSONDelta EventType = "input_json_delta"
	EventBlockStop      EventType = "block_stop"
	EventUsage          EventType = "usage"
	EventMessageEnd     EventType = "message_end"
)

// Engine events, layered on top of the wire events by the agentic loop.
const (
	EventToolExecStart EventType = "tool_exec_start" // Emitted when tool execution begins
	EventToolExecEnd   EventType = "tool_exec_end"   // Emitted when tool execution completes
	EventNotice        EventType = "notice"          // User-visible note (e.g. turn-limit reached)
	EventDone          EventType = "done"            // Final event; carries the exchange summary
	EventRetry         EventType = "retry"           // Emitted when retrying after a transient error
)

// Event represents a streamed output update.
//
// On a provider stream, EventUsage carries the upstream API's cumulative
// token snapshot for that response: a later usage event supersedes an
// earlier one, it is never additive. On an engine stream, EventUsage
// carries the running total for the whole exchange, with the same
// latest-wins reading.
type Event struct {
	Type EventType

	// Block-scoped fields (EventBlockStart, EventInputJSONDelta, EventBlockStop).
	Index int64
	Block *BlockStart

	Text        string // For EventTextDelta: literal output text
	PartialJSON string // For EventInputJSONDelta: raw tool-input fragment

	Use *Usage // For EventUsage

	// Tool execution progress (EventToolExecStart, EventToolExecEnd).
	ToolCallID  string
	ToolName    string
	ToolInfo    string    // Short display string (e.g., "(path:main.go)")
	ToolSuccess bool      // For EventToolExecEnd: whether execution succeeded
	ToolOutput  string    // For EventToolExecEnd: the tool's output text
	Diff        *DiffData // For EventToolExecEnd: optional file change to render

	Notice string // For EventNotice

	Reply *Reply // For EventDone

	// Retry fields (for EventRetry).
	RetryAttempt     int
	RetryMaxAttempts int
	RetryWaitSecs    float64
}

// Usage captures token usage if available.
type Usage struct {
	InputTokens       int
	OutputTokens      int
	CachedInputTokens int // Tokens read from prompt cache
}

// Add returns the element-wise sum of two usage counts.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:       u.InputTokens + o.InputTokens,
		OutputTokens:      u.OutputTokens + o.OutputTokens,
		CachedInputTokens: u.CachedInputTokens + o.CachedInputTokens,
	}
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// IsZero reports whether no tokens were counted.
func (u Usage) IsZero() bool {
	return u == Usage{}
}

// ModelInfo represents a model available from a provider.
type ModelInfo struct {
	ID          string
	DisplayName string
	Created     int64
	OwnedBy     string
}

func SystemText(text string) Message {
	return Message{
		Role:  RoleSystem,
		Parts: []Part{{Type: PartText, Text: text}},
	}
}

func UserText(text string) Message {
	return Message{
		Role:  RoleUser,
		Parts: []Part{{Type: PartText, Text: text}},
	}
}

func AssistantText(text string) Message {
	return Message{
		Role:  RoleAssistant,
		Parts: []Part{{Type: PartText, Text: text}},
	}
}

// ToolResultsMessage bundles one iteration's outcomes into a single tool
// message, one part per outcome, preserving the given order.
func ToolResultsMessage(results []ToolResult) Message {
	parts := make([]Part, 0, len(results))
	for i := range results {
		r := results[i]
		parts = append(parts, Part{Type: PartToolResult, ToolResult: &r})
	}
	return Message{Role: RoleTool, Parts: parts}
}
