package llm

import (
	"context"
	"encoding/json"
)

// Tool describes a callable external tool.
type Tool interface {
	Spec() ToolSpec
	// Execute runs the tool. Expected failures (missing file, denied
	// command, bad parameters) are reported through ToolOutput.IsError so
	// the model can react; a non-nil error is reserved for infrastructure
	// problems.
	Execute(ctx context.Context, args json.RawMessage) (ToolOutput, error)
	// Preview returns a human-readable description of what the tool will do,
	// shown to the user before execution starts (e.g., "reading main.go").
	// Returns empty string if no preview is available.
	Preview(args json.RawMessage) string
}

// ToolOutput is the result of one tool execution.
type ToolOutput struct {
	Content string
	IsError bool
	Diff    *DiffData // Optional file diff for display (edit/write tools)
}

// DiffData describes a file change for rendering.
type DiffData struct {
	File string
	Old  string
	New  string
	Line int // 1-based line where the change starts
}

// TextOutput wraps plain text as a successful tool output.
func TextOutput(content string) ToolOutput {
	return ToolOutput{Content: content}
}

// ErrorOutput wraps an error message as a failed tool output.
func ErrorOutput(message string) ToolOutput {
	return ToolOutput{Content: message, IsError: true}
}

// ToolRegistry stores tools by name for execution. Registration order is
// preserved so the specs sent to a provider are deterministic. The registry
// is read-only once the engine starts; it does no internal locking.
type ToolRegistry struct {
	tools map[string]Tool
	order []string
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a name twice replaces the earlier tool
// in place, keeping its original position.
func (r *ToolRegistry) Register(tool Tool) {
	name := tool.Spec().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

func (r *ToolRegistry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *ToolRegistry) Unregister(name string) {
	if _, ok := r.tools[name]; !ok {
		return
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Names returns the registered tool names in registration order.
func (r *ToolRegistry) Names() []string {
	return append([]string(nil), r.order...)
}

// AllSpecs returns the specs for all registered tools in registration order.
func (r *ToolRegistry) AllSpecs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec())
	}
	return specs
}

func (r *ToolRegistry) Len() int {
	return len(r.order)
}
