package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codewright/codewright/internal/llm"
)

// ServerTool wraps one MCP server tool as an llm.Tool. The registered
// name is namespaced as mcp__<server>__<tool> so server tools can never
// shadow built-ins and the origin stays visible in transcripts.
type ServerTool struct {
	client *Client
	spec   ToolSpec
}

// NewServerTool creates a tool wrapper bound to a client.
func NewServerTool(client *Client, spec ToolSpec) *ServerTool {
	return &ServerTool{
		client: client,
		spec:   spec,
	}
}

// NamespacedName builds the registry name for a server tool.
func NamespacedName(server, tool string) string {
	return fmt.Sprintf("mcp__%s__%s", server, tool)
}

func (t *ServerTool) Spec() llm.ToolSpec {
	description := t.spec.Description
	if description == "" {
		description = fmt.Sprintf("Tool %s from MCP server %s", t.spec.Name, t.client.Name())
	}
	return llm.ToolSpec{
		Name:        NamespacedName(t.client.Name(), t.spec.Name),
		Description: description,
		Schema:      t.spec.Schema,
	}
}

func (t *ServerTool) Execute(ctx context.Context, args json.RawMessage) (llm.ToolOutput, error) {
	content, toolErr, err := t.client.CallTool(ctx, t.spec.Name, args)
	if err != nil {
		return llm.ToolOutput{}, err
	}
	if toolErr != "" {
		return llm.ErrorOutput(fmt.Sprintf("Error [MCP_TOOL]: %s", toolErr)), nil
	}
	if content == "" {
		content = "(no output)"
	}
	return llm.TextOutput(content), nil
}

func (t *ServerTool) Preview(args json.RawMessage) string {
	return fmt.Sprintf("%s via %s", t.spec.Name, t.client.Name())
}
