package mcp

import (
	"context"
	"testing"

	"github.com/codewright/codewright/internal/llm"
)

// runningClient builds a client that claims to be connected, with a fixed
// tool list. Enough for registration tests; no session behind it.
func runningClient(name string, tools ...string) *Client {
	c := NewClient(name, ServerConfig{Command: "echo"})
	c.running = true
	for _, tool := range tools {
		c.tools = append(c.tools, ToolSpec{Name: tool, Description: tool + " description"})
	}
	return c
}

func TestManagerToolsOrdered(t *testing.T) {
	m := NewManager()
	m.clients["zeta"] = runningClient("zeta", "b_tool", "a_tool")
	m.clients["alpha"] = runningClient("alpha", "one")

	tools := m.Tools()
	if len(tools) != 3 {
		t.Fatalf("len(tools) = %d, want 3", len(tools))
	}

	// Servers sort alphabetically; within a server, advertised order holds.
	want := []string{"mcp__alpha__one", "mcp__zeta__b_tool", "mcp__zeta__a_tool"}
	for i, tool := range tools {
		if got := tool.Spec().Name; got != want[i] {
			t.Errorf("tools[%d] = %q, want %q", i, got, want[i])
		}
	}
}

func TestManagerRegisterTools(t *testing.T) {
	m := NewManager()
	m.clients["srv"] = runningClient("srv", "lookup")

	registry := llm.NewToolRegistry()
	m.RegisterTools(registry)

	if registry.Len() != 1 {
		t.Fatalf("registry.Len() = %d, want 1", registry.Len())
	}
	if _, ok := registry.Get("mcp__srv__lookup"); !ok {
		t.Error("namespaced tool not registered")
	}
}

func TestManagerServerNames(t *testing.T) {
	m := NewManager()
	m.clients["bbb"] = runningClient("bbb")
	m.clients["aaa"] = runningClient("aaa")

	names := m.ServerNames()
	if len(names) != 2 || names[0] != "aaa" || names[1] != "bbb" {
		t.Errorf("ServerNames = %v", names)
	}
}

func TestStartAllEmpty(t *testing.T) {
	m := NewManager()
	if err := m.StartAll(context.Background(), nil); err != nil {
		t.Errorf("StartAll with no servers: %v", err)
	}
}

func TestStartAllAllFail(t *testing.T) {
	m := NewManager()
	err := m.StartAll(context.Background(), map[string]ServerConfig{
		"broken": {}, // invalid: no command, no url
	})
	if err == nil {
		t.Fatal("expected error when every server fails")
	}
	if len(m.ServerNames()) != 0 {
		t.Errorf("no servers should be running, got %v", m.ServerNames())
	}
}

func TestStopAllClears(t *testing.T) {
	m := NewManager()
	m.clients["srv"] = runningClient("srv", "x")

	m.StopAll()
	if len(m.ServerNames()) != 0 {
		t.Errorf("StopAll should clear clients, got %v", m.ServerNames())
	}
	if len(m.Tools()) != 0 {
		t.Error("no tools should remain after StopAll")
	}
}
