package llm

import (
	"strings"
	"testing"
)

func TestToolRegistryOrder(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&namedTool{name: "beta"})
	registry.Register(&namedTool{name: "alpha"})
	registry.Register(&namedTool{name: "gamma"})

	// Registration order, not lexical order.
	if got := strings.Join(registry.Names(), ","); got != "beta,alpha,gamma" {
		t.Errorf("names=%q, want beta,alpha,gamma", got)
	}
	specs := registry.AllSpecs()
	if len(specs) != 3 || specs[0].Name != "beta" {
		t.Errorf("specs=%+v, want three specs starting with beta", specs)
	}
	if registry.Len() != 3 {
		t.Errorf("len=%d, want 3", registry.Len())
	}
}

func TestToolRegistryReplaceKeepsPosition(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&namedTool{name: "alpha"})
	registry.Register(&countingTool{})
	replacement := &namedTool{name: "alpha"}
	registry.Register(replacement)

	if got := strings.Join(registry.Names(), ","); got != "alpha,count_tool" {
		t.Errorf("names=%q, want alpha,count_tool", got)
	}
	tool, ok := registry.Get("alpha")
	if !ok || tool != Tool(replacement) {
		t.Error("Get did not return the replacement tool")
	}
}

func TestToolRegistryUnregister(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&namedTool{name: "alpha"})
	registry.Register(&namedTool{name: "beta"})

	registry.Unregister("alpha")
	if _, ok := registry.Get("alpha"); ok {
		t.Error("alpha still present after Unregister")
	}
	if got := strings.Join(registry.Names(), ","); got != "beta" {
		t.Errorf("names=%q, want beta", got)
	}

	// Unregistering an unknown name is a no-op.
	registry.Unregister("missing")
	if registry.Len() != 1 {
		t.Errorf("len=%d, want 1", registry.Len())
	}
}
