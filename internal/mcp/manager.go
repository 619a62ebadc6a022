package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/codewright/codewright/internal/llm"
)

// Manager starts the configured MCP servers and contributes their tools
// to a registry. Server failures are logged, not fatal: a broken server
// should not take down the session.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]*Client),
	}
}

// StartAll connects to every configured server. Failures are logged per
// server and the rest keep starting; the returned error is non-nil only
// when every server failed.
func (m *Manager) StartAll(ctx context.Context, servers map[string]ServerConfig) error {
	if len(servers) == 0 {
		return nil
	}

	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	var started int
	for _, name := range names {
		client := NewClient(name, servers[name])
		if err := client.Start(ctx); err != nil {
			slog.Warn("mcp server failed to start", "server", name, "error", err)
			continue
		}
		m.mu.Lock()
		m.clients[name] = client
		m.mu.Unlock()
		started++
		slog.Debug("mcp server started", "server", name, "tools", len(client.Tools()))
	}

	if started == 0 {
		return fmt.Errorf("no MCP servers started (%d configured)", len(servers))
	}
	return nil
}

// StopAll closes every running server connection.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, client := range m.clients {
		if err := client.Stop(); err != nil {
			slog.Warn("mcp server stop failed", "server", name, "error", err)
		}
	}
	m.clients = make(map[string]*Client)
}

// ServerNames returns the names of running servers, sorted.
func (m *Manager) ServerNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tools returns namespaced tool wrappers for every running server,
// ordered by server then tool name.
func (m *Manager) Tools() []*ServerTool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	sort.Strings(names)

	var tools []*ServerTool
	for _, name := range names {
		client := m.clients[name]
		for _, spec := range client.Tools() {
			tools = append(tools, NewServerTool(client, spec))
		}
	}
	return tools
}

// RegisterTools adds every server tool to the registry.
func (m *Manager) RegisterTools(registry *llm.ToolRegistry) {
	for _, tool := range m.Tools() {
		registry.Register(tool)
	}
}
