// Package mcp connects to Model Context Protocol servers and exposes
// their tools to the conversation loop alongside the built-in ones.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerConfig describes one MCP server. Command starts a stdio server;
// URL connects to a streamable HTTP one. Exactly one must be set.
type ServerConfig struct {
	Command string
	Args    []string
	Env     map[string]string
	URL     string
}

// Validate checks that the server configuration is usable.
func (c *ServerConfig) Validate() error {
	if c.Command == "" && c.URL == "" {
		return fmt.Errorf("server needs either command or url")
	}
	if c.Command != "" && c.URL != "" {
		return fmt.Errorf("cannot specify both command and url")
	}
	return nil
}

// ToolSpec describes a tool advertised by an MCP server.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]any
}

// Client wraps one MCP server connection.
type Client struct {
	name   string
	config ServerConfig

	mu      sync.RWMutex
	client  *mcp.Client
	session *mcp.ClientSession
	tools   []ToolSpec
	running bool
}

// NewClient creates a client for the given server configuration.
func NewClient(name string, config ServerConfig) *Client {
	return &Client{
		name:   name,
		config: config,
	}
}

// Name returns the server name from the configuration.
func (c *Client) Name() string {
	return c.name
}

// Start connects to the server, initializes the session and fetches the
// tool list. Starting a running client is a no-op.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	if err := c.config.Validate(); err != nil {
		return fmt.Errorf("server %s: %w", c.name, err)
	}

	c.client = mcp.NewClient(&mcp.Implementation{
		Name:    "codewright",
		Version: "1.0.0",
	}, nil)

	session, err := c.client.Connect(ctx, c.createTransport(ctx), nil)
	if err != nil {
		return fmt.Errorf("connect to MCP server %s: %w", c.name, err)
	}
	c.session = session

	if err := c.refreshTools(ctx); err != nil {
		c.session.Close()
		c.session = nil
		return fmt.Errorf("list tools from %s: %w", c.name, err)
	}

	c.running = true
	return nil
}

// createTransport builds the transport for this server's configuration.
func (c *Client) createTransport(ctx context.Context) mcp.Transport {
	if c.config.URL != "" {
		return &mcp.StreamableClientTransport{Endpoint: c.config.URL}
	}

	cmd := exec.CommandContext(ctx, c.config.Command, c.config.Args...)
	if len(c.config.Env) > 0 {
		// Start from the parent environment so PATH and friends survive;
		// appended entries win on conflict.
		env := os.Environ()
		keys := make([]string, 0, len(c.config.Env))
		for k := range c.config.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			env = append(env, fmt.Sprintf("%s=%s", k, c.config.Env[k]))
		}
		cmd.Env = env
	}
	return &mcp.CommandTransport{Command: cmd}
}

// Stop closes the server connection.
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	var err error
	if c.session != nil {
		err = c.session.Close()
		c.session = nil
	}
	c.running = false
	c.tools = nil
	return err
}

// IsRunning reports whether the client is connected.
func (c *Client) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Tools returns the tools advertised by this server.
func (c *Client) Tools() []ToolSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tools
}

func (c *Client) refreshTools(ctx context.Context) error {
	result, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return err
	}

	c.tools = make([]ToolSpec, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema := make(map[string]any)
		if t.InputSchema != nil {
			if m, ok := t.InputSchema.(map[string]any); ok {
				schema = m
			}
		}
		c.tools = append(c.tools, ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Schema:      schema,
		})
	}
	return nil
}

// CallTool invokes a tool on the server. A tool-level failure (IsError in
// the MCP result) is returned as toolErr with the server's message;
// transport problems come back as err.
func (c *Client) CallTool(ctx context.Context, name string, args json.RawMessage) (content string, toolErr string, err error) {
	c.mu.RLock()
	session := c.session
	running := c.running
	c.mu.RUnlock()

	if !running || session == nil {
		return "", "", fmt.Errorf("MCP server %s is not running", c.name)
	}

	var arguments map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &arguments); err != nil {
			return "", "", fmt.Errorf("invalid tool arguments: %w", err)
		}
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: arguments,
	})
	if err != nil {
		return "", "", fmt.Errorf("call tool %s: %w", name, err)
	}

	if result.IsError {
		return "", formatContent(result.Content), nil
	}
	return formatContent(result.Content), "", nil
}

// formatContent flattens MCP content parts to a string.
func formatContent(content []mcp.Content) string {
	var result string
	for _, c := range content {
		switch v := c.(type) {
		case *mcp.TextContent:
			result += v.Text
		default:
			// Non-text content is passed through as JSON.
			if data, err := json.Marshal(c); err == nil {
				result += string(data)
			}
		}
	}
	return result
}
