package tools

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/codewright/codewright/internal/config"
)

// Approval modes. "mutating" gates only tools that can change state,
// "always" gates everything including reads, "never" disables prompting.
const (
	ApproveAlways   = "always"
	ApproveMutating = "mutating"
	ApproveNever    = "never"
)

// ToolConfig is the resolved configuration for the local tool system,
// built from the app config plus command-line flags.
type ToolConfig struct {
	Enabled        []string // enabled tool spec names, in registration order
	AllowDirs      []string // pre-approved directories
	ShellAllow     []string // pre-approved command glob patterns
	Approval       string   // always, mutating, or never
	CommandTimeout int      // execute_command default timeout in seconds
	MaxFileBytes   int64    // largest file read_file will open
}

// FromConfig builds a ToolConfig from the application config.
func FromConfig(cfg *config.Config) ToolConfig {
	tc := ToolConfig{
		Approval:       cfg.Tools.Approval,
		CommandTimeout: cfg.Tools.CommandTimeout,
		MaxFileBytes:   cfg.Tools.MaxFileBytes,
		AllowDirs:      cfg.Tools.AllowDirs,
		ShellAllow:     cfg.Tools.ShellAllow,
	}

	if cfg.Tools.Enabled {
		excluded := make(map[string]bool, len(cfg.Tools.Exclude))
		for _, name := range cfg.Tools.Exclude {
			excluded[name] = true
		}
		for _, name := range AllToolNames() {
			if !excluded[name] {
				tc.Enabled = append(tc.Enabled, name)
			}
		}
	}

	switch tc.Approval {
	case ApproveAlways, ApproveMutating, ApproveNever:
	default:
		tc.Approval = ApproveMutating
	}

	return tc
}

// Validate checks the configuration for errors.
func (c *ToolConfig) Validate() []error {
	var errs []error

	for _, name := range c.Enabled {
		if !ValidToolName(name) {
			errs = append(errs, fmt.Errorf("unknown tool: %s", name))
		}
	}

	for _, pattern := range c.ShellAllow {
		if _, err := glob.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("invalid shell pattern %q: %w", pattern, err))
		}
	}

	return errs
}

// IsToolEnabled checks if a tool is enabled.
func (c *ToolConfig) IsToolEnabled(specName string) bool {
	for _, name := range c.Enabled {
		if name == specName {
			return true
		}
	}
	return false
}

// ParseToolsFlag parses the comma-separated --tools flag value.
// Special values "all" and "*" expand to every available tool.
func ParseToolsFlag(value string) []string {
	if value == "" {
		return nil
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "all" || trimmed == "*" {
		return AllToolNames()
	}
	parts := strings.Split(value, ",")
	var tools []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			tools = append(tools, p)
		}
	}
	return tools
}

// OutputLimits bounds tool output size.
type OutputLimits struct {
	MaxLines     int   // max lines for read_file
	MaxBytes     int64 // max bytes per tool output
	MaxResults   int   // max results for search_files
	MaxFileBytes int64 // largest file read_file will open
}

// DefaultOutputLimits returns the default output limits.
func DefaultOutputLimits() OutputLimits {
	return OutputLimits{
		MaxLines:     2000,
		MaxBytes:     50 * 1024,
		MaxResults:   100,
		MaxFileBytes: 512 * 1024,
	}
}
