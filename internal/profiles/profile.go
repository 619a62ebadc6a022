// Package profiles provides named configuration bundles: system prompt,
// model preferences, tool selection and shell allowlist, applied before
// command-line flags.
package profiles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is a named configuration bundle loaded from a directory holding
// profile.yaml and an optional system.md.
type Profile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Model preferences (optional)
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`

	// Tool configuration
	Tools ToolSelection `yaml:"tools,omitempty"`

	// Shell allowlist patterns, e.g. "git *"
	Shell ShellSettings `yaml:"shell,omitempty"`

	// Behavior
	MaxTurns int `yaml:"max_turns,omitempty"`

	// System prompt (loaded from system.md)
	SystemPrompt string `yaml:"-"`

	// Source info
	Source     Source `yaml:"-"`
	SourcePath string `yaml:"-"`
}

// Source indicates where a profile was loaded from.
type Source int

const (
	SourceLocal   Source = iota // Project-local (./.codewright/profiles/)
	SourceUser                  // User-global (~/.config/codewright/profiles/)
	SourceBuiltin               // Embedded built-in
)

// SourceName returns a human-readable name for the profile source.
func (s Source) SourceName() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceUser:
		return "user"
	case SourceBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// ToolSelection specifies which tools to enable or disable.
type ToolSelection struct {
	// Enabled is an explicit allow list of tools
	Enabled []string `yaml:"enabled,omitempty"`
	// Disabled is a deny list (all others enabled)
	Disabled []string `yaml:"disabled,omitempty"`
}

// ShellSettings provides execute_command settings.
type ShellSettings struct {
	Allow []string `yaml:"allow,omitempty"`
}

// LoadFromDir loads a profile from a directory containing profile.yaml and
// optionally system.md.
func LoadFromDir(dir string, source Source) (*Profile, error) {
	data, err := os.ReadFile(filepath.Join(dir, "profile.yaml"))
	if err != nil {
		return nil, fmt.Errorf("read profile.yaml: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile.yaml: %w", err)
	}

	if systemData, err := os.ReadFile(filepath.Join(dir, "system.md")); err == nil {
		p.SystemPrompt = string(systemData)
	}

	p.Source = source
	p.SourcePath = dir

	if p.Name == "" {
		p.Name = filepath.Base(dir)
	}

	return &p, nil
}

// LoadFromEmbedded loads a profile from embedded filesystem data.
func LoadFromEmbedded(name string, profileYAML, systemMD []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(profileYAML, &p); err != nil {
		return nil, fmt.Errorf("parse embedded profile.yaml: %w", err)
	}

	p.SystemPrompt = string(systemMD)
	p.Source = SourceBuiltin
	p.SourcePath = "builtin:" + name

	if p.Name == "" {
		p.Name = name
	}

	return &p, nil
}

// HasEnabledList returns true if the profile uses an explicit enabled list.
func (p *Profile) HasEnabledList() bool {
	return len(p.Tools.Enabled) > 0
}

// HasDisabledList returns true if the profile uses a disabled list.
func (p *Profile) HasDisabledList() bool {
	return len(p.Tools.Disabled) > 0
}

// EnabledTools resolves the tool selection against the full tool list.
// An Enabled list wins; a Disabled list subtracts; neither returns nil
// (caller keeps its default).
func (p *Profile) EnabledTools(allTools []string) []string {
	if p.HasEnabledList() {
		return p.Tools.Enabled
	}
	if p.HasDisabledList() {
		disabled := make(map[string]bool)
		for _, t := range p.Tools.Disabled {
			disabled[t] = true
		}
		var enabled []string
		for _, t := range allTools {
			if !disabled[t] {
				enabled = append(enabled, t)
			}
		}
		return enabled
	}
	return nil
}

// String returns a brief description of the profile.
func (p *Profile) String() string {
	if p.Description == "" {
		return p.Name
	}
	return strings.Join([]string{p.Name, "-", p.Description}, " ")
}

// Validate checks that the profile configuration is valid.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.HasEnabledList() && p.HasDisabledList() {
		return fmt.Errorf("cannot specify both tools.enabled and tools.disabled")
	}
	return nil
}
