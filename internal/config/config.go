package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Provider types. A provider entry's type is normally inferred from its
// name; custom-named entries either set type explicitly or default to
// openai-compat.
const (
	ProviderTypeAnthropic    = "anthropic"
	ProviderTypeOpenAI       = "openai"
	ProviderTypeGemini       = "gemini"
	ProviderTypeOllama       = "ollama"
	ProviderTypeOpenAICompat = "openai-compat"
)

// DefaultOllamaURL is the OpenAI-compatible endpoint of a local Ollama.
const DefaultOllamaURL = "http://localhost:11434/v1"

type Config struct {
	Provider          string                     `mapstructure:"provider"`
	Model             string                     `mapstructure:"model"`
	Profile           string                     `mapstructure:"profile"`
	MaxTurns          int                        `mapstructure:"max_turns"`
	MaxOutputTokens   int                        `mapstructure:"max_output_tokens"`
	Temperature       float32                    `mapstructure:"temperature"`
	ParallelToolCalls bool                       `mapstructure:"parallel_tool_calls"`
	Providers         map[string]ProviderConfig  `mapstructure:"providers"`
	Tools             ToolsConfig                `mapstructure:"tools"`
	Usage             UsageConfig                `mapstructure:"usage"`
	Theme             ThemeConfig                `mapstructure:"theme"`
	MCP               map[string]MCPServerConfig `mapstructure:"mcp"`
}

// ProviderConfig describes one entry in the providers map.
type ProviderConfig struct {
	Type    string            `mapstructure:"type"`
	APIKey  string            `mapstructure:"api_key"`
	BaseURL string            `mapstructure:"base_url"`
	Model   string            `mapstructure:"model"`
	Models  []string          `mapstructure:"models"` // for tab-completion
	Headers map[string]string `mapstructure:"headers"`
}

// ToolsConfig configures the tool layer.
type ToolsConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Approval       string   `mapstructure:"approval"`        // "always", "mutating", or "never"
	CommandTimeout int      `mapstructure:"command_timeout"` // seconds, for execute_command
	MaxFileBytes   int64    `mapstructure:"max_file_bytes"`  // read_file cap
	Exclude        []string `mapstructure:"exclude"`         // tool names to disable
	AllowDirs      []string `mapstructure:"allow_dirs"`      // pre-approved directories
	ShellAllow     []string `mapstructure:"shell_allow"`     // pre-approved command patterns, e.g. "git *"
}

// UsageConfig configures the local usage ledger.
type UsageConfig struct {
	Track bool   `mapstructure:"track"`
	Path  string `mapstructure:"path"` // override default db location
}

// ThemeConfig allows customization of UI colors.
// Colors can be ANSI color numbers (0-255) or hex codes (#RRGGBB)
type ThemeConfig struct {
	Primary   string `mapstructure:"primary"`   // main accent (commands, highlights)
	Secondary string `mapstructure:"secondary"` // secondary accent (headers, borders)
	Success   string `mapstructure:"success"`   // success states
	Error     string `mapstructure:"error"`     // error states
	Warning   string `mapstructure:"warning"`   // warnings
	Muted     string `mapstructure:"muted"`     // dimmed text
	Text      string `mapstructure:"text"`      // primary text
	Spinner   string `mapstructure:"spinner"`   // loading spinner
}

// MCPServerConfig describes one MCP server. Command starts a stdio
// server; URL connects to a streamable HTTP one.
type MCPServerConfig struct {
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
	URL     string            `mapstructure:"url"`
}

func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath(".")

	// Set defaults
	viper.SetDefault("provider", "anthropic")
	viper.SetDefault("max_turns", 10)
	viper.SetDefault("parallel_tool_calls", true)
	viper.SetDefault("tools.enabled", true)
	viper.SetDefault("tools.approval", "mutating")
	viper.SetDefault("tools.command_timeout", 30)
	viper.SetDefault("tools.max_file_bytes", 512*1024)
	viper.SetDefault("usage.track", true)

	// Read config file (optional - won't error if missing)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// ApplyOverrides applies provider and model overrides to the config.
// If provider is non-empty, it overrides the global provider.
// If model is non-empty, it overrides the model for the active provider.
func (c *Config) ApplyOverrides(provider, model string) {
	if provider != "" {
		c.Provider = provider
	}
	if model != "" {
		if c.Providers == nil {
			c.Providers = make(map[string]ProviderConfig)
		}
		entry := c.Providers[c.Provider]
		entry.Model = model
		c.Providers[c.Provider] = entry
	}
}

// EffectiveModel returns the configured model for the named provider:
// the provider entry's model if set, otherwise the global one. Empty
// when neither is configured.
func (c *Config) EffectiveModel(provider string) string {
	if entry, ok := c.Providers[provider]; ok && entry.Model != "" {
		return entry.Model
	}
	return c.Model
}

// InferProviderType determines the provider type for a config entry.
// An explicit type always wins; otherwise well-known names map to their
// type and anything else is treated as an OpenAI-compatible server.
func InferProviderType(name, explicit string) string {
	if explicit != "" {
		return explicit
	}
	switch name {
	case ProviderTypeAnthropic, ProviderTypeOpenAI, ProviderTypeGemini,
		ProviderTypeOllama, ProviderTypeOpenAICompat:
		return name
	case "claude":
		return ProviderTypeAnthropic
	case "google":
		return ProviderTypeGemini
	case "lmstudio", "llamacpp", "vllm":
		return ProviderTypeOpenAICompat
	}
	return ProviderTypeOpenAICompat
}

// ResolveCredential resolves the API key for a provider entry, checking
// the config value (with $VAR expansion) and then the conventional
// environment variable. The returned source names where the key came
// from ("config", "env", or "none").
func (c *ProviderConfig) ResolveCredential(providerType string) (string, string, error) {
	if key := expandEnv(c.APIKey); key != "" {
		if key != c.APIKey {
			return key, "env", nil
		}
		return key, "config", nil
	}

	envName := credentialEnvVar(providerType)
	if envName != "" {
		if key := os.Getenv(envName); key != "" {
			return key, "env", nil
		}
	}
	if providerType == ProviderTypeGemini {
		if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
			return key, "env", nil
		}
	}

	if credentialRequired(providerType) {
		return "", "", fmt.Errorf("API key not configured. Set %s or add api_key to config", envName)
	}
	return "", "none", nil
}

func credentialEnvVar(providerType string) string {
	switch providerType {
	case ProviderTypeAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderTypeOpenAI:
		return "OPENAI_API_KEY"
	case ProviderTypeGemini:
		return "GEMINI_API_KEY"
	case ProviderTypeOllama:
		return "OLLAMA_API_KEY"
	}
	return ""
}

// credentialRequired reports whether a provider type cannot work without
// an API key. Local and custom servers commonly ignore keys.
func credentialRequired(providerType string) bool {
	switch providerType {
	case ProviderTypeAnthropic, ProviderTypeOpenAI, ProviderTypeGemini:
		return true
	}
	return false
}

// expandEnv expands ${VAR} or $VAR in a string
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

// GetConfigDir returns the XDG config directory for codewright.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "codewright"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "codewright"), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// GetProfilesDir returns the user profiles directory.
func GetProfilesDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "profiles"), nil
}

// GetDataDir returns the XDG data directory for codewright.
// Uses $XDG_DATA_HOME if set, otherwise ~/.local/share
func GetDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "codewright")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "codewright-data") // fallback
	}
	return filepath.Join(homeDir, ".local", "share", "codewright")
}

// Exists returns true if a config file exists
func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// NeedsSetup returns true if config file doesn't exist
func NeedsSetup() bool {
	return !Exists()
}

// Save writes a starter config to disk.
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	model := cfg.EffectiveModel(cfg.Provider)
	content := fmt.Sprintf(`provider: %s
model: %s

# Conversation turn cap per request. Values above 10 are ignored.
max_turns: %d

tools:
  enabled: %t
  # When to ask before running a tool: always, mutating, or never
  approval: %s
  # Seconds before execute_command is cancelled
  command_timeout: %d

usage:
  # Record per-request token usage in a local database
  track: %t

providers:
  anthropic:
    # api_key: ${ANTHROPIC_API_KEY}
  openai:
    # api_key: ${OPENAI_API_KEY}
  gemini:
    # api_key: ${GEMINI_API_KEY}
  ollama:
    # base_url: %s
`, cfg.Provider, model, cfg.MaxTurns, cfg.Tools.Enabled, cfg.Tools.Approval,
		cfg.Tools.CommandTimeout, cfg.Usage.Track, DefaultOllamaURL)

	return os.WriteFile(path, []byte(content), 0600)
}
