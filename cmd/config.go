package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/codewright/codewright/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show the resolved configuration and where it came from.

Examples:
  codewright config                  # show effective settings
  codewright config init             # write a starter config file
  codewright config path             # print the config file path
  codewright config edit             # open the config in $EDITOR
  codewright config completion zsh   # generate shell completions`,
	Args: cobra.NoArgs,
	RunE: configShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Args:  cobra.NoArgs,
	RunE:  configInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE:  configPrintPath,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $EDITOR",
	Args:  cobra.NoArgs,
	RunE:  configEdit,
}

var configCompletionCmd = &cobra.Command{
	Use:       "completion [bash|zsh|fish|powershell]",
	Short:     "Generate a shell completion script",
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:      configCompletion,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configCompletionCmd)

	rootCmd.AddCommand(configCmd)
}

func configShow(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if config.NeedsSetup() {
		fmt.Println("# No config file (using defaults)")
		fmt.Printf("# Create one with 'codewright config init' at: %s\n\n", path)
	} else {
		fmt.Printf("# %s\n\n", path)
	}

	fmt.Printf("provider: %s\n", cfg.Provider)
	if cfg.Model != "" {
		fmt.Printf("model: %s\n", cfg.Model)
	}
	if cfg.Profile != "" {
		fmt.Printf("profile: %s\n", cfg.Profile)
	}
	fmt.Printf("max_turns: %d\n", cfg.MaxTurns)
	if cfg.MaxOutputTokens > 0 {
		fmt.Printf("max_output_tokens: %d\n", cfg.MaxOutputTokens)
	}
	fmt.Printf("parallel_tool_calls: %t\n", cfg.ParallelToolCalls)

	fmt.Println("\ntools:")
	fmt.Printf("  enabled: %t\n", cfg.Tools.Enabled)
	fmt.Printf("  approval: %s\n", cfg.Tools.Approval)
	fmt.Printf("  command_timeout: %d\n", cfg.Tools.CommandTimeout)
	fmt.Printf("  max_file_bytes: %d\n", cfg.Tools.MaxFileBytes)

	fmt.Println("\nusage:")
	fmt.Printf("  track: %t\n", cfg.Usage.Track)
	if cfg.Usage.Path != "" {
		fmt.Printf("  path: %s\n", cfg.Usage.Path)
	}

	if len(cfg.Providers) > 0 {
		fmt.Println("\nproviders:")
		names := make([]string, 0, len(cfg.Providers))
		for name := range cfg.Providers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p := cfg.Providers[name]
			fmt.Printf("  %s:\n", name)
			if p.Type != "" {
				fmt.Printf("    type: %s\n", p.Type)
			}
			if p.Model != "" {
				fmt.Printf("    model: %s\n", p.Model)
			}
			if p.BaseURL != "" {
				fmt.Printf("    base_url: %s\n", p.BaseURL)
			}
			if p.APIKey != "" {
				fmt.Printf("    api_key: %s\n", maskKey(p.APIKey))
			}
		}
	}

	if len(cfg.MCP) > 0 {
		fmt.Println("\nmcp:")
		names := make([]string, 0, len(cfg.MCP))
		for name := range cfg.MCP {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s := cfg.MCP[name]
			fmt.Printf("  %s:\n", name)
			if s.Command != "" {
				fmt.Printf("    command: %s\n", s.Command)
			}
			if s.URL != "" {
				fmt.Printf("    url: %s\n", s.URL)
			}
		}
	}

	return nil
}

// maskKey hides all but the tail of a credential.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func configInit(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	if config.Exists() {
		return fmt.Errorf("config already exists at %s (edit it with 'codewright config edit')", path)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("Wrote starter config to %s\n", path)
	return nil
}

func configPrintPath(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func configEdit(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if config.NeedsSetup() {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vi"
	}

	c := exec.Command(editor, path)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}

func configCompletion(cmd *cobra.Command, args []string) error {
	switch args[0] {
	case "bash":
		return rootCmd.GenBashCompletion(os.Stdout)
	case "zsh":
		return rootCmd.GenZshCompletion(os.Stdout)
	case "fish":
		return rootCmd.GenFishCompletion(os.Stdout, true)
	case "powershell":
		return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
	}
	return nil
}
