package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/codewright/codewright/internal/llm"
	"github.com/codewright/codewright/internal/profiles"
	"github.com/codewright/codewright/internal/tools"
)

// AddProviderFlag adds the --provider/-p flag with completion.
func AddProviderFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVarP(dest, "provider", "p", "", "Override provider, optionally with model (e.g., openai:gpt-5-mini)")
	if err := cmd.RegisterFlagCompletionFunc("provider", ProviderFlagCompletion); err != nil {
		panic("failed to register provider completion: " + err.Error())
	}
}

// AddModelFlag adds the --model/-m flag with completion.
func AddModelFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVarP(dest, "model", "m", "", "Override model for the active provider (aliases like 'sonnet' work)")
	if err := cmd.RegisterFlagCompletionFunc("model", ModelFlagCompletion); err != nil {
		panic("failed to register model completion: " + err.Error())
	}
}

// AddProfileFlag adds the --profile flag with completion.
func AddProfileFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVar(dest, "profile", "", "Use a profile (named configuration bundle)")
	if err := cmd.RegisterFlagCompletionFunc("profile", ProfileFlagCompletion); err != nil {
		panic("failed to register profile completion: " + err.Error())
	}
}

// AddToolsFlag adds the --tools flag with completion.
func AddToolsFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVar(dest, "tools", "", "Restrict local tools (comma-separated, or 'all'): "+strings.Join(tools.AllToolNames(), ","))
	if err := cmd.RegisterFlagCompletionFunc("tools", ToolsFlagCompletion); err != nil {
		panic("failed to register tools completion: " + err.Error())
	}
}

// AddYoloFlag adds the --yolo flag for auto-approving all tool operations.
func AddYoloFlag(cmd *cobra.Command, dest *bool) {
	cmd.Flags().BoolVar(dest, "yolo", false, "Auto-approve all tool operations (bypasses every prompt; for CI/container use)")
}

// AddMaxTurnsFlag adds the --max-turns flag.
func AddMaxTurnsFlag(cmd *cobra.Command, dest *int) {
	cmd.Flags().IntVar(dest, "max-turns", 0, "Cap agentic turns for this request (values above the built-in limit are ignored)")
}

// AddSystemFlag adds the --system flag.
func AddSystemFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVar(dest, "system", "", "System instructions (overrides profile; template variables like {{cwd}} expand)")
}

// ProviderFlagCompletion completes --provider values, including
// provider:model forms.
func ProviderFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := loadConfig()
	if err != nil {
		cfg = nil
	}
	return llm.GetProviderCompletions(toComplete, cfg), cobra.ShellCompDirectiveNoFileComp
}

// ModelFlagCompletion completes --model values for the active provider.
func ModelFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	provider := cfg.Provider
	if v, _ := cmd.Flags().GetString("provider"); v != "" {
		provider = strings.SplitN(v, ":", 2)[0]
	}
	var completions []string
	for _, c := range llm.GetProviderCompletions(provider+":"+toComplete, cfg) {
		completions = append(completions, strings.TrimPrefix(c, provider+":"))
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// ProfileFlagCompletion completes --profile values from the registry.
func ProfileFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	registry := profiles.NewRegistry()
	var completions []string
	for _, name := range registry.ListNames() {
		if strings.HasPrefix(name, toComplete) {
			completions = append(completions, name)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// ToolsFlagCompletion completes the comma-separated --tools flag value.
func ToolsFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix := ""
	last := toComplete
	if idx := strings.LastIndex(toComplete, ","); idx >= 0 {
		prefix = toComplete[:idx+1]
		last = toComplete[idx+1:]
	}
	var completions []string
	for _, name := range append([]string{"all"}, tools.AllToolNames()...) {
		if strings.HasPrefix(name, last) {
			completions = append(completions, prefix+name)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}
