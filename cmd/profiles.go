package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codewright/codewright/internal/profiles"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List available profiles",
	Long: `List available profiles (named configuration bundles combining a system
prompt, tool selection and model preferences).

Profiles are discovered, first match wins, from:
  ./.codewright/profiles/           project-local
  ~/.config/codewright/profiles/    user
  built-in                          default, reviewer, planner

Select one with --profile, or set profile in your config.`,
	Args: cobra.NoArgs,
	RunE: runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	active := cfg.Profile
	if active == "" {
		active = "default"
	}

	registry := profiles.NewRegistry()
	list := registry.List()
	if len(list) == 0 {
		fmt.Println("No profiles found.")
		return nil
	}

	fmt.Printf("Available profiles (%d):\n\n", len(list))

	lastSource := profiles.Source(-1)
	for _, p := range list {
		if p.Source != lastSource {
			if lastSource != -1 {
				fmt.Println()
			}
			fmt.Printf("  [%s]\n", p.Source.SourceName())
			lastSource = p.Source
		}

		marker := "  "
		if p.Name == active {
			marker = "* "
		}
		line := fmt.Sprintf("  %s%s", marker, p.Name)
		if p.Description != "" {
			line += " - " + p.Description
		}
		fmt.Println(line)

		var details []string
		if p.Provider != "" {
			details = append(details, "provider: "+p.Provider)
		}
		if p.Model != "" {
			details = append(details, "model: "+p.Model)
		}
		if len(details) > 0 {
			fmt.Printf("      (%s)\n", strings.Join(details, ", "))
		}
	}

	fmt.Println()
	fmt.Printf("* active (from config: profile: %s)\n", active)
	return nil
}
