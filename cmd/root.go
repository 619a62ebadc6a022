package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/codewright/codewright/internal/config"
	"github.com/codewright/codewright/internal/update"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	rootDebug bool
	showStats bool
)

var rootCmd = &cobra.Command{
	Use:   "codewright",
	Short: "AI coding assistant for the terminal",
	Long: `codewright is an AI coding assistant that runs in your terminal. It can
answer questions, read and edit files, search your project and run
commands, asking for approval before anything destructive.

Examples:
  codewright ask "explain the error handling in main.go"
  codewright ask "add a --verbose flag" --yolo
  codewright chat                       # interactive session
  codewright models                     # curated models with pricing
  codewright usage --days 30            # local spend summary

  cat build.log | codewright ask "why did the build fail?"`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging(rootDebug)
	},
}

func init() {
	update.Setup(rootCmd, Version)
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Log request/response summaries to stderr")
	rootCmd.PersistentFlags().BoolVar(&showStats, "stats", false, "Show session statistics (time, tokens, cost, tool calls)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initLogging routes slog to stderr. User-facing output never goes
// through the logger; it carries only diagnostics.
func initLogging(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig loads the application config, failing with a readable error
// rather than a stack of wrapped causes.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
