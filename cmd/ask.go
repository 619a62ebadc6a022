package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codewright/codewright/internal/input"
	"github.com/codewright/codewright/internal/llm"
	"github.com/codewright/codewright/internal/ui"
)

var (
	askFlags runtimeFlags
	askFiles []string
	askCode  bool
	askPlain bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question and stream the answer",
	Long: `Ask a question and stream the answer. The model can read and edit files,
search the project and run commands; mutating operations prompt for
approval unless --yolo is set.

Examples:
  codewright ask "What does the retry logic in client.go do?"
  codewright ask "Add a --verbose flag to the CLI" --yolo
  codewright ask -f main.go "Explain this code"
  codewright ask -f main.go:10-50 "Explain this function"
  codewright ask -f clipboard "What is this?"
  codewright ask --code "Write a bash one-liner to find large files"
  cat error.log | codewright ask "What went wrong?"

Line range syntax for files:
  main.go       - Include entire file
  main.go:11-22 - Include only lines 11-22
  main.go:11-   - Include lines 11 to end of file
  main.go:-22   - Include lines 1-22`,
	Args: cobra.MinimumNArgs(0),
	RunE: runAsk,
}

func init() {
	AddProviderFlag(askCmd, &askFlags.Provider)
	AddModelFlag(askCmd, &askFlags.Model)
	AddProfileFlag(askCmd, &askFlags.Profile)
	AddToolsFlag(askCmd, &askFlags.Tools)
	AddYoloFlag(askCmd, &askFlags.Yolo)
	AddMaxTurnsFlag(askCmd, &askFlags.MaxTurns)
	AddSystemFlag(askCmd, &askFlags.System)

	askCmd.Flags().StringArrayVarP(&askFiles, "file", "f", nil, "File(s) to include as context (globs, line ranges like file.go:10-20, 'clipboard')")
	askCmd.Flags().BoolVar(&askCode, "code", false, "Print only the answer's fenced code blocks")
	askCmd.Flags().BoolVar(&askPlain, "plain", false, "Stream plain text without markdown rendering")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	files, err := input.ReadFiles(askFiles)
	if err != nil {
		return err
	}
	stdin, err := input.ReadStdin()
	if err != nil {
		return err
	}

	prompt := input.ComposePrompt(question, files, stdin)
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("question required (pass it as an argument, with --file, or on stdin)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := buildRuntime(ctx, askFlags)
	if err != nil {
		return err
	}
	defer r.Close()

	mode := modeMarkdown
	switch {
	case askCode:
		mode = modeQuiet
	case askPlain || !ui.IsTTY(os.Stdout):
		mode = modePlain
	}

	req := r.buildRequest([]llm.Message{llm.UserText(prompt)})
	reply, streamErr := streamExchange(ctx, r, req, mode)

	// Record whatever was consumed even when the stream was cancelled;
	// the parent context is dead by then, so use a fresh one.
	r.finishExchange(context.Background(), reply)

	if streamErr != nil {
		if errors.Is(streamErr, context.Canceled) {
			return nil
		}
		return streamErr
	}

	if askCode {
		if code := ui.CodeOnly(reply.Content); code != "" {
			fmt.Println(code)
		}
	}

	if showStats {
		r.Stats.Finalize()
		fmt.Fprintln(os.Stderr, r.Stats.Render())
	}
	return nil
}
