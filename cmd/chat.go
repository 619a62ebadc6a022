package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/codewright/codewright/internal/clipboard"
	"github.com/codewright/codewright/internal/config"
	"github.com/codewright/codewright/internal/llm"
	"github.com/codewright/codewright/internal/ui"
)

var chatFlags runtimeFlags

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session. Conversation history carries across
messages; Ctrl-C cancels the in-flight exchange without leaving.

Slash commands:
  /help    Show available commands
  /model   Pick a model
  /tools   List enabled tools
  /usage   Session token and cost totals
  /copy    Copy the last code block to the clipboard
  /clear   Reset the conversation
  /quit    Leave`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	AddProviderFlag(chatCmd, &chatFlags.Provider)
	AddModelFlag(chatCmd, &chatFlags.Model)
	AddProfileFlag(chatCmd, &chatFlags.Profile)
	AddToolsFlag(chatCmd, &chatFlags.Tools)
	AddYoloFlag(chatCmd, &chatFlags.Yolo)
	AddMaxTurnsFlag(chatCmd, &chatFlags.MaxTurns)
	AddSystemFlag(chatCmd, &chatFlags.System)

	rootCmd.AddCommand(chatCmd)
}

var chatCommands = []string{"/help", "/model", "/tools", "/usage", "/copy", "/clear", "/quit"}

// chatSession holds the REPL state for one chat run.
type chatSession struct {
	r       *runtime
	history []llm.Message
	last    string // last assistant answer, for /copy
	mode    outputMode
}

func runChat(cmd *cobra.Command, args []string) error {
	r, err := buildRuntime(context.Background(), chatFlags)
	if err != nil {
		return err
	}
	defer r.Close()

	session := &chatSession{r: r, mode: modeMarkdown}
	if !ui.IsTTY(os.Stdout) {
		session.mode = modePlain
	}

	historyFile := filepath.Join(config.GetDataDir(), "chat_history")
	_ = os.MkdirAll(filepath.Dir(historyFile), 0o755)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[34m❯\033[0m ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("set up readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("codewright %s · %s via %s\n", Version, r.Model, r.Provider.Name())
	fmt.Println(r.Styles.Muted.Render("Type /help for commands, /quit to leave."))
	fmt.Println()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				fmt.Println("Goodbye!")
				return nil
			}
			continue
		}
		if err != nil { // io.EOF
			fmt.Println("Goodbye!")
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := session.handleCommand(line); quit {
				return nil
			}
			continue
		}
		if line == "exit" || line == "quit" {
			fmt.Println("Goodbye!")
			return nil
		}

		session.exchange(line)
		fmt.Println()
	}
}

// exchange runs one message through the engine. A signal context per
// exchange means Ctrl-C aborts the stream but keeps the REPL alive.
func (s *chatSession) exchange(line string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messages := append(slices.Clone(s.history), llm.UserText(line))
	req := s.r.buildRequest(messages)

	reply, err := streamExchange(ctx, s.r, req, s.mode)
	s.r.finishExchange(context.Background(), reply)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, s.r.Styles.Muted.Render("Cancelled."))
		} else {
			ui.ShowError(err.Error())
		}
		// The failed exchange leaves no partial history behind; recall
		// the line with up-arrow to retry.
		return
	}

	if reply.Messages != nil {
		s.history = reply.Messages
	}
	s.last = reply.Content
}

func (s *chatSession) handleCommand(line string) (quit bool) {
	parts := strings.Fields(line)
	switch parts[0] {
	case "/help":
		s.printHelp()

	case "/model":
		s.pickModel()

	case "/tools":
		names := s.r.Engine.Tools().Names()
		if len(names) == 0 {
			fmt.Println("No tools enabled.")
			break
		}
		fmt.Println("Enabled tools:")
		for _, name := range names {
			fmt.Println("  " + name)
		}

	case "/usage":
		fmt.Println(s.r.Stats.Render())

	case "/copy":
		s.copyLastCode()

	case "/clear":
		s.history = nil
		s.last = ""
		fmt.Println("Conversation cleared.")

	case "/quit", "/exit":
		fmt.Println("Goodbye!")
		return true

	default:
		s.suggestCommand(parts[0])
	}
	fmt.Println()
	return false
}

func (s *chatSession) printHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  /help    Show this help message")
	fmt.Println("  /model   Pick a model for this session")
	fmt.Println("  /tools   List enabled tools")
	fmt.Println("  /usage   Session token and cost totals")
	fmt.Println("  /copy    Copy the last code block to the clipboard")
	fmt.Println("  /clear   Reset the conversation")
	fmt.Println("  /quit    Leave (also: exit, Ctrl-D)")
}

// pickModel shows the curated models for the active provider plus the
// current model when it is not on the list.
func (s *chatSession) pickModel() {
	cfg := s.r.Config
	providerType := config.InferProviderType(cfg.Provider, cfg.Providers[cfg.Provider].Type)

	models := slices.Clone(llm.ProviderModels[providerType])
	if !slices.Contains(models, s.r.Model) {
		models = append([]string{s.r.Model}, models...)
	}

	picked, err := ui.SelectModel(models, s.r.Model)
	if err != nil {
		fmt.Println("Model unchanged.")
		return
	}
	s.r.Model = picked
	fmt.Printf("Model set to %s\n", picked)
}

func (s *chatSession) copyLastCode() {
	if s.last == "" {
		fmt.Println("Nothing to copy yet.")
		return
	}

	text := s.last
	block, hasBlock := ui.LastCodeBlock(s.last)
	if hasBlock {
		text = block.Code
	}

	if err := clipboard.CopyText(text); err != nil {
		// No clipboard utility; print so the text is still reachable.
		fmt.Println(text)
		fmt.Fprintln(os.Stderr, s.r.Styles.Muted.Render("clipboard unavailable, printed instead: "+err.Error()))
		return
	}
	if hasBlock {
		fmt.Println("Copied last code block to clipboard.")
	} else {
		fmt.Println("No code block in the last answer; copied all of it.")
	}
}

func (s *chatSession) suggestCommand(input string) {
	matches := fuzzy.Find(input, chatCommands)
	if len(matches) > 0 {
		fmt.Printf("Unknown command: %s (did you mean %s?)\n", input, chatCommands[matches[0].Index])
		return
	}
	fmt.Printf("Unknown command: %s\n", input)
	fmt.Println("Type /help for available commands.")
}
