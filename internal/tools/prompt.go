package tools

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
)

const (
	choiceDeny   = "deny"
	choiceOnce   = "once"
	choiceAlways = "always"
)

// getTTY opens the controlling terminal directly so prompts work even when
// stdin or stdout are redirected.
func getTTY() (*os.File, error) {
	return os.OpenFile("/dev/tty", os.O_RDWR, 0)
}

// runApprovalPrompt asks the user to approve a pending tool action using a
// huh form. Without a terminal it denies and explains why on stderr.
func runApprovalPrompt(req *ApprovalRequest) Decision {
	tty, err := getTTY()
	if err != nil {
		subject := req.Path
		if req.Command != "" {
			subject = truncateCommand(req.Command)
		}
		fmt.Fprintf(os.Stderr, "approval required for %s but no terminal is attached; denying (pre-approve in config or use --yolo)\n", subject)
		return Decision{Outcome: Cancel}
	}
	defer tty.Close()

	var title string
	var alwaysLabel, alwaysScope string

	if req.Command != "" {
		title = fmt.Sprintf("Run command: %s", truncateCommand(req.Command))
		alwaysLabel = fmt.Sprintf("Always allow %q this session", req.Pattern)
		alwaysScope = req.Pattern
	} else {
		action := "read"
		if req.Write {
			action = "write"
		}
		title = fmt.Sprintf("Allow %s access: %s", action, req.Path)
		alwaysLabel = fmt.Sprintf("Always allow %s this session", req.Dir)
		alwaysScope = req.Dir
	}

	var choice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(
					huh.NewOption("Deny", choiceDeny),
					huh.NewOption("Allow once", choiceOnce),
					huh.NewOption(alwaysLabel, choiceAlways),
				).
				Value(&choice),
		),
	).WithShowHelp(false).WithShowErrors(false)

	form = form.WithInput(tty).WithOutput(tty)

	if err := form.Run(); err != nil {
		// Esc or ctrl-c
		return Decision{Outcome: Cancel}
	}

	switch choice {
	case choiceOnce:
		return Decision{Outcome: ProceedOnce}
	case choiceAlways:
		return Decision{Outcome: ProceedAlways, Scope: alwaysScope}
	default:
		return Decision{Outcome: Cancel}
	}
}
