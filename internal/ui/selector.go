package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
)

// getTTY opens /dev/tty for direct terminal access, bypassing
// redirections of stdin/stdout.
func getTTY() (*os.File, error) {
	return os.OpenFile("/dev/tty", os.O_RDWR, 0)
}

// SelectModel presents a picker over the given model ids and returns the
// chosen one. The current model is annotated and preselected.
func SelectModel(models []string, current string) (string, error) {
	if len(models) == 0 {
		return "", fmt.Errorf("no models to choose from")
	}

	options := make([]huh.Option[string], 0, len(models))
	for _, m := range models {
		label := m
		if m == current {
			label = m + " (current)"
		}
		options = append(options, huh.NewOption(label, m))
	}

	selected := current
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select a model").
				Options(options...).
				Value(&selected),
		),
	)

	// Run over /dev/tty so the picker works under shell redirections.
	if tty, err := getTTY(); err == nil {
		defer tty.Close()
		form = form.WithInput(tty).WithOutput(tty)
	}

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

// ShowError prints an error message to stderr.
func ShowError(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", DefaultStyles().Error.Render("Error:"), msg)
}
