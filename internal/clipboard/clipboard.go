// Package clipboard reads and writes the system clipboard through the
// platform's paste utilities: pbcopy/pbpaste on macOS, wl-copy/wl-paste
// or xclip on Linux.
package clipboard

import (
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ReadText reads text content from the system clipboard.
func ReadText() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return runReader(exec.Command("pbpaste"))
	case "linux":
		return readTextLinux()
	default:
		return "", fmt.Errorf("clipboard read not supported on %s", runtime.GOOS)
	}
}

func readTextLinux() (string, error) {
	// Wayland first, then X11.
	if _, err := exec.LookPath("wl-paste"); err == nil {
		if text, err := runReader(exec.Command("wl-paste", "--no-newline")); err == nil {
			return text, nil
		}
	}
	if _, err := exec.LookPath("xclip"); err == nil {
		if text, err := runReader(exec.Command("xclip", "-selection", "clipboard", "-o")); err == nil {
			return text, nil
		}
	}
	return "", fmt.Errorf("no clipboard utility found (install wl-paste or xclip)")
}

// CopyText copies text to the system clipboard.
func CopyText(text string) error {
	switch runtime.GOOS {
	case "darwin":
		return runWriter(exec.Command("pbcopy"), text)
	case "linux":
		return copyTextLinux(text)
	default:
		return fmt.Errorf("clipboard not supported on %s", runtime.GOOS)
	}
}

func copyTextLinux(text string) error {
	if _, err := exec.LookPath("wl-copy"); err == nil {
		return runWriter(exec.Command("wl-copy"), text)
	}
	if _, err := exec.LookPath("xclip"); err == nil {
		return runWriter(exec.Command("xclip", "-selection", "clipboard"), text)
	}
	return fmt.Errorf("no clipboard utility found (install wl-copy or xclip)")
}

func runReader(cmd *exec.Cmd) (string, error) {
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return out.String(), nil
}

func runWriter(cmd *exec.Cmd, text string) error {
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
