// Package input gathers prompt context from files, globs, stdin and the
// clipboard for the ask and chat commands.
package input

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/term"

	"github.com/codewright/codewright/internal/clipboard"
)

// FileContent is one piece of context: a file, a glob match, the
// clipboard, or a line range of a file.
type FileContent struct {
	Path    string
	Content string
}

// ReadFiles resolves each spec and reads its content. Specs can be plain
// paths, glob patterns (** supported), "clipboard", or paths with a line
// range suffix like "main.go:11-22".
func ReadFiles(specs []string) ([]FileContent, error) {
	var result []FileContent

	for _, raw := range specs {
		if strings.EqualFold(raw, "clipboard") {
			content, err := clipboard.ReadText()
			if err != nil {
				return nil, fmt.Errorf("read clipboard: %w", err)
			}
			result = append(result, FileContent{Path: "clipboard", Content: content})
			continue
		}

		spec, err := ParseFileSpec(raw)
		if err != nil {
			return nil, err
		}

		matches, err := resolvePattern(expandHome(spec.Path))
		if err != nil {
			return nil, err
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, fmt.Errorf("stat %q: %w", match, err)
			}
			if info.IsDir() {
				continue
			}

			data, err := os.ReadFile(match)
			if err != nil {
				return nil, fmt.Errorf("read %q: %w", match, err)
			}

			content := string(data)
			displayPath := match
			if spec.HasRegion {
				content = ExtractLines(content, spec.StartLine, spec.EndLine)
				region := spec
				region.Path = match
				displayPath = region.FormatSpecPath()
			}
			result = append(result, FileContent{Path: displayPath, Content: content})
		}
	}

	return result, nil
}

// resolvePattern expands a glob pattern to matching paths. A pattern
// without wildcards resolves to itself so missing files still error at
// read time with a useful message.
func resolvePattern(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{pattern}, nil
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	return matches, nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// HasStdin reports whether stdin carries piped data.
func HasStdin() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode()&os.ModeCharDevice) == 0 || fi.Size() > 0
}

// ReadStdin reads piped stdin content. Returns empty when stdin is a
// terminal.
func ReadStdin() (string, error) {
	if !HasStdin() || term.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// FormatContext renders files and stdin with delimiters that survive
// inside a prompt without colliding with file content.
func FormatContext(files []FileContent, stdin string) string {
	if len(files) == 0 && stdin == "" {
		return ""
	}

	var sb strings.Builder
	for _, f := range files {
		fmt.Fprintf(&sb, "<<<<< FILE: %s >>>>>\n", f.Path)
		sb.WriteString(f.Content)
		if !strings.HasSuffix(f.Content, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("<<<<< END FILE >>>>>\n")
	}
	if stdin != "" {
		sb.WriteString("<<<<< STDIN >>>>>\n")
		sb.WriteString(stdin)
		if !strings.HasSuffix(stdin, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("<<<<< END STDIN >>>>>\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// ComposePrompt joins the user's question with any gathered context.
func ComposePrompt(question string, files []FileContent, stdin string) string {
	context := FormatContext(files, stdin)
	switch {
	case context == "":
		return question
	case question == "":
		return context
	default:
		return question + "\n\n" + context
	}
}
