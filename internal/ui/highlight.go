package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/x/ansi"
)

// Highlighter applies syntax highlighting to single lines, used for
// diff display where lines carry their own backgrounds.
type Highlighter struct {
	lexer chroma.Lexer
	style *chroma.Style
}

// NewHighlighter creates a highlighter for the given file path.
// Returns nil if the language is not recognized; a nil Highlighter
// passes lines through unchanged.
func NewHighlighter(filePath string) *Highlighter {
	lexer := lexers.Match(filePath)
	if lexer == nil {
		return nil
	}
	lexer = chroma.Coalesce(lexer)

	// monokai has good contrast on dark backgrounds
	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	return &Highlighter{
		lexer: lexer,
		style: style,
	}
}

// HighlightLine applies syntax highlighting without a background color.
func (h *Highlighter) HighlightLine(line string) string {
	if h == nil {
		return line
	}

	iterator, err := h.lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}

	var buf strings.Builder
	formatter := &tokenFormatter{style: h.style}
	if err := formatter.Format(&buf, iterator); err != nil {
		return line
	}

	return buf.String()
}

// HighlightLineWithBg applies syntax highlighting with a true-color
// background given as an RGB triple.
func (h *Highlighter) HighlightLineWithBg(line string, bg [3]int) string {
	if h == nil {
		return line
	}

	iterator, err := h.lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}

	var buf strings.Builder
	formatter := &tokenFormatter{style: h.style, bg: &bg}
	if err := formatter.Format(&buf, iterator); err != nil {
		return line
	}

	return buf.String()
}

// tokenFormatter writes chroma tokens as true-color ANSI, with an
// optional constant background.
type tokenFormatter struct {
	style *chroma.Style
	bg    *[3]int
}

func (f *tokenFormatter) Format(w io.Writer, iterator chroma.Iterator) error {
	for token := iterator(); token != chroma.EOF; token = iterator() {
		// Lexers may emit trailing newline tokens which would create
		// phantom lines when the caller adds its own newline.
		value := strings.TrimRight(token.Value, "\n")
		if value == "" {
			continue
		}

		entry := f.style.Get(token.Type)

		var codes []string
		if f.bg != nil {
			codes = append(codes, fmt.Sprintf("48;2;%d;%d;%d", f.bg[0], f.bg[1], f.bg[2]))
		}
		if entry.Colour.IsSet() {
			codes = append(codes, fmt.Sprintf("38;2;%d;%d;%d", entry.Colour.Red(), entry.Colour.Green(), entry.Colour.Blue()))
		}
		if entry.Bold == chroma.Yes {
			codes = append(codes, "1")
		}
		if entry.Italic == chroma.Yes {
			codes = append(codes, "3")
		}
		if entry.Underline == chroma.Yes {
			codes = append(codes, "4")
		}

		if len(codes) > 0 {
			fmt.Fprintf(w, "\x1b[%sm%s\x1b[0m", strings.Join(codes, ";"), value)
		} else {
			fmt.Fprint(w, value)
		}
	}
	return nil
}

// StripANSI removes all ANSI escape codes from a string.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// ANSILen returns the display width of a string, ignoring ANSI codes.
func ANSILen(s string) int {
	return ansi.StringWidth(s)
}

// PadRight pads s with spaces to the given display width, ANSI-aware.
func PadRight(s string, width int) string {
	gap := width - ANSILen(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}
