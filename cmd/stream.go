package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/codewright/codewright/internal/llm"
	"github.com/codewright/codewright/internal/ui"
)

// outputMode selects how an exchange is rendered while it streams.
type outputMode int

const (
	// modeMarkdown streams raw text, then erases the final answer and
	// re-renders it as markdown. Only useful on a TTY.
	modeMarkdown outputMode = iota
	// modePlain streams raw text to stdout; progress goes to stderr.
	modePlain
	// modeQuiet collects text without printing it; progress goes to
	// stderr. Used when the caller post-processes the answer.
	modeQuiet
)

// streamPrinter writes streamed text to a terminal while tracking how
// many rows the text since the last boundary spans, so that block can be
// erased and re-rendered. Row math assumes the terminal wraps at width.
type streamPrinter struct {
	out     io.Writer
	width   int
	col     int // cursor column within the current row
	segRows int // completed row advances since the segment started
	segText strings.Builder
}

func newStreamPrinter(out io.Writer, width int) *streamPrinter {
	if width <= 0 {
		width = 80
	}
	return &streamPrinter{out: out, width: width}
}

// WriteText prints raw model text, extending the current segment.
func (p *streamPrinter) WriteText(s string) {
	if s == "" {
		return
	}
	p.segText.WriteString(s)
	fmt.Fprint(p.out, s)
	for _, r := range s {
		if r == '\n' {
			p.segRows++
			p.col = 0
			continue
		}
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if p.col+w > p.width {
			p.segRows++
			p.col = w
		} else {
			p.col += w
		}
	}
}

// WriteLine prints a standalone line (tool progress, a diff block) and
// starts a new segment. Earlier text stays on screen permanently.
func (p *streamPrinter) WriteLine(line string) {
	if p.col > 0 {
		fmt.Fprintln(p.out)
	}
	fmt.Fprintln(p.out, line)
	p.ResetSegment()
}

// SegmentText returns the raw text of the current segment.
func (p *streamPrinter) SegmentText() string {
	return p.segText.String()
}

// SegmentSpan returns the number of terminal rows the current segment
// occupies. Zero when the segment is empty.
func (p *streamPrinter) SegmentSpan() int {
	if p.segText.Len() == 0 {
		return 0
	}
	span := p.segRows
	if p.col > 0 {
		span++
	}
	if span == 0 {
		span = 1
	}
	return span
}

// EraseSegment moves the cursor to the segment start and clears to the
// end of the screen. The segment text is kept for re-rendering.
func (p *streamPrinter) EraseSegment() {
	if p.segText.Len() == 0 {
		return
	}
	fmt.Fprint(p.out, "\r")
	if p.segRows > 0 {
		fmt.Fprintf(p.out, "\x1b[%dA", p.segRows)
	}
	fmt.Fprint(p.out, "\x1b[0J")
	p.col = 0
	p.segRows = 0
}

// ResetSegment starts a new segment without touching the screen.
func (p *streamPrinter) ResetSegment() {
	p.segText.Reset()
	p.segRows = 0
	p.col = 0
}

// EnsureLineStart moves to a fresh line if the cursor is mid-row.
func (p *streamPrinter) EnsureLineStart() {
	if p.col > 0 {
		fmt.Fprintln(p.out)
		p.segRows++
		p.col = 0
	}
}

func terminalHeight() int {
	_, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || height <= 0 {
		return 24
	}
	return height
}

// formatToolLine renders one finished tool call: a colored bullet, the
// tool name and its argument preview, plus a failure excerpt.
func formatToolLine(styles *ui.Styles, name, info string, success bool, output string) string {
	bullet := styles.Success.Render("●")
	if !success {
		bullet = styles.Error.Render("●")
	}
	line := bullet + " " + name + styles.Muted.Render(info)
	if !success {
		if excerpt := firstLine(output); excerpt != "" {
			line += " " + styles.Error.Render(ui.Truncate(excerpt, 120))
		}
	}
	return line
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return s
}

// streamExchange drives one exchange through the engine and renders its
// event feed. It returns the engine's reply; on transport failure the
// reply still carries usage accumulated before the error.
func streamExchange(ctx context.Context, r *runtime, req llm.Request, mode outputMode) (*llm.Reply, error) {
	stream, err := r.Engine.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	width := ui.TerminalWidth()
	printer := newStreamPrinter(os.Stdout, width)
	progress := io.Writer(os.Stderr)

	r.Spinner.Start("Thinking")
	defer r.Spinner.Stop()

	var reply *llm.Reply
	var notices []string
	var streamErr error

loop:
	for {
		event, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			streamErr = err
			break
		}

		switch event.Type {
		case llm.EventTextDelta:
			if mode == modeQuiet {
				r.Spinner.Start("Writing")
				continue
			}
			r.Spinner.Stop()
			printer.WriteText(event.Text)

		case llm.EventToolExecStart:
			r.Stats.ToolStart()
			r.Spinner.Start(event.ToolName + event.ToolInfo)

		case llm.EventToolExecEnd:
			r.Stats.ToolEnd()
			r.Spinner.Stop()
			line := formatToolLine(r.Styles, event.ToolName, event.ToolInfo, event.ToolSuccess, event.ToolOutput)
			if mode == modeMarkdown {
				printer.WriteLine(line)
				if event.Diff != nil {
					if rendered := ui.RenderDiff(event.Diff.File, event.Diff.Old, event.Diff.New); rendered != "" {
						printer.WriteLine(strings.TrimRight(rendered, "\n"))
					}
				}
			} else {
				fmt.Fprintln(progress, line)
				if mode == modePlain && event.Diff != nil {
					if rendered := ui.RenderDiff(event.Diff.File, event.Diff.Old, event.Diff.New); rendered != "" {
						fmt.Fprintln(progress, strings.TrimRight(rendered, "\n"))
					}
				}
			}

		case llm.EventNotice:
			// Printed after the final render so it never splits the
			// answer segment.
			notices = append(notices, event.Notice)

		case llm.EventUsage:
			r.Stats.AddTurn()

		case llm.EventRetry:
			r.Spinner.Start(fmt.Sprintf("Retrying (%d/%d), waiting %.0fs", event.RetryAttempt, event.RetryMaxAttempts, event.RetryWaitSecs))

		case llm.EventDone:
			reply = event.Reply
			break loop
		}
	}

	// Drain any trailing error the producer recorded after its final
	// event, so transport failures are never silently dropped.
	if streamErr == nil {
		for {
			_, err := stream.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				streamErr = err
				break
			}
		}
	}

	r.Spinner.Stop()

	if mode == modeMarkdown {
		finishMarkdown(printer, width)
	} else {
		printer.EnsureLineStart()
	}

	for _, notice := range notices {
		fmt.Fprintln(progress, r.Styles.Warning.Render(notice))
	}

	if streamErr != nil {
		if errors.Is(streamErr, context.Canceled) {
			return reply, streamErr
		}
		return reply, fmt.Errorf("streaming failed: %w", streamErr)
	}
	if reply == nil {
		return nil, fmt.Errorf("stream ended without a result")
	}
	return reply, nil
}

// finishMarkdown replaces the final streamed text with its rendered
// form. Segments taller than the screen stay raw; erasing rows that have
// scrolled off would clobber unrelated output.
func finishMarkdown(printer *streamPrinter, width int) {
	text := strings.TrimSpace(printer.SegmentText())
	if text == "" {
		printer.EnsureLineStart()
		return
	}

	span := printer.SegmentSpan()
	if span >= terminalHeight() {
		printer.EnsureLineStart()
		return
	}

	rendered := strings.TrimRight(ui.RenderMarkdown(text, width), "\n")
	printer.EraseSegment()
	fmt.Fprintln(printer.out, rendered)
	printer.ResetSegment()
}
