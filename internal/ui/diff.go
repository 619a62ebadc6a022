package ui

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	diff "github.com/shogoki/gotextdiff"
)

// Diff line backgrounds (true color RGB). Dark tints that keep syntax
// highlighting readable on top.
var (
	diffAddBg    = [3]int{30, 60, 30} // dark green tint
	diffRemoveBg = [3]int{60, 30, 30} // dark red tint
)

// hunkRe parses a hunk header: @@ -start,count +start,count @@
var hunkRe = regexp.MustCompile(`^@@ -(\d+)(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// RenderDiff returns a colorized unified diff between old and new content,
// with line numbers and syntax highlighting based on the file extension.
// Returns empty string when the contents are identical.
func RenderDiff(filePath, oldContent, newContent string) string {
	if oldContent == newContent {
		return ""
	}

	diffBytes := diff.Diff(filePath, []byte(oldContent), filePath, []byte(newContent))
	if len(diffBytes) == 0 {
		return ""
	}

	highlighter := NewHighlighter(filePath)

	// Line number gutter sized to the larger side
	oldLines := strings.Count(oldContent, "\n") + 1
	newLines := strings.Count(newContent, "\n") + 1
	maxLine := oldLines
	if newLines > maxLine {
		maxLine = newLines
	}
	lineNumWidth := len(strconv.Itoa(maxLine))
	if lineNumWidth < 3 {
		lineNumWidth = 3
	}

	var out strings.Builder
	var oldLineNum, newLineNum int
	var deletionOffset int // position within a deletion block
	hunkCount := 0

	for _, line := range strings.Split(string(diffBytes), "\n") {
		// Skip the "diff" line and --- / +++ headers
		if strings.HasPrefix(line, "diff ") ||
			strings.HasPrefix(line, "--- ") ||
			strings.HasPrefix(line, "+++ ") {
			continue
		}
		if len(line) == 0 {
			continue
		}

		prefix := line[0]
		content := ""
		if len(line) > 1 {
			content = line[1:]
		}

		switch prefix {
		case '@':
			if matches := hunkRe.FindStringSubmatch(line); matches != nil {
				oldLineNum, _ = strconv.Atoi(matches[1])
				newLineNum, _ = strconv.Atoi(matches[2])
			}
			// "..." separator between hunks, not before the first
			if hunkCount > 0 {
				fmt.Fprintf(&out, "\x1b[38;2;100;100;100m%s  ...\x1b[0m\n", strings.Repeat(" ", lineNumWidth))
			}
			hunkCount++

		case '-':
			var highlighted string
			if highlighter != nil {
				highlighted = highlighter.HighlightLineWithBg(content, diffRemoveBg)
			} else {
				highlighted = fmt.Sprintf("\x1b[48;2;%d;%d;%dm%s\x1b[0m", diffRemoveBg[0], diffRemoveBg[1], diffRemoveBg[2], content)
			}
			fmt.Fprintf(&out, "\x1b[38;2;160;80;80m%*d- \x1b[0m%s\n", lineNumWidth, newLineNum+deletionOffset, highlighted)
			oldLineNum++
			deletionOffset++

		case '+':
			deletionOffset = 0
			var highlighted string
			if highlighter != nil {
				highlighted = highlighter.HighlightLineWithBg(content, diffAddBg)
			} else {
				highlighted = fmt.Sprintf("\x1b[48;2;%d;%d;%dm%s\x1b[0m", diffAddBg[0], diffAddBg[1], diffAddBg[2], content)
			}
			fmt.Fprintf(&out, "\x1b[38;2;80;160;80m%*d+ \x1b[0m%s\n", lineNumWidth, newLineNum, highlighted)
			newLineNum++

		case ' ':
			deletionOffset = 0
			highlighted := highlighter.HighlightLine(content)
			fmt.Fprintf(&out, "\x1b[38;2;100;100;100m%*d  \x1b[0m%s\n", lineNumWidth, newLineNum, highlighted)
			oldLineNum++
			newLineNum++

		default:
			out.WriteString(line)
			out.WriteByte('\n')
		}
	}

	return out.String()
}

// RenderDiffWithHeader renders a diff preceded by a styled "Edit: <path>"
// line. Used when showing the result of a file modification.
func RenderDiffWithHeader(filePath, oldContent, newContent string) string {
	body := RenderDiff(filePath, oldContent, newContent)
	if body == "" {
		return ""
	}
	styles := DefaultStyles()
	return fmt.Sprintf("%s %s\n%s", styles.Bold.Render("Edit:"), filePath, body)
}
