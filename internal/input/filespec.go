package input

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FileSpec is a parsed file argument with an optional line range.
type FileSpec struct {
	Path      string
	StartLine int // 1-indexed, 0 means from the beginning
	EndLine   int // 1-indexed, 0 means to the end
	HasRegion bool
}

var regionRe = regexp.MustCompile(`^(.+?):(\d*)-(\d*)$`)

// ParseFileSpec parses a file specification like "main.go:11-22".
// Supported forms:
//   - main.go       the whole file
//   - main.go:11-22 lines 11 through 22
//   - main.go:11-   line 11 to the end
//   - main.go:-22   lines 1 through 22
//
// A colon not followed by a line range stays part of the path.
func ParseFileSpec(spec string) (FileSpec, error) {
	if spec == "" {
		return FileSpec{}, fmt.Errorf("empty file spec")
	}

	m := regionRe.FindStringSubmatch(spec)
	if m == nil || (m[2] == "" && m[3] == "") {
		return FileSpec{Path: spec}, nil
	}

	fs := FileSpec{Path: m[1], HasRegion: true}
	if m[2] != "" {
		start, err := strconv.Atoi(m[2])
		if err != nil {
			return FileSpec{}, fmt.Errorf("invalid start line in %q: %w", spec, err)
		}
		fs.StartLine = start
	}
	if m[3] != "" {
		end, err := strconv.Atoi(m[3])
		if err != nil {
			return FileSpec{}, fmt.Errorf("invalid end line in %q: %w", spec, err)
		}
		fs.EndLine = end
	}
	if fs.StartLine > 0 && fs.EndLine > 0 && fs.EndLine < fs.StartLine {
		return FileSpec{}, fmt.Errorf("invalid line range in %q: end before start", spec)
	}
	return fs, nil
}

// ExtractLines returns the 1-indexed inclusive line range of content.
// Zero for start means from the beginning, zero for end means to the end.
func ExtractLines(content string, startLine, endLine int) string {
	lines := strings.Split(content, "\n")

	start := 0
	if startLine > 0 {
		start = startLine - 1
	}
	if start >= len(lines) {
		return ""
	}

	end := len(lines)
	if endLine > 0 && endLine < len(lines) {
		end = endLine
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}

// FormatSpecPath returns a display path including the region when one
// was specified. Open ends render as they were written, "11-" or "-22".
func (fs FileSpec) FormatSpecPath() string {
	if !fs.HasRegion {
		return fs.Path
	}
	start, end := "", ""
	if fs.StartLine > 0 {
		start = strconv.Itoa(fs.StartLine)
	}
	if fs.EndLine > 0 {
		end = strconv.Itoa(fs.EndLine)
	}
	return fmt.Sprintf("%s:%s-%s", fs.Path, start, end)
}
