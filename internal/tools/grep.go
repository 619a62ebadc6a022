package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/codewright/codewright/internal/llm"
)

// SearchFilesTool implements the search_files tool.
type SearchFilesTool struct {
	approval *ApprovalManager
	limits   OutputLimits
}

// NewSearchFilesTool creates a new SearchFilesTool.
func NewSearchFilesTool(approval *ApprovalManager, limits OutputLimits) *SearchFilesTool {
	return &SearchFilesTool{
		approval: approval,
		limits:   limits,
	}
}

// SearchFilesArgs are the arguments for search_files.
type SearchFilesArgs struct {
	Pattern    string `json:"pattern"`
	Path       string `json:"path,omitempty"`
	Include    string `json:"include,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

// SearchMatch is one matching line with context.
type SearchMatch struct {
	FilePath   string
	LineNumber int
	Context    string
}

func (t *SearchFilesTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        SearchFilesToolName,
		Description: "Search file contents using regex patterns (RE2 syntax). Returns matches with context.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"pattern": map[string]interface{}{
					"type":        "string",
					"description": "Regular expression pattern to search for (RE2 syntax)",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "File or directory to search in (defaults to current directory)",
				},
				"include": map[string]interface{}{
					"type":        "string",
					"description": "Glob filter for files, e.g., '*.go' or '*.{js,ts}'",
				},
				"max_results": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (default: 100)",
					"default":     100,
				},
			},
			"required":             []string{"pattern"},
			"additionalProperties": false,
		},
	}
}

func (t *SearchFilesTool) Preview(args json.RawMessage) string {
	var a SearchFilesArgs
	if err := json.Unmarshal(args, &a); err != nil || a.Pattern == "" {
		return ""
	}
	if a.Path != "" {
		return fmt.Sprintf("%s in %s", a.Pattern, a.Path)
	}
	return a.Pattern
}

func (t *SearchFilesTool) Execute(ctx context.Context, args json.RawMessage) (llm.ToolOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	var a SearchFilesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return llm.ErrorOutput(formatToolError(NewToolError(ErrInvalidParams, err.Error()))), nil
	}

	if a.Pattern == "" {
		return llm.ErrorOutput(formatToolError(NewToolError(ErrInvalidParams, "pattern is required"))), nil
	}

	searchPath := a.Path
	if searchPath == "" {
		var err error
		searchPath, err = os.Getwd()
		if err != nil {
			return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "cannot get working directory: %v", err))), nil
		}
	}

	if t.approval != nil {
		outcome, err := t.approval.CheckPath(SearchFilesToolName, searchPath, false)
		if err != nil {
			return llm.ErrorOutput(approvalErrorText(err)), nil
		}
		if outcome == Cancel {
			return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrPermissionDenied, "access denied: %s", searchPath))), nil
		}
	}

	maxResults := a.MaxResults
	if maxResults <= 0 || maxResults > t.limits.MaxResults {
		maxResults = t.limits.MaxResults
	}

	re, err := regexp.Compile(a.Pattern)
	if err != nil {
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrInvalidParams, "invalid regex pattern: %v", err))), nil
	}

	files, err := collectFiles(searchPath, a.Include)
	if err != nil {
		if os.IsNotExist(err) {
			return llm.ErrorOutput(formatToolError(NewToolError(ErrFileNotFound, searchPath))), nil
		}
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "failed to collect files: %v", err))), nil
	}

	sortFilesByMtime(files)

	var matches []SearchMatch
	for _, file := range files {
		if ctx.Err() != nil {
			return llm.TextOutput("search timed out after 1 minute; try a more specific pattern or path"), nil
		}
		if len(matches) >= maxResults {
			break
		}

		fileMatches, err := searchFile(file, re, maxResults-len(matches))
		if err != nil {
			continue // Skip unreadable or binary files
		}
		matches = append(matches, fileMatches...)
	}

	if len(matches) == 0 {
		return llm.TextOutput("No matches found."), nil
	}

	return llm.TextOutput(formatSearchResults(matches, len(matches) >= maxResults)), nil
}

// collectFiles collects files to search, skipping hidden directories.
func collectFiles(searchPath, include string) ([]string, error) {
	info, err := os.Stat(searchPath)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{searchPath}, nil
	}

	var files []string
	err = filepath.WalkDir(searchPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		if d.IsDir() && strings.HasPrefix(d.Name(), ".") && path != searchPath {
			return filepath.SkipDir
		}
		if d.IsDir() {
			return nil
		}

		if include != "" {
			match, err := doublestar.Match(include, d.Name())
			if err != nil || !match {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// sortFilesByMtime sorts files by modification time, newest first.
func sortFilesByMtime(files []string) {
	type fileInfo struct {
		path  string
		mtime int64
	}

	infos := make([]fileInfo, 0, len(files))
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			infos = append(infos, fileInfo{path: f})
			continue
		}
		infos = append(infos, fileInfo{path: f, mtime: info.ModTime().UnixNano()})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].mtime > infos[j].mtime
	})

	for i, info := range infos {
		files[i] = info.path
	}
}

// searchFile searches a single file for matches.
func searchFile(path string, re *regexp.Regexp, maxMatches int) ([]SearchMatch, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && n == 0 {
		return nil, err
	}

	contentType := http.DetectContentType(buf[:n])
	if !strings.HasPrefix(contentType, "text/") &&
		!strings.Contains(contentType, "json") &&
		!strings.Contains(contentType, "xml") {
		return nil, fmt.Errorf("binary file")
	}

	if _, err := file.Seek(0, 0); err != nil {
		return nil, err
	}

	// Keep all lines in memory for context rendering
	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var matches []SearchMatch
	for lineNum, line := range lines {
		if re.MatchString(line) {
			matches = append(matches, SearchMatch{
				FilePath:   path,
				LineNumber: lineNum + 1, // 1-indexed
				Context:    buildContext(lines, lineNum, 2),
			})

			if len(matches) >= maxMatches {
				break
			}
		}
	}

	return matches, nil
}

// buildContext builds context lines around a match.
func buildContext(lines []string, matchIdx, contextLines int) string {
	start := matchIdx - contextLines
	if start < 0 {
		start = 0
	}
	end := matchIdx + contextLines + 1
	if end > len(lines) {
		end = len(lines)
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		prefix := "  "
		if i == matchIdx {
			prefix = "> "
		}
		sb.WriteString(fmt.Sprintf("%s%d: %s\n", prefix, i+1, lines[i]))
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

// formatSearchResults formats search results for the model.
func formatSearchResults(matches []SearchMatch, truncated bool) string {
	var sb strings.Builder

	for i, m := range matches {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		sb.WriteString(fmt.Sprintf("%s:%d\n", m.FilePath, m.LineNumber))
		sb.WriteString(m.Context)
		sb.WriteString("\n")
	}

	if truncated {
		sb.WriteString("\n[Results truncated at limit]")
	}

	return sb.String()
}
