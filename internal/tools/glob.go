package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/codewright/codewright/internal/llm"
)

// FindFilesTool implements the find_files tool.
type FindFilesTool struct {
	approval *ApprovalManager
}

// NewFindFilesTool creates a new FindFilesTool.
func NewFindFilesTool(approval *ApprovalManager) *FindFilesTool {
	return &FindFilesTool{
		approval: approval,
	}
}

// FindFilesArgs are the arguments for find_files.
type FindFilesArgs struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
}

// FileEntry represents a file in find_files results.
type FileEntry struct {
	FilePath  string
	IsDir     bool
	SizeBytes int64
	ModTime   time.Time
}

const maxFindResults = 200

func (t *FindFilesTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        FindFilesToolName,
		Description: "Find files by glob pattern (supports ** for recursive matching). Returns file metadata sorted by modification time.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"pattern": map[string]interface{}{
					"type":        "string",
					"description": "Glob pattern supporting ** for recursive matching, e.g., '**/*.go' or 'src/**/*.ts'",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Base directory for the search (defaults to current directory)",
				},
			},
			"required":             []string{"pattern"},
			"additionalProperties": false,
		},
	}
}

func (t *FindFilesTool) Preview(args json.RawMessage) string {
	var a FindFilesArgs
	if err := json.Unmarshal(args, &a); err != nil || a.Pattern == "" {
		return ""
	}
	if a.Path != "" {
		return fmt.Sprintf("%s in %s", a.Pattern, a.Path)
	}
	return a.Pattern
}

func (t *FindFilesTool) Execute(ctx context.Context, args json.RawMessage) (llm.ToolOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	warning := WarnUnknownParams(args, []string{"pattern", "path"})
	textOutput := func(message string) llm.ToolOutput {
		return llm.TextOutput(warning + message)
	}

	var a FindFilesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return llm.ErrorOutput(warning + formatToolError(NewToolError(ErrInvalidParams, err.Error()))), nil
	}

	if a.Pattern == "" {
		return llm.ErrorOutput(warning + formatToolError(NewToolError(ErrInvalidParams, "pattern is required"))), nil
	}

	basePath := a.Path
	if basePath == "" {
		var err error
		basePath, err = os.Getwd()
		if err != nil {
			return llm.ErrorOutput(warning + formatToolError(NewToolErrorf(ErrExecutionFailed, "cannot get working directory: %v", err))), nil
		}
	}

	if t.approval != nil {
		outcome, err := t.approval.CheckPath(FindFilesToolName, basePath, false)
		if err != nil {
			return llm.ErrorOutput(warning + approvalErrorText(err)), nil
		}
		if outcome == Cancel {
			return llm.ErrorOutput(warning + formatToolError(NewToolErrorf(ErrPermissionDenied, "access denied: %s", basePath))), nil
		}
	}

	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return llm.ErrorOutput(warning + formatToolError(NewToolErrorf(ErrExecutionFailed, "cannot resolve path: %v", err))), nil
	}

	var entries []FileEntry
	pattern := a.Pattern

	err = filepath.WalkDir(absBasePath, func(path string, d os.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil // Skip errors
		}

		// Skip hidden directories and files
		if d.IsDir() && strings.HasPrefix(d.Name(), ".") && path != absBasePath {
			return filepath.SkipDir
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		relPath, err := filepath.Rel(absBasePath, path)
		if err != nil {
			return nil
		}

		matched, err := doublestar.Match(pattern, relPath)
		if err != nil {
			return nil
		}
		if !matched {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		entries = append(entries, FileEntry{
			FilePath:  path,
			IsDir:     d.IsDir(),
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		})

		if len(entries) >= maxFindResults {
			return filepath.SkipAll
		}

		return nil
	})

	if err != nil {
		return llm.ErrorOutput(warning + formatToolError(NewToolErrorf(ErrExecutionFailed, "walk error: %v", err))), nil
	}

	// Newest first
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModTime.After(entries[j].ModTime)
	})

	if len(entries) == 0 {
		return textOutput("No files matched the pattern."), nil
	}

	return textOutput(formatFindResults(entries, len(entries) >= maxFindResults)), nil
}

// formatFindResults formats find_files results for the model.
func formatFindResults(entries []FileEntry, truncated bool) string {
	var sb strings.Builder

	for _, e := range entries {
		typeIndicator := "f"
		if e.IsDir {
			typeIndicator = "d"
		}
		sb.WriteString(fmt.Sprintf("[%s] %s  %s  %s\n", typeIndicator, formatSize(e.SizeBytes), e.ModTime.Format("2006-01-02 15:04"), e.FilePath))
	}

	if truncated {
		sb.WriteString(fmt.Sprintf("\n[Results truncated at %d files]", maxFindResults))
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

// formatSize formats a byte count as human-readable.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%4dB", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%4.0f%c", float64(bytes)/float64(div), "KMGTPE"[exp])
}
