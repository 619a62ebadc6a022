package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/codewright/codewright/internal/llm"
)

// EditFileTool implements the edit_file tool: deterministic old_text to
// new_text replacement with a whitespace-tolerant fallback.
type EditFileTool struct {
	approval *ApprovalManager
}

// NewEditFileTool creates a new EditFileTool.
func NewEditFileTool(approval *ApprovalManager) *EditFileTool {
	return &EditFileTool{
		approval: approval,
	}
}

// EditFileArgs are the arguments for edit_file.
type EditFileArgs struct {
	FilePath string `json:"file_path"`
	OldText  string `json:"old_text"`
	NewText  string `json:"new_text"`
}

func (t *EditFileTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        EditFileToolName,
		Description: "Replace old_text with new_text in a file. old_text must match exactly once; include enough surrounding context to make it unique. Indentation differences are tolerated as a fallback.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"file_path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the file to edit",
				},
				"old_text": map[string]interface{}{
					"type":        "string",
					"description": "Exact text to find and replace. Include enough context to be unique.",
				},
				"new_text": map[string]interface{}{
					"type":        "string",
					"description": "Text to replace old_text with",
				},
			},
			"required":             []string{"file_path", "old_text", "new_text"},
			"additionalProperties": false,
		},
	}
}

func (t *EditFileTool) Preview(args json.RawMessage) string {
	var a EditFileArgs
	if err := json.Unmarshal(args, &a); err != nil || a.FilePath == "" {
		return ""
	}
	return a.FilePath
}

func (t *EditFileTool) Execute(ctx context.Context, args json.RawMessage) (llm.ToolOutput, error) {
	var a EditFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return llm.ErrorOutput(formatToolError(NewToolError(ErrInvalidParams, err.Error()))), nil
	}

	if a.FilePath == "" {
		return llm.ErrorOutput(formatToolError(NewToolError(ErrInvalidParams, "file_path is required"))), nil
	}
	if a.OldText == "" {
		return llm.ErrorOutput(formatToolError(NewToolError(ErrInvalidParams, "old_text is required"))), nil
	}
	if a.OldText == a.NewText {
		return llm.ErrorOutput(formatToolError(NewToolError(ErrInvalidParams, "old_text and new_text are identical"))), nil
	}

	if t.approval != nil {
		outcome, err := t.approval.CheckPath(EditFileToolName, a.FilePath, true)
		if err != nil {
			return llm.ErrorOutput(approvalErrorText(err)), nil
		}
		if outcome == Cancel {
			return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrPermissionDenied, "access denied: %s", a.FilePath))), nil
		}
	}

	// Serialize concurrent edits to the same file with a lock file. The
	// file itself can't be locked because rename() replaces the inode and
	// holders of the old fd would not see changes.
	lockPath := a.FilePath + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "failed to create lock file: %v", err))), nil
	}
	defer func() {
		lockFile.Close()
		os.Remove(lockPath)
	}()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "failed to lock: %v", err))), nil
	}
	defer syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)

	info, err := os.Stat(a.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return llm.ErrorOutput(formatToolError(NewToolError(ErrFileNotFound, a.FilePath))), nil
		}
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "stat error: %v", err))), nil
	}

	data, err := os.ReadFile(a.FilePath)
	if err != nil {
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "read error: %v", err))), nil
	}

	content := string(data)

	match, err := findMatch(content, a.OldText)
	if err != nil {
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "could not apply edit: %v", err))), nil
	}

	newContent := content[:match.start] + a.NewText + content[match.end:]

	dir := filepath.Dir(a.FilePath)
	base := filepath.Base(a.FilePath)
	tempFile, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "failed to create temp file: %v", err))), nil
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.WriteString(newContent); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "failed to write temp file: %v", err))), nil
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "failed to close temp file: %v", err))), nil
	}

	if err := os.Chmod(tempPath, info.Mode()); err != nil {
		os.Remove(tempPath)
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "failed to set file permissions: %v", err))), nil
	}

	if err := os.Rename(tempPath, a.FilePath); err != nil {
		os.Remove(tempPath)
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "failed to rename temp file: %v", err))), nil
	}

	original := content[match.start:match.end]
	oldLines := countLines(original)
	newLines := countLines(a.NewText)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Edited %s: replaced %d lines with %d lines", a.FilePath, oldLines, newLines))
	if match.fuzzy {
		sb.WriteString(" (whitespace-tolerant match; old_text did not exactly match file content)")
	}
	sb.WriteString(".")

	output := llm.ToolOutput{Content: sb.String()}

	if len(original) < maxDiffBytes && len(a.NewText) < maxDiffBytes {
		startLine := strings.Count(content[:match.start], "\n") + 1
		output.Diff = &llm.DiffData{File: a.FilePath, Old: original, New: a.NewText, Line: startLine}
	}

	return output, nil
}

// editMatch is a located replacement region.
type editMatch struct {
	start int // byte offset of the region start
	end   int // byte offset past the region end
	fuzzy bool
}

// findMatch locates oldText in content. Exact matching is tried first;
// when that fails, lines are compared with leading and trailing whitespace
// stripped. Either way the match must be unique.
func findMatch(content, oldText string) (editMatch, error) {
	switch n := strings.Count(content, oldText); {
	case n == 1:
		start := strings.Index(content, oldText)
		return editMatch{start: start, end: start + len(oldText)}, nil
	case n > 1:
		return editMatch{}, fmt.Errorf("old_text matches %d locations; add surrounding context to make it unique", n)
	}

	contentLines := strings.Split(content, "\n")
	oldLines := strings.Split(oldText, "\n")

	// A trailing newline in old_text produces an empty final element that
	// would force the next line to be blank. Drop it.
	if len(oldLines) > 1 && oldLines[len(oldLines)-1] == "" {
		oldLines = oldLines[:len(oldLines)-1]
	}

	trimmed := make([]string, len(oldLines))
	for i, line := range oldLines {
		trimmed[i] = strings.TrimSpace(line)
	}

	matchAt := -1
	count := 0
	for i := 0; i+len(trimmed) <= len(contentLines); i++ {
		ok := true
		for j, want := range trimmed {
			if strings.TrimSpace(contentLines[i+j]) != want {
				ok = false
				break
			}
		}
		if ok {
			count++
			if matchAt < 0 {
				matchAt = i
			}
		}
	}

	switch {
	case count == 0:
		return editMatch{}, fmt.Errorf("old_text not found in file")
	case count > 1:
		return editMatch{}, fmt.Errorf("old_text matches %d locations (ignoring whitespace); add surrounding context to make it unique", count)
	}

	// Convert the line window back to byte offsets in the original content.
	start := 0
	for i := 0; i < matchAt; i++ {
		start += len(contentLines[i]) + 1
	}
	end := start
	for j := 0; j < len(trimmed); j++ {
		end += len(contentLines[matchAt+j])
		if j < len(trimmed)-1 {
			end++ // newline between lines stays inside the region
		}
	}

	return editMatch{start: start, end: end, fuzzy: true}, nil
}
