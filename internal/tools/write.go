package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codewright/codewright/internal/llm"
)

// maxDiffBytes bounds the content size carried in structured diff data.
const maxDiffBytes = 256 * 1024

// WriteFileTool implements the write_file tool.
type WriteFileTool struct {
	approval *ApprovalManager
}

// NewWriteFileTool creates a new WriteFileTool.
func NewWriteFileTool(approval *ApprovalManager) *WriteFileTool {
	return &WriteFileTool{
		approval: approval,
	}
}

// WriteFileArgs are the arguments for write_file.
type WriteFileArgs struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

func (t *WriteFileTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        WriteFileToolName,
		Description: "Create or overwrite a file with the specified content. Creates parent directories if needed.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"file_path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the file to write",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Full file content to write",
				},
			},
			"required":             []string{"file_path", "content"},
			"additionalProperties": false,
		},
	}
}

func (t *WriteFileTool) Preview(args json.RawMessage) string {
	var a WriteFileArgs
	if err := json.Unmarshal(args, &a); err != nil || a.FilePath == "" {
		return ""
	}
	return a.FilePath
}

func (t *WriteFileTool) Execute(ctx context.Context, args json.RawMessage) (llm.ToolOutput, error) {
	var a WriteFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return llm.ErrorOutput(formatToolError(NewToolError(ErrInvalidParams, err.Error()))), nil
	}

	if a.FilePath == "" {
		return llm.ErrorOutput(formatToolError(NewToolError(ErrInvalidParams, "file_path is required"))), nil
	}

	if t.approval != nil {
		outcome, err := t.approval.CheckPath(WriteFileToolName, a.FilePath, true)
		if err != nil {
			return llm.ErrorOutput(approvalErrorText(err)), nil
		}
		if outcome == Cancel {
			return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrPermissionDenied, "access denied: %s", a.FilePath))), nil
		}
	}

	absPath, err := filepath.Abs(a.FilePath)
	if err != nil {
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrInvalidParams, "cannot resolve path: %v", err))), nil
	}

	// Existing content feeds the diff; existing mode is preserved.
	existingContent := ""
	isNew := true
	var existingMode os.FileMode
	if info, err := os.Stat(absPath); err == nil {
		existingMode = info.Mode()
		if data, err := os.ReadFile(absPath); err == nil {
			existingContent = string(data)
			isNew = false
		}
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "failed to create directory: %v", err))), nil
	}

	// Atomic write: write to a uniquely-named temp file, then rename.
	// os.CreateTemp avoids name collisions when concurrent calls target
	// the same destination.
	base := filepath.Base(absPath)
	tf, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "failed to create temp file: %v", err))), nil
	}
	tempPath := tf.Name()

	if _, err := tf.Write([]byte(a.Content)); err != nil {
		tf.Close()
		os.Remove(tempPath)
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "failed to write temp file: %v", err))), nil
	}
	if err := tf.Sync(); err != nil {
		tf.Close()
		os.Remove(tempPath)
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "failed to sync temp file: %v", err))), nil
	}
	if err := tf.Close(); err != nil {
		os.Remove(tempPath)
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "failed to close temp file: %v", err))), nil
	}

	// CreateTemp uses 0600, too restrictive for source files. Preserve
	// the existing mode, or 0644 for new files.
	mode := existingMode
	if isNew {
		mode = 0644
	}
	if err := os.Chmod(tempPath, mode); err != nil {
		os.Remove(tempPath)
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "failed to set file permissions: %v", err))), nil
	}

	if err := os.Rename(tempPath, absPath); err != nil {
		os.Remove(tempPath)
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "failed to rename temp file: %v", err))), nil
	}

	output := llm.ToolOutput{}
	if isNew {
		output.Content = fmt.Sprintf("Created new file: %s (%d lines).", absPath, countLines(a.Content))
	} else {
		oldLines := countLines(existingContent)
		newLines := countLines(a.Content)
		output.Content = fmt.Sprintf("Updated %s: %d lines -> %d lines.", absPath, oldLines, newLines)

		if len(existingContent) < maxDiffBytes && len(a.Content) < maxDiffBytes {
			output.Diff = &llm.DiffData{File: absPath, Old: existingContent, New: a.Content, Line: 1}
		}
	}

	return output, nil
}

// countLines counts the number of lines in a string.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	count := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		count++
	}
	return count
}
