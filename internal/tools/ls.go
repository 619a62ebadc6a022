package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/codewright/codewright/internal/llm"
)

// ListFilesTool implements the list_files tool.
type ListFilesTool struct {
	approval *ApprovalManager
}

// NewListFilesTool creates a new ListFilesTool.
func NewListFilesTool(approval *ApprovalManager) *ListFilesTool {
	return &ListFilesTool{
		approval: approval,
	}
}

// ListFilesArgs are the arguments for list_files.
type ListFilesArgs struct {
	Path string `json:"path,omitempty"`
	All  bool   `json:"all,omitempty"`
}

const maxListEntries = 500

func (t *ListFilesTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        ListFilesToolName,
		Description: "List directory contents with type, size and modification time. Hidden entries are skipped unless all is true.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Directory to list (defaults to current directory)",
				},
				"all": map[string]interface{}{
					"type":        "boolean",
					"description": "Include hidden entries",
				},
			},
			"additionalProperties": false,
		},
	}
}

func (t *ListFilesTool) Preview(args json.RawMessage) string {
	var a ListFilesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return ""
	}
	if a.Path == "" {
		return "."
	}
	return a.Path
}

func (t *ListFilesTool) Execute(ctx context.Context, args json.RawMessage) (llm.ToolOutput, error) {
	var a ListFilesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return llm.ErrorOutput(formatToolError(NewToolError(ErrInvalidParams, err.Error()))), nil
	}

	path := a.Path
	if path == "" {
		var err error
		path, err = os.Getwd()
		if err != nil {
			return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "cannot get working directory: %v", err))), nil
		}
	}

	if t.approval != nil {
		outcome, err := t.approval.CheckPath(ListFilesToolName, path, false)
		if err != nil {
			return llm.ErrorOutput(approvalErrorText(err)), nil
		}
		if outcome == Cancel {
			return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrPermissionDenied, "access denied: %s", path))), nil
		}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return llm.ErrorOutput(formatToolError(NewToolError(ErrFileNotFound, path))), nil
		}
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "list error: %v", err))), nil
	}

	// Directories first, each group alphabetical.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var sb strings.Builder
	shown := 0
	for _, e := range entries {
		if !a.All && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if shown >= maxListEntries {
			sb.WriteString(fmt.Sprintf("\n[Listing truncated at %d entries]", maxListEntries))
			break
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		typeIndicator := "f"
		name := e.Name()
		if e.IsDir() {
			typeIndicator = "d"
			name += "/"
		}

		sb.WriteString(fmt.Sprintf("[%s] %s  %s  %s\n", typeIndicator, formatSize(info.Size()), info.ModTime().Format("2006-01-02 15:04"), name))
		shown++
	}

	if shown == 0 {
		return llm.TextOutput("Directory is empty."), nil
	}

	return llm.TextOutput(strings.TrimSuffix(sb.String(), "\n")), nil
}
