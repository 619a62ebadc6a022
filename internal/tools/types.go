// Package tools provides the local, permission-gated tools that the
// conversation engine can call: file access, search, shell execution and
// project analysis.
package tools

import (
	"fmt"
)

// ToolErrorType classifies expected tool failures so the model can react.
type ToolErrorType string

const (
	ErrFileNotFound     ToolErrorType = "FILE_NOT_FOUND"
	ErrInvalidParams    ToolErrorType = "INVALID_PARAMS"
	ErrExecutionFailed  ToolErrorType = "EXECUTION_FAILED"
	ErrPermissionDenied ToolErrorType = "PERMISSION_DENIED"
	ErrBinaryFile       ToolErrorType = "BINARY_FILE"
	ErrFileTooLarge     ToolErrorType = "FILE_TOO_LARGE"
	ErrTimeout          ToolErrorType = "TIMEOUT"
)

// ToolError carries a typed failure. Tools report these as formatted text
// in their output rather than as Go errors, so the model sees them and can
// retry with different parameters.
type ToolError struct {
	Type    ToolErrorType
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewToolError creates a new ToolError.
func NewToolError(errType ToolErrorType, message string) *ToolError {
	return &ToolError{Type: errType, Message: message}
}

// NewToolErrorf creates a new ToolError with a formatted message.
func NewToolErrorf(errType ToolErrorType, format string, args ...interface{}) *ToolError {
	return &ToolError{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// formatToolError formats a ToolError for model consumption.
func formatToolError(err *ToolError) string {
	return fmt.Sprintf("Error [%s]: %s", err.Type, err.Message)
}

// ConfirmOutcome is the result of an approval check.
type ConfirmOutcome string

const (
	ProceedOnce   ConfirmOutcome = "once"   // Single approval
	ProceedAlways ConfirmOutcome = "always" // Session-scoped approval
	Cancel        ConfirmOutcome = "cancel" // Denied
)

// Tool spec names.
const (
	ReadFileToolName       = "read_file"
	WriteFileToolName      = "write_file"
	EditFileToolName       = "edit_file"
	ListFilesToolName      = "list_files"
	FindFilesToolName      = "find_files"
	SearchFilesToolName    = "search_files"
	ExecuteCommandToolName = "execute_command"
	AnalyzeProjectToolName = "analyze_project"
)

// AllToolNames returns all valid tool spec names in registration order.
func AllToolNames() []string {
	return []string{
		ReadFileToolName,
		WriteFileToolName,
		EditFileToolName,
		ListFilesToolName,
		FindFilesToolName,
		SearchFilesToolName,
		ExecuteCommandToolName,
		AnalyzeProjectToolName,
	}
}

var validToolNames = map[string]bool{
	ReadFileToolName:       true,
	WriteFileToolName:      true,
	EditFileToolName:       true,
	ListFilesToolName:      true,
	FindFilesToolName:      true,
	SearchFilesToolName:    true,
	ExecuteCommandToolName: true,
	AnalyzeProjectToolName: true,
}

// ValidToolName checks if a name is a valid tool spec name.
func ValidToolName(name string) bool {
	return validToolNames[name]
}

// IsMutating reports whether a tool can change the filesystem or run
// arbitrary commands. Under the "mutating" approval mode only these tools
// require confirmation.
func IsMutating(specName string) bool {
	switch specName {
	case WriteFileToolName, EditFileToolName, ExecuteCommandToolName:
		return true
	}
	return false
}
