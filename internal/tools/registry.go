package tools

import (
	"github.com/codewright/codewright/internal/llm"
)

// NewRegistry builds an engine tool registry from the resolved tool
// config. All enabled tools share one approval manager so session
// approvals carry across tools.
func NewRegistry(cfg ToolConfig, approval *ApprovalManager) (*llm.ToolRegistry, error) {
	limits := DefaultOutputLimits()
	if cfg.MaxFileBytes > 0 {
		limits.MaxFileBytes = cfg.MaxFileBytes
	}

	reg := llm.NewToolRegistry()
	for _, specName := range cfg.Enabled {
		tool, err := newTool(specName, cfg, approval, limits)
		if err != nil {
			return nil, err
		}
		reg.Register(tool)
	}
	return reg, nil
}

// newTool constructs a single tool by spec name.
func newTool(specName string, cfg ToolConfig, approval *ApprovalManager, limits OutputLimits) (llm.Tool, error) {
	switch specName {
	case ReadFileToolName:
		return NewReadFileTool(approval, limits), nil
	case WriteFileToolName:
		return NewWriteFileTool(approval), nil
	case EditFileToolName:
		return NewEditFileTool(approval), nil
	case ListFilesToolName:
		return NewListFilesTool(approval), nil
	case FindFilesToolName:
		return NewFindFilesTool(approval), nil
	case SearchFilesToolName:
		return NewSearchFilesTool(approval, limits), nil
	case ExecuteCommandToolName:
		return NewExecuteCommandTool(approval, limits, cfg.CommandTimeout), nil
	case AnalyzeProjectToolName:
		return NewAnalyzeProjectTool(approval), nil
	}
	return nil, NewToolErrorf(ErrInvalidParams, "unknown tool: %s", specName)
}
