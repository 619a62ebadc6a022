package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"golang.org/x/term"
)

// DirCache caches session-scoped directory approvals. Approvals are
// tool-agnostic: approving a directory for one tool allows all tools to
// touch files within it.
type DirCache struct {
	mu   sync.RWMutex
	dirs map[string]bool // absolute dir path -> approved
}

// NewDirCache creates a new DirCache.
func NewDirCache() *DirCache {
	return &DirCache{dirs: make(map[string]bool)}
}

// Add stores a directory approval.
func (c *DirCache) Add(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirs[dir] = true
}

// Contains checks if a path is within any approved directory.
func (c *DirCache) Contains(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for dir := range c.dirs {
		if absPath == dir || strings.HasPrefix(absPath, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// ShellPatternCache caches session-scoped command pattern approvals.
type ShellPatternCache struct {
	mu       sync.RWMutex
	patterns []string
	compiled []glob.Glob
}

// NewShellPatternCache creates a new ShellPatternCache.
func NewShellPatternCache() *ShellPatternCache {
	return &ShellPatternCache{}
}

// Add adds a pattern to the session cache. Invalid patterns are ignored.
func (c *ShellPatternCache) Add(pattern string) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.patterns {
		if p == pattern {
			return
		}
	}
	c.patterns = append(c.patterns, pattern)
	c.compiled = append(c.compiled, g)
}

// Matches checks if a command matches any session-approved pattern.
func (c *ShellPatternCache) Matches(command string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, g := range c.compiled {
		if g.Match(command) {
			return true
		}
	}
	return false
}

// Patterns returns all session-approved patterns.
func (c *ShellPatternCache) Patterns() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.patterns...)
}

// ApprovalRequest describes a pending approval, passed to the prompt.
type ApprovalRequest struct {
	Tool    string
	Path    string // file tools: absolute path being accessed
	Dir     string // file tools: directory an "always" choice approves
	Command string // execute_command: the command line
	Pattern string // execute_command: pattern an "always" choice approves
	Write   bool
}

// Decision is the outcome of an approval prompt.
type Decision struct {
	Outcome ConfirmOutcome
	Scope   string // approved directory or pattern for ProceedAlways
}

// ApprovalManager gates tool executions on allowlists, session caches and
// interactive prompts.
type ApprovalManager struct {
	mode       string
	allowDirs  []string // absolute pre-approved dirs from config
	shellAllow []glob.Glob
	dirCache   *DirCache
	shellCache *ShellPatternCache

	// promptMu serializes interactive prompts so concurrent approval
	// checks never interleave on the terminal.
	promptMu sync.Mutex

	// YoloMode auto-approves everything. Set via SetYoloMode so the
	// warning is printed.
	YoloMode bool

	// PromptFunc asks the user. Defaults to the huh-based prompt;
	// tests replace it.
	PromptFunc func(req *ApprovalRequest) Decision
}

// NewApprovalManager creates an ApprovalManager from the tool config.
// Shell allowlist patterns must compile.
func NewApprovalManager(cfg ToolConfig) (*ApprovalManager, error) {
	m := &ApprovalManager{
		mode:       cfg.Approval,
		dirCache:   NewDirCache(),
		shellCache: NewShellPatternCache(),
		PromptFunc: runApprovalPrompt,
	}
	if m.mode == "" {
		m.mode = ApproveMutating
	}

	for _, dir := range cfg.AllowDirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		m.allowDirs = append(m.allowDirs, abs)
	}

	for _, pattern := range cfg.ShellAllow {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid shell pattern %q: %w", pattern, err)
		}
		m.shellAllow = append(m.shellAllow, g)
	}

	return m, nil
}

// SetYoloMode enables or disables yolo mode and prints a warning when
// enabling it on a terminal.
func (m *ApprovalManager) SetYoloMode(enabled bool) {
	m.YoloMode = enabled
	if enabled && term.IsTerminal(int(os.Stderr.Fd())) {
		fmt.Fprintf(os.Stderr, "WARNING: yolo mode enabled - all tool operations run without approval.\n")
		fmt.Fprintf(os.Stderr, "This includes shell commands and file modifications. Use only in trusted environments.\n")
	}
}

// needsApproval reports whether the current mode gates the given tool.
func (m *ApprovalManager) needsApproval(toolName string) bool {
	switch m.mode {
	case ApproveNever:
		return false
	case ApproveAlways:
		return true
	default:
		return IsMutating(toolName)
	}
}

// pathDecided runs the non-interactive path checks. It reports whether a
// decision was reached without prompting.
func (m *ApprovalManager) pathDecided(absPath string) (ConfirmOutcome, bool) {
	for _, dir := range m.allowDirs {
		if absPath == dir || strings.HasPrefix(absPath, dir+string(filepath.Separator)) {
			return ProceedOnce, true
		}
	}
	if m.dirCache.Contains(absPath) {
		return ProceedAlways, true
	}
	return Cancel, false
}

// CheckPath checks whether a tool may access a path. Blocks on an
// interactive prompt when no allowlist or cache covers the path.
func (m *ApprovalManager) CheckPath(toolName, path string, write bool) (ConfirmOutcome, error) {
	if m.YoloMode || !m.needsApproval(toolName) {
		return ProceedOnce, nil
	}

	absPath := path
	if resolved, err := filepath.Abs(path); err == nil {
		absPath = resolved
	}

	if outcome, ok := m.pathDecided(absPath); ok {
		return outcome, nil
	}

	m.promptMu.Lock()
	defer m.promptMu.Unlock()

	// Recheck under the lock: a concurrent prompt may have approved the
	// directory already.
	if outcome, ok := m.pathDecided(absPath); ok {
		return outcome, nil
	}

	if m.PromptFunc == nil {
		return Cancel, NewToolErrorf(ErrPermissionDenied,
			"approval required for %s but no prompt available; pre-approve the directory in config or use --yolo", absPath)
	}

	decision := m.PromptFunc(&ApprovalRequest{
		Tool:  toolName,
		Path:  absPath,
		Dir:   directoryFor(absPath),
		Write: write,
	})

	if decision.Outcome == ProceedAlways {
		dir := decision.Scope
		if dir == "" {
			dir = directoryFor(absPath)
		}
		m.dirCache.Add(dir)
	}

	return decision.Outcome, nil
}

// commandDecided runs the non-interactive command checks.
func (m *ApprovalManager) commandDecided(command string) (ConfirmOutcome, bool) {
	for _, g := range m.shellAllow {
		if g.Match(command) {
			return ProceedOnce, true
		}
	}
	if m.shellCache.Matches(command) {
		return ProceedAlways, true
	}
	return Cancel, false
}

// CheckCommand checks whether a shell command may run.
func (m *ApprovalManager) CheckCommand(command string) (ConfirmOutcome, error) {
	if m.YoloMode || !m.needsApproval(ExecuteCommandToolName) {
		return ProceedOnce, nil
	}

	if outcome, ok := m.commandDecided(command); ok {
		return outcome, nil
	}

	m.promptMu.Lock()
	defer m.promptMu.Unlock()

	if outcome, ok := m.commandDecided(command); ok {
		return outcome, nil
	}

	if m.PromptFunc == nil {
		return Cancel, NewToolErrorf(ErrPermissionDenied,
			"approval required for %q but no prompt available; add a shell_allow pattern in config or use --yolo", truncateCommand(command))
	}

	decision := m.PromptFunc(&ApprovalRequest{
		Tool:    ExecuteCommandToolName,
		Command: command,
		Pattern: GenerateShellPattern(command),
	})

	if decision.Outcome == ProceedAlways {
		pattern := decision.Scope
		if pattern == "" {
			pattern = GenerateShellPattern(command)
		}
		m.shellCache.Add(pattern)
	}

	return decision.Outcome, nil
}

// ApproveDirectory adds a directory approval to the session cache.
func (m *ApprovalManager) ApproveDirectory(dir string) {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	m.dirCache.Add(dir)
}

// ApproveShellPattern adds a pattern approval to the session cache.
func (m *ApprovalManager) ApproveShellPattern(pattern string) {
	m.shellCache.Add(pattern)
}

// directoryFor determines which directory an approval should cover.
func directoryFor(path string) string {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

// GenerateShellPattern derives an approval pattern from a command line.
// Subcommand-style tools keep their first argument so "git push" is not
// covered by approving "git status".
func GenerateShellPattern(command string) string {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return command
	}
	if len(parts) == 1 {
		return parts[0]
	}

	switch parts[0] {
	case "go", "npm", "yarn", "pnpm", "cargo", "make", "git":
		return parts[0] + " " + parts[1] + " *"
	}

	return parts[0] + " *"
}
