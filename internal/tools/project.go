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

	"github.com/codewright/codewright/internal/llm"
)

// AnalyzeProjectTool implements the analyze_project tool. It walks a
// project tree and summarizes languages, manifests, entry points and
// directory layout so the model can orient itself without dozens of
// list_files calls.
type AnalyzeProjectTool struct {
	approval *ApprovalManager
}

// NewAnalyzeProjectTool creates a new AnalyzeProjectTool.
func NewAnalyzeProjectTool(approval *ApprovalManager) *AnalyzeProjectTool {
	return &AnalyzeProjectTool{
		approval: approval,
	}
}

// AnalyzeProjectArgs are the arguments for analyze_project.
type AnalyzeProjectArgs struct {
	Path string `json:"path,omitempty"`
}

// maxAnalyzeFiles bounds the walk on very large trees.
const maxAnalyzeFiles = 20000

// languageByExt maps file extensions to language names.
var languageByExt = map[string]string{
	".go":    "Go",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".mjs":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".py":    "Python",
	".rb":    "Ruby",
	".rs":    "Rust",
	".java":  "Java",
	".kt":    "Kotlin",
	".c":     "C",
	".h":     "C",
	".cc":    "C++",
	".cpp":   "C++",
	".hpp":   "C++",
	".cs":    "C#",
	".php":   "PHP",
	".swift": "Swift",
	".sh":    "Shell",
	".bash":  "Shell",
	".sql":   "SQL",
	".html":  "HTML",
	".css":   "CSS",
	".scss":  "CSS",
	".md":    "Markdown",
	".yaml":  "YAML",
	".yml":   "YAML",
	".json":  "JSON",
	".toml":  "TOML",
	".proto": "Protobuf",
}

// manifestFiles are build and dependency manifests worth surfacing.
var manifestFiles = map[string]bool{
	"go.mod":             true,
	"package.json":       true,
	"Cargo.toml":         true,
	"pyproject.toml":     true,
	"setup.py":           true,
	"requirements.txt":   true,
	"Gemfile":            true,
	"pom.xml":            true,
	"build.gradle":       true,
	"build.gradle.kts":   true,
	"CMakeLists.txt":     true,
	"Makefile":           true,
	"Dockerfile":         true,
	"docker-compose.yml": true,
}

// entryPointNames are conventional program entry files.
var entryPointNames = map[string]bool{
	"main.go":   true,
	"main.py":   true,
	"main.rs":   true,
	"index.js":  true,
	"index.ts":  true,
	"app.py":    true,
	"manage.py": true,
}

// skipDirs are dependency and build output directories excluded from the walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
}

func (t *AnalyzeProjectTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        AnalyzeProjectToolName,
		Description: "Analyze project structure: languages, manifest files, entry points, and directory layout. Use this first to orient yourself in an unfamiliar codebase.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Project root to analyze (defaults to current directory)",
				},
			},
			"additionalProperties": false,
		},
	}
}

func (t *AnalyzeProjectTool) Preview(args json.RawMessage) string {
	var a AnalyzeProjectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return ""
	}
	if a.Path == "" {
		return "."
	}
	return a.Path
}

func (t *AnalyzeProjectTool) Execute(ctx context.Context, args json.RawMessage) (llm.ToolOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	var a AnalyzeProjectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return llm.ErrorOutput(formatToolError(NewToolError(ErrInvalidParams, err.Error()))), nil
	}

	root := a.Path
	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "cannot get working directory: %v", err))), nil
		}
	}

	if t.approval != nil {
		outcome, err := t.approval.CheckPath(AnalyzeProjectToolName, root, false)
		if err != nil {
			return llm.ErrorOutput(approvalErrorText(err)), nil
		}
		if outcome == Cancel {
			return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrPermissionDenied, "access denied: %s", root))), nil
		}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrInvalidParams, "cannot resolve path: %v", err))), nil
	}
	if info, err := os.Stat(absRoot); err != nil {
		if os.IsNotExist(err) {
			return llm.ErrorOutput(formatToolError(NewToolError(ErrFileNotFound, root))), nil
		}
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "stat error: %v", err))), nil
	} else if !info.IsDir() {
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrInvalidParams, "%s is not a directory", root))), nil
	}

	summary, err := analyzeTree(ctx, absRoot)
	if err != nil {
		return llm.ErrorOutput(formatToolError(NewToolErrorf(ErrExecutionFailed, "walk error: %v", err))), nil
	}

	return llm.TextOutput(summary.format(absRoot)), nil
}

// projectSummary aggregates walk results.
type projectSummary struct {
	languages   map[string]int // language -> file count
	manifests   []string       // relative manifest paths
	entryPoints []string       // relative entry point paths
	topDirs     map[string]int // top-level dir -> recursive file count
	rootFiles   int
	totalFiles  int
	totalDirs   int
	truncated   bool
}

// analyzeTree walks the project and collects the summary.
func analyzeTree(ctx context.Context, absRoot string) (*projectSummary, error) {
	s := &projectSummary{
		languages: make(map[string]int),
		topDirs:   make(map[string]int),
	}

	err := filepath.WalkDir(absRoot, func(path string, d os.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil // Skip errors
		}
		if path == absRoot {
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				return filepath.SkipDir
			}
			s.totalDirs++
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		if s.totalFiles >= maxAnalyzeFiles {
			s.truncated = true
			return filepath.SkipAll
		}
		s.totalFiles++

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}

		if top, _, found := strings.Cut(relPath, string(filepath.Separator)); found {
			s.topDirs[top]++
		} else {
			s.rootFiles++
		}

		if lang, ok := languageByExt[strings.ToLower(filepath.Ext(name))]; ok {
			s.languages[lang]++
		}
		if manifestFiles[name] {
			s.manifests = append(s.manifests, relPath)
		}
		if entryPointNames[name] {
			s.entryPoints = append(s.entryPoints, relPath)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(s.manifests)
	sort.Strings(s.entryPoints)
	return s, nil
}

// format renders the summary as text.
func (s *projectSummary) format(absRoot string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Project: %s\n", absRoot))

	if len(s.manifests) > 0 {
		sb.WriteString(fmt.Sprintf("Manifests: %s\n", strings.Join(capList(s.manifests, 15), ", ")))
	}

	if len(s.languages) > 0 {
		type langCount struct {
			name  string
			count int
		}
		counts := make([]langCount, 0, len(s.languages))
		total := 0
		for name, count := range s.languages {
			counts = append(counts, langCount{name, count})
			total += count
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].count != counts[j].count {
				return counts[i].count > counts[j].count
			}
			return counts[i].name < counts[j].name
		})

		parts := make([]string, 0, len(counts))
		for i, lc := range counts {
			if i >= 8 {
				parts = append(parts, fmt.Sprintf("+%d more", len(counts)-i))
				break
			}
			parts = append(parts, fmt.Sprintf("%s (%d files, %d%%)", lc.name, lc.count, lc.count*100/total))
		}
		sb.WriteString(fmt.Sprintf("Languages: %s\n", strings.Join(parts, ", ")))
	}

	if len(s.entryPoints) > 0 {
		sb.WriteString(fmt.Sprintf("Entry points: %s\n", strings.Join(capList(s.entryPoints, 10), ", ")))
	}

	if len(s.topDirs) > 0 {
		sb.WriteString("Layout:\n")
		type dirCount struct {
			name  string
			count int
		}
		dirs := make([]dirCount, 0, len(s.topDirs))
		for name, count := range s.topDirs {
			dirs = append(dirs, dirCount{name, count})
		}
		sort.Slice(dirs, func(i, j int) bool {
			if dirs[i].count != dirs[j].count {
				return dirs[i].count > dirs[j].count
			}
			return dirs[i].name < dirs[j].name
		})
		for i, dc := range dirs {
			if i >= 12 {
				sb.WriteString(fmt.Sprintf("  ... and %d more directories\n", len(dirs)-i))
				break
			}
			sb.WriteString(fmt.Sprintf("  %-20s %d files\n", dc.name+"/", dc.count))
		}
		if s.rootFiles > 0 {
			sb.WriteString(fmt.Sprintf("  %-20s %d files\n", "(root)", s.rootFiles))
		}
	}

	sb.WriteString(fmt.Sprintf("Total: %d files in %d directories", s.totalFiles, s.totalDirs))
	if s.truncated {
		sb.WriteString(fmt.Sprintf(" (walk stopped at %d files)", maxAnalyzeFiles))
	}

	return sb.String()
}

// capList truncates a list for display, noting how many were omitted.
func capList(items []string, max int) []string {
	if len(items) <= max {
		return items
	}
	out := append([]string(nil), items[:max]...)
	return append(out, fmt.Sprintf("+%d more", len(items)-max))
}
