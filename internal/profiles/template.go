package profiles

import (
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"
)

// TemplateContext holds values for placeholder expansion in system prompts.
type TemplateContext struct {
	Date     string // YYYY-MM-DD
	DateTime string // YYYY-MM-DD HH:MM:SS
	Time     string // HH:MM

	Cwd     string // full working directory
	CwdName string // directory name only

	// Git info, empty outside a repository.
	GitBranch string
	GitRepo   string

	OS string
}

// NewTemplateContext creates a context from the current environment.
func NewTemplateContext() TemplateContext {
	now := time.Now()

	ctx := TemplateContext{
		Date:     now.Format("2006-01-02"),
		DateTime: now.Format("2006-01-02 15:04:05"),
		Time:     now.Format("15:04"),
		OS:       runtime.GOOS,
	}

	if cwd, err := os.Getwd(); err == nil {
		ctx.Cwd = cwd
		ctx.CwdName = filepath.Base(cwd)
	}

	ctx.GitBranch = gitBranch()
	ctx.GitRepo = gitRepoName()

	return ctx
}

var templateVarRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// ExpandTemplate replaces {{variable}} placeholders with values from ctx.
// Unknown variables are left as-is.
func ExpandTemplate(text string, ctx TemplateContext) string {
	return templateVarRe.ReplaceAllStringFunc(text, func(match string) string {
		switch strings.Trim(match, "{}") {
		case "date":
			return ctx.Date
		case "datetime":
			return ctx.DateTime
		case "time":
			return ctx.Time
		case "cwd":
			return ctx.Cwd
		case "cwd_name":
			return ctx.CwdName
		case "git_branch":
			return ctx.GitBranch
		case "git_repo":
			return ctx.GitRepo
		case "os":
			return ctx.OS
		default:
			return match
		}
	})
}

// projectInstructionFiles lists instruction files to search for,
// in priority order. The first one found wins.
var projectInstructionFiles = []string{
	"AGENTS.md",
	"CLAUDE.md",
	".github/copilot-instructions.md",
	"CONTRIBUTING.md",
}

// DiscoverProjectInstructions looks for a project instruction file in the
// working directory, then at the git root. Returns the file content with a
// header naming the source, or empty string when nothing is found.
func DiscoverProjectInstructions() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dirs := []string{cwd}
	if root := gitRoot(cwd); root != "" && root != cwd {
		dirs = append(dirs, root)
	}

	for _, dir := range dirs {
		for _, name := range projectInstructionFiles {
			path := filepath.Join(dir, name)
			content, err := os.ReadFile(path)
			if err != nil || len(content) == 0 {
				continue
			}
			rel := name
			if dir != cwd {
				if r, err := filepath.Rel(cwd, path); err == nil {
					rel = r
				}
			}
			return "# Project Instructions (from " + rel + ")\n\n" + string(content)
		}
	}

	return ""
}

func gitBranch() string {
	out, err := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func gitRepoName() string {
	out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return ""
	}
	return filepath.Base(strings.TrimSpace(string(out)))
}

func gitRoot(dir string) string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
