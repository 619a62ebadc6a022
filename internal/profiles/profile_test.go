package profiles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeProfile(t *testing.T, dir, yaml, system string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "profile.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	if system != "" {
		if err := os.WriteFile(filepath.Join(dir, "system.md"), []byte(system), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadFromDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "strict")
	writeProfile(t, dir, `name: strict
description: "Careful mode"
provider: anthropic
model: claude-sonnet-4-6
tools:
  disabled:
    - execute_command
shell:
  allow:
    - "git status"
    - "go test *"
max_turns: 10
`, "You are careful.\n")

	p, err := LoadFromDir(dir, SourceUser)
	if err != nil {
		t.Fatalf("LoadFromDir: %v", err)
	}

	if p.Name != "strict" {
		t.Errorf("Name = %q, want %q", p.Name, "strict")
	}
	if p.Description != "Careful mode" {
		t.Errorf("Description = %q", p.Description)
	}
	if p.Provider != "anthropic" || p.Model != "claude-sonnet-4-6" {
		t.Errorf("Provider/Model = %q/%q", p.Provider, p.Model)
	}
	if len(p.Tools.Disabled) != 1 || p.Tools.Disabled[0] != "execute_command" {
		t.Errorf("Tools.Disabled = %v", p.Tools.Disabled)
	}
	if len(p.Shell.Allow) != 2 || p.Shell.Allow[1] != "go test *" {
		t.Errorf("Shell.Allow = %v", p.Shell.Allow)
	}
	if p.MaxTurns != 10 {
		t.Errorf("MaxTurns = %d, want 10", p.MaxTurns)
	}
	if p.SystemPrompt != "You are careful.\n" {
		t.Errorf("SystemPrompt = %q", p.SystemPrompt)
	}
	if p.Source != SourceUser {
		t.Errorf("Source = %v, want %v", p.Source, SourceUser)
	}
	if p.SourcePath != dir {
		t.Errorf("SourcePath = %q, want %q", p.SourcePath, dir)
	}
}

func TestLoadFromDir_NameDefaultsToDirName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "unnamed")
	writeProfile(t, dir, "description: no name field\n", "")

	p, err := LoadFromDir(dir, SourceLocal)
	if err != nil {
		t.Fatalf("LoadFromDir: %v", err)
	}
	if p.Name != "unnamed" {
		t.Errorf("Name = %q, want directory name %q", p.Name, "unnamed")
	}
}

func TestLoadFromDir_MissingYAML(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFromDir(dir, SourceLocal); err == nil {
		t.Error("expected error for directory without profile.yaml")
	}
}

func TestLoadFromDir_NoSystemMD(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bare")
	writeProfile(t, dir, "name: bare\n", "")

	p, err := LoadFromDir(dir, SourceLocal)
	if err != nil {
		t.Fatalf("LoadFromDir: %v", err)
	}
	if p.SystemPrompt != "" {
		t.Errorf("SystemPrompt = %q, want empty", p.SystemPrompt)
	}
}

func TestLoadFromEmbedded(t *testing.T) {
	yaml := []byte("description: embedded test\nmodel: gpt-5.2\n")
	system := []byte("Be brief.")

	p, err := LoadFromEmbedded("terse", yaml, system)
	if err != nil {
		t.Fatalf("LoadFromEmbedded: %v", err)
	}
	if p.Name != "terse" {
		t.Errorf("Name = %q, want %q", p.Name, "terse")
	}
	if p.Source != SourceBuiltin {
		t.Errorf("Source = %v, want %v", p.Source, SourceBuiltin)
	}
	if p.SystemPrompt != "Be brief." {
		t.Errorf("SystemPrompt = %q", p.SystemPrompt)
	}
	if !strings.HasPrefix(p.SourcePath, "builtin:") {
		t.Errorf("SourcePath = %q, want builtin: prefix", p.SourcePath)
	}
}

func TestEnabledTools(t *testing.T) {
	all := []string{"read_file", "write_file", "edit_file", "execute_command"}

	tests := []struct {
		name    string
		profile Profile
		want    []string
	}{
		{
			name:    "enabled list wins",
			profile: Profile{Tools: ToolSelection{Enabled: []string{"read_file"}}},
			want:    []string{"read_file"},
		},
		{
			name:    "disabled list subtracts",
			profile: Profile{Tools: ToolSelection{Disabled: []string{"write_file", "execute_command"}}},
			want:    []string{"read_file", "edit_file"},
		},
		{
			name:    "no selection returns nil",
			profile: Profile{},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.profile.EnabledTools(all)
			if len(got) != len(tt.want) {
				t.Fatalf("EnabledTools = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("EnabledTools[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	p := Profile{Name: "ok"}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	p = Profile{}
	if err := p.Validate(); err == nil {
		t.Error("expected error for missing name")
	}

	p = Profile{
		Name: "both",
		Tools: ToolSelection{
			Enabled:  []string{"read_file"},
			Disabled: []string{"write_file"},
		},
	}
	if err := p.Validate(); err == nil {
		t.Error("expected error for both enabled and disabled lists")
	}
}

func TestSourceName(t *testing.T) {
	if got := SourceLocal.SourceName(); got != "local" {
		t.Errorf("SourceLocal.SourceName() = %q", got)
	}
	if got := SourceUser.SourceName(); got != "user" {
		t.Errorf("SourceUser.SourceName() = %q", got)
	}
	if got := SourceBuiltin.SourceName(); got != "builtin" {
		t.Errorf("SourceBuiltin.SourceName() = %q", got)
	}
}
