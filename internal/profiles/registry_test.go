package profiles

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRegistry_Get(t *testing.T) {
	tmpDir := t.TempDir()
	localDir := filepath.Join(tmpDir, "local-profiles")
	userDir := filepath.Join(tmpDir, "user-profiles")

	writeProfile(t, filepath.Join(localDir, "local-only"), "name: local-only\n", "")
	writeProfile(t, filepath.Join(userDir, "user-only"), "name: user-only\n", "")

	r := &Registry{
		useBuiltin: true,
		cache:      make(map[string]*Profile),
		searchPaths: []searchPath{
			{path: localDir, source: SourceLocal},
			{path: userDir, source: SourceUser},
		},
	}

	p, err := r.Get("local-only")
	if err != nil {
		t.Fatalf("Get(local-only): %v", err)
	}
	if p.Source != SourceLocal {
		t.Errorf("Source = %v, want %v", p.Source, SourceLocal)
	}

	p, err = r.Get("user-only")
	if err != nil {
		t.Fatalf("Get(user-only): %v", err)
	}
	if p.Source != SourceUser {
		t.Errorf("Source = %v, want %v", p.Source, SourceUser)
	}

	p, err = r.Get("default")
	if err != nil {
		t.Fatalf("Get(default): %v", err)
	}
	if p.Source != SourceBuiltin {
		t.Errorf("Source = %v, want %v", p.Source, SourceBuiltin)
	}
	if p.SystemPrompt == "" {
		t.Error("builtin default should carry a system prompt")
	}

	if _, err := r.Get("nonexistent"); err == nil {
		t.Error("Get(nonexistent) should return error")
	}
}

func TestRegistry_LocalShadowsBuiltin(t *testing.T) {
	tmpDir := t.TempDir()
	localDir := filepath.Join(tmpDir, "local-profiles")

	writeProfile(t, filepath.Join(localDir, "default"),
		"name: default\ndescription: Custom default\n", "")

	r := &Registry{
		useBuiltin: true,
		cache:      make(map[string]*Profile),
		searchPaths: []searchPath{
			{path: localDir, source: SourceLocal},
		},
	}

	p, err := r.Get("default")
	if err != nil {
		t.Fatalf("Get(default): %v", err)
	}
	if p.Source != SourceLocal {
		t.Errorf("Source = %v, want %v (local should shadow builtin)", p.Source, SourceLocal)
	}
	if p.Description != "Custom default" {
		t.Errorf("Description = %q, want %q", p.Description, "Custom default")
	}
}

func TestRegistry_GetCaches(t *testing.T) {
	tmpDir := t.TempDir()
	localDir := filepath.Join(tmpDir, "local-profiles")
	writeProfile(t, filepath.Join(localDir, "cached"), "name: cached\n", "")

	r := &Registry{
		useBuiltin: false,
		cache:      make(map[string]*Profile),
		searchPaths: []searchPath{
			{path: localDir, source: SourceLocal},
		},
	}

	first, err := r.Get("cached")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	// Remove the directory; a second Get must come from the cache.
	if err := os.RemoveAll(filepath.Join(localDir, "cached")); err != nil {
		t.Fatal(err)
	}
	second, err := r.Get("cached")
	if err != nil {
		t.Fatalf("Get after removal: %v", err)
	}
	if first != second {
		t.Error("second Get should return the cached profile")
	}
}

func TestRegistry_List(t *testing.T) {
	tmpDir := t.TempDir()
	localDir := filepath.Join(tmpDir, "local-profiles")
	userDir := filepath.Join(tmpDir, "user-profiles")

	writeProfile(t, filepath.Join(localDir, "zeta"), "name: zeta\n", "")
	writeProfile(t, filepath.Join(userDir, "alpha"), "name: alpha\n", "")

	r := &Registry{
		useBuiltin: true,
		cache:      make(map[string]*Profile),
		searchPaths: []searchPath{
			{path: localDir, source: SourceLocal},
			{path: userDir, source: SourceUser},
		},
	}

	list := r.List()
	if len(list) != 2+len(builtinProfileNames) {
		t.Fatalf("len(List()) = %d, want %d", len(list), 2+len(builtinProfileNames))
	}

	// Local profiles sort first, builtins last.
	if list[0].Name != "zeta" || list[0].Source != SourceLocal {
		t.Errorf("List()[0] = %s (%s), want zeta (local)", list[0].Name, list[0].Source.SourceName())
	}
	if list[1].Name != "alpha" || list[1].Source != SourceUser {
		t.Errorf("List()[1] = %s (%s), want alpha (user)", list[1].Name, list[1].Source.SourceName())
	}
	for _, p := range list[2:] {
		if p.Source != SourceBuiltin {
			t.Errorf("expected builtin after local/user, got %s (%s)", p.Name, p.Source.SourceName())
		}
	}

	// Within builtins, names ascend.
	for i := 3; i < len(list); i++ {
		if list[i-1].Name > list[i].Name {
			t.Errorf("builtins not sorted: %s > %s", list[i-1].Name, list[i].Name)
		}
	}
}

func TestRegistry_ListFirstFoundWins(t *testing.T) {
	tmpDir := t.TempDir()
	localDir := filepath.Join(tmpDir, "local-profiles")
	userDir := filepath.Join(tmpDir, "user-profiles")

	writeProfile(t, filepath.Join(localDir, "dup"), "name: dup\ndescription: local copy\n", "")
	writeProfile(t, filepath.Join(userDir, "dup"), "name: dup\ndescription: user copy\n", "")

	r := &Registry{
		useBuiltin: false,
		cache:      make(map[string]*Profile),
		searchPaths: []searchPath{
			{path: localDir, source: SourceLocal},
			{path: userDir, source: SourceUser},
		},
	}

	list := r.List()
	if len(list) != 1 {
		t.Fatalf("len(List()) = %d, want 1", len(list))
	}
	if list[0].Description != "local copy" {
		t.Errorf("Description = %q, want local copy to win", list[0].Description)
	}
}

func TestRegistry_ListNames(t *testing.T) {
	tmpDir := t.TempDir()
	userDir := filepath.Join(tmpDir, "user-profiles")

	writeProfile(t, filepath.Join(userDir, "alpha"), "name: alpha\n", "")
	writeProfile(t, filepath.Join(userDir, "beta"), "name: beta\n", "")

	r := &Registry{
		useBuiltin: true,
		cache:      make(map[string]*Profile),
		searchPaths: []searchPath{
			{path: userDir, source: SourceUser},
		},
	}

	names := r.ListNames()
	if len(names) != 2+len(builtinProfileNames) {
		t.Fatalf("len(ListNames()) = %d, want %d", len(names), 2+len(builtinProfileNames))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("names not sorted: %s > %s", names[i-1], names[i])
		}
	}
	seen := make(map[string]bool)
	for _, n := range names {
		seen[n] = true
	}
	for _, want := range []string{"alpha", "beta", "default"} {
		if !seen[want] {
			t.Errorf("ListNames() missing %q", want)
		}
	}
}

func TestRegistry_UseBuiltinFalse(t *testing.T) {
	r := &Registry{
		useBuiltin:  false,
		cache:       make(map[string]*Profile),
		searchPaths: []searchPath{},
	}

	if _, err := r.Get("default"); err == nil {
		t.Error("Get(default) should fail when useBuiltin=false")
	}
	for _, p := range r.List() {
		if p.Source == SourceBuiltin {
			t.Errorf("List() returned builtin %q when useBuiltin=false", p.Name)
		}
	}
}

func TestBuiltinProfiles(t *testing.T) {
	for _, name := range builtinProfileNames {
		p, err := getBuiltinProfile(name)
		if err != nil {
			t.Fatalf("getBuiltinProfile(%s): %v", name, err)
		}
		if err := p.Validate(); err != nil {
			t.Errorf("builtin %s invalid: %v", name, err)
		}
		if p.Description == "" {
			t.Errorf("builtin %s has no description", name)
		}
	}

	if !IsBuiltinProfile("default") {
		t.Error("IsBuiltinProfile(default) = false")
	}
	if IsBuiltinProfile("nope") {
		t.Error("IsBuiltinProfile(nope) = true")
	}
}

func TestIsProfileDir(t *testing.T) {
	tmpDir := t.TempDir()

	valid := filepath.Join(tmpDir, "valid")
	writeProfile(t, valid, "name: valid\n", "")

	invalid := filepath.Join(tmpDir, "invalid")
	if err := os.MkdirAll(invalid, 0755); err != nil {
		t.Fatal(err)
	}

	if !isProfileDir(valid) {
		t.Error("isProfileDir(valid) = false, want true")
	}
	if isProfileDir(invalid) {
		t.Error("isProfileDir(invalid) = true, want false")
	}
	if isProfileDir(filepath.Join(tmpDir, "missing")) {
		t.Error("isProfileDir(missing) = true, want false")
	}
}
