package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func makeFindFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := []string{
		"main.go",
		"util.go",
		"readme.md",
		filepath.Join("pkg", "server", "server.go"),
		filepath.Join("pkg", "server", "server_test.go"),
		filepath.Join(".git", "config"),
	}
	for _, f := range files {
		path := filepath.Join(dir, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("content\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestFindFilesTool_Recursive(t *testing.T) {
	dir := makeFindFixture(t)
	tool := NewFindFilesTool(nil)

	output, err := tool.Execute(context.Background(), mustMarshal(t, FindFilesArgs{
		Pattern: "**/*.go",
		Path:    dir,
	}))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if output.IsError {
		t.Fatalf("unexpected error output: %s", output.Content)
	}

	for _, want := range []string{"main.go", "util.go", "server.go", "server_test.go"} {
		if !strings.Contains(output.Content, want) {
			t.Errorf("expected %s in results: %s", want, output.Content)
		}
	}
	if strings.Contains(output.Content, "readme.md") {
		t.Errorf("non-matching file in results: %s", output.Content)
	}
	if strings.Contains(output.Content, ".git") {
		t.Errorf("hidden directories should be skipped: %s", output.Content)
	}
}

func TestFindFilesTool_TopLevelOnly(t *testing.T) {
	dir := makeFindFixture(t)
	tool := NewFindFilesTool(nil)

	output, err := tool.Execute(context.Background(), mustMarshal(t, FindFilesArgs{
		Pattern: "*.go",
		Path:    dir,
	}))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !strings.Contains(output.Content, "main.go") {
		t.Errorf("expected main.go: %s", output.Content)
	}
	if strings.Contains(output.Content, "server.go") {
		t.Errorf("*.go should not recurse: %s", output.Content)
	}
}

func TestFindFilesTool_NoMatch(t *testing.T) {
	tool := NewFindFilesTool(nil)

	output, err := tool.Execute(context.Background(), mustMarshal(t, FindFilesArgs{
		Pattern: "**/*.zig",
		Path:    t.TempDir(),
	}))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !strings.Contains(output.Content, "No files matched") {
		t.Errorf("expected no-match message, got: %s", output.Content)
	}
}

func TestFindFilesTool_MissingPattern(t *testing.T) {
	tool := NewFindFilesTool(nil)

	output, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !output.IsError || !strings.Contains(output.Content, "pattern is required") {
		t.Errorf("expected pattern-required error, got: %s", output.Content)
	}
}

func TestFindFilesTool_WarnsUnknownParams(t *testing.T) {
	dir := makeFindFixture(t)
	tool := NewFindFilesTool(nil)

	output, err := tool.Execute(context.Background(), mustMarshal(t, map[string]interface{}{
		"pattern": "*.go",
		"path":    dir,
		"glob":    "*.go",
	}))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !strings.Contains(output.Content, "Unknown parameter 'glob' was ignored") {
		t.Errorf("expected unknown-parameter warning, got: %s", output.Content)
	}
	if !strings.Contains(output.Content, "main.go") {
		t.Errorf("search should still run: %s", output.Content)
	}
}

func TestFindFilesTool_Preview(t *testing.T) {
	tool := NewFindFilesTool(nil)

	if got := tool.Preview(mustMarshal(t, FindFilesArgs{Pattern: "**/*.go"})); got != "**/*.go" {
		t.Errorf("preview = %q", got)
	}
	if got := tool.Preview(mustMarshal(t, FindFilesArgs{Pattern: "*.ts", Path: "src"})); got != "*.ts in src" {
		t.Errorf("preview = %q", got)
	}
}
