package ui

import (
	"strings"
	"testing"
)

const sampleMarkdown = "Here is a function:\n\n```go\nfunc add(a, b int) int {\n\treturn a + b\n}\n```\n\nAnd the test:\n\n```go\nfunc TestAdd(t *testing.T) {}\n```\n\nDone.\n"

func TestExtractCodeBlocks(t *testing.T) {
	blocks := ExtractCodeBlocks(sampleMarkdown)

	if len(blocks) != 2 {
		t.Fatalf("len(blocks) = %d, want 2", len(blocks))
	}
	if blocks[0].Language != "go" {
		t.Errorf("Language = %q, want go", blocks[0].Language)
	}
	if !strings.Contains(blocks[0].Code, "func add(a, b int) int {") {
		t.Errorf("block 0 code = %q", blocks[0].Code)
	}
	if !strings.Contains(blocks[1].Code, "TestAdd") {
		t.Errorf("block 1 code = %q", blocks[1].Code)
	}
}

func TestExtractCodeBlocks_None(t *testing.T) {
	if blocks := ExtractCodeBlocks("just prose, no code"); len(blocks) != 0 {
		t.Errorf("expected no blocks, got %d", len(blocks))
	}
}

func TestExtractCodeBlocks_NoLanguage(t *testing.T) {
	blocks := ExtractCodeBlocks("```\nplain fence\n```\n")
	if len(blocks) != 1 {
		t.Fatalf("len(blocks) = %d, want 1", len(blocks))
	}
	if blocks[0].Language != "" {
		t.Errorf("Language = %q, want empty", blocks[0].Language)
	}
	if blocks[0].Code != "plain fence\n" {
		t.Errorf("Code = %q", blocks[0].Code)
	}
}

func TestLastCodeBlock(t *testing.T) {
	block, ok := LastCodeBlock(sampleMarkdown)
	if !ok {
		t.Fatal("expected a block")
	}
	if !strings.Contains(block.Code, "TestAdd") {
		t.Errorf("last block = %q, want the second one", block.Code)
	}

	if _, ok := LastCodeBlock("no code here"); ok {
		t.Error("expected ok=false without blocks")
	}
}

func TestCodeOnly(t *testing.T) {
	out := CodeOnly(sampleMarkdown)

	if strings.Contains(out, "Here is a function") {
		t.Error("prose should be stripped")
	}
	if !strings.Contains(out, "func add(a, b int) int {") {
		t.Errorf("missing first block:\n%s", out)
	}
	if !strings.Contains(out, "func TestAdd(t *testing.T) {}") {
		t.Errorf("missing second block:\n%s", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("output should end with a newline")
	}

	if CodeOnly("prose only") != "" {
		t.Error("no blocks should produce empty output")
	}
}
