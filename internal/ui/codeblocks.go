package ui

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is one code block extracted from a markdown document.
type CodeBlock struct {
	Language string // fence info string, empty for indented blocks
	Code     string
}

// codeBlockParser is a shared goldmark instance for AST extraction.
var codeBlockParser = goldmark.New()

// ExtractCodeBlocks returns all code blocks in the markdown document, in
// order. Both fenced and indented blocks count.
func ExtractCodeBlocks(markdown string) []CodeBlock {
	source := []byte(markdown)
	doc := codeBlockParser.Parser().Parse(text.NewReader(source))

	var blocks []CodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch block := n.(type) {
		case *ast.FencedCodeBlock:
			blocks = append(blocks, CodeBlock{
				Language: string(block.Language(source)),
				Code:     blockText(block, source),
			})
		case *ast.CodeBlock:
			blocks = append(blocks, CodeBlock{
				Code: blockText(block, source),
			})
		}
		return ast.WalkContinue, nil
	})

	return blocks
}

// LastCodeBlock returns the final code block of the document, which is
// usually the one the user wants to copy.
func LastCodeBlock(markdown string) (CodeBlock, bool) {
	blocks := ExtractCodeBlocks(markdown)
	if len(blocks) == 0 {
		return CodeBlock{}, false
	}
	return blocks[len(blocks)-1], true
}

// CodeOnly concatenates all code blocks, separated by blank lines. Used
// by --code output where prose is stripped.
func CodeOnly(markdown string) string {
	blocks := ExtractCodeBlocks(markdown)
	if len(blocks) == 0 {
		return ""
	}

	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, strings.TrimRight(b.Code, "\n"))
	}
	return strings.Join(parts, "\n\n") + "\n"
}

func blockText(n ast.Node, source []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return sb.String()
}
