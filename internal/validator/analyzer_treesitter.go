package validator

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// maxSyntaxErrors caps how many parse errors a single submission reports.
const maxSyntaxErrors = 5

// TreeSitterAnalyzer parses submissions in-process with the tree-sitter
// Python grammar. It only implements the syntax pass.
type TreeSitterAnalyzer struct {
	lang *sitter.Language
}

// NewTreeSitterAnalyzer creates the tree-sitter backed analyzer.
func NewTreeSitterAnalyzer() *TreeSitterAnalyzer {
	return &TreeSitterAnalyzer{lang: python.GetLanguage()}
}

func (a *TreeSitterAnalyzer) Name() string {
	return string(ModeTreeSitter)
}

// CheckSyntax reports ERROR and MISSING nodes of the parse tree.
func (a *TreeSitterAnalyzer) CheckSyntax(ctx context.Context, code string) (Diagnostics, error) {
	// parsers are not safe for concurrent use
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(a.lang)

	content := []byte(code)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return Diagnostics{}, fmt.Errorf("%w: parse failed: %v", ErrToolUnavailable, err)
	}
	defer tree.Close()

	var diags Diagnostics
	root := tree.RootNode()
	if !root.HasError() {
		return diags, nil
	}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if len(diags.Errors) >= maxSyntaxErrors {
			return
		}
		line := int(n.StartPoint().Row) + 1

		if n.IsMissing() {
			diags.Errors = append(diags.Errors, fmt.Sprintf("Line %d: SyntaxError: missing '%s'", line, n.Type()))
			return
		}
		if n.Type() == "ERROR" {
			snippet := strings.TrimSpace(n.Content(content))
			if i := strings.IndexByte(snippet, '\n'); i >= 0 {
				snippet = snippet[:i]
			}
			if r := []rune(snippet); len(r) > 40 {
				snippet = string(r[:40])
			}
			diags.Errors = append(diags.Errors, fmt.Sprintf("Line %d: SyntaxError: invalid syntax near '%s'", line, snippet))
			return
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	return diags, nil
}

// CheckStyle is not supported; the fallback analyzer handles style.
func (a *TreeSitterAnalyzer) CheckStyle(_ context.Context, _ string) (Diagnostics, error) {
	return Diagnostics{}, fmt.Errorf("%w: tree-sitter has no style pass", ErrToolUnavailable)
}
