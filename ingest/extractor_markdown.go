package ingest

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

var _ Extractor = (*MarkdownExtractor)(nil)

// MarkdownExtractor converts markdown to plain text by walking the parsed
// AST, dropping formatting while keeping the written content. Code blocks
// survive verbatim; link text survives without its URL.
type MarkdownExtractor struct{}

// Extract returns the plain text content of a markdown document.
func (MarkdownExtractor) Extract(content []byte) (string, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(gmtext.NewReader(content))

	var out strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if _, ok := n.(*ast.Paragraph); ok {
				out.WriteString("\n\n")
			}
			if _, ok := n.(*ast.Heading); ok {
				out.WriteString("\n\n")
			}
			if _, ok := n.(*ast.ListItem); ok {
				out.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			out.Write(node.Segment.Value(content))
			if node.SoftLineBreak() || node.HardLineBreak() {
				out.WriteByte('\n')
			}
		case *ast.FencedCodeBlock:
			writeLines(&out, node, content)
			out.WriteString("\n\n")
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			writeLines(&out, node, content)
			out.WriteString("\n\n")
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan:
			// children are Text nodes; fall through
		case *ast.Image:
			// drop alt text and URL
			return ast.WalkSkipChildren, nil
		case *ast.ThematicBreak:
			out.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return NormalizeText(out.String()), nil
}

// writeLines copies a code block's raw lines into out.
func writeLines(out *strings.Builder, n ast.Node, content []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out.Write(seg.Value(content))
	}
}
