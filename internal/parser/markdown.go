package parser

import (
	"bytes"
	"io"

	"github.com/dgallion1/pdfmarks/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser reads headings as bookmarks. A heading may end with a
// printed page reference such as "(p. 12)" or "..... 12".
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	b := newOutlineBuilder()
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			b.addRef(h.Level, inlineText(h, src))
		}
	}
	return b.tree(titleFromFilename(filename), 0), nil
}

// inlineText concatenates the text of a node's inline children, keeping raw
// inline HTML so cleanTitle can strip it.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.RawHTML:
			for i := 0; i < t.Segments.Len(); i++ {
				seg := t.Segments.At(i)
				buf.Write(seg.Value(src))
			}
		default:
			buf.WriteString(inlineText(c, src))
		}
	}
	return buf.String()
}
