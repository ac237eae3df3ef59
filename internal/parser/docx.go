package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/pdfmarks/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser builds an outline from a Word document. A generated table of
// contents (paragraphs styled TOC1..TOC9) wins because it carries printed
// page numbers; otherwise Heading1..Heading9 paragraphs are used, with
// "Title" counting as level 1.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var toc, headings []docxEntry
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		kind, level := docxStyleLevel(para)
		if level == 0 {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		e := docxEntry{level: level, text: text}
		if kind == "toc" {
			toc = append(toc, e)
		} else {
			headings = append(headings, e)
		}
	}

	entries := headings
	if len(toc) > 0 {
		entries = toc
	}
	b := newOutlineBuilder()
	for _, e := range entries {
		b.addRef(e.level, e.text)
	}
	return b.tree(titleFromFilename(filename), 0), nil
}

type docxEntry struct {
	level int
	text  string
}

// docxStyleLevel returns "toc" or "heading" and a level in 1..9, or a zero
// level for body paragraphs.
func docxStyleLevel(para *docx.Paragraph) (string, int) {
	if para.Properties == nil || para.Properties.Style == nil {
		return "", 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if style == "title" {
		return "heading", 1
	}
	for _, kind := range []string{"heading", "toc"} {
		rest, ok := strings.CutPrefix(style, kind)
		if ok && len(rest) == 1 && rest[0] >= '1' && rest[0] <= '9' {
			return kind, int(rest[0] - '0')
		}
	}
	return "", 0
}

// docxParagraphText keeps tabs so a trailing "\t12" is read as a page.
func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch t := rc.(type) {
			case *docx.Text:
				buf.WriteString(t.Text)
			case *docx.Tab:
				buf.WriteByte('\t')
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
