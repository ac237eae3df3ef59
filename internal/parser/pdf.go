package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/pdfmarks/internal/doctree"
	"github.com/dgallion1/pdfmarks/internal/pdfio"
	"github.com/dgallion1/pdfmarks/internal/ranges"
)

// headingScanLines is how many leading non-empty lines of a page are
// checked for a chapter heading.
const headingScanLines = 3

// PDFParser reads the bookmarks stored in a PDF. With TextFallback set, a
// PDF without bookmarks gets one top-level entry per page that opens with
// a chapter-like heading.
type PDFParser struct {
	TextFallback bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	// pdfcpu and ledongthuc/pdf both need random access, so spool to disk.
	tmp, err := os.CreateTemp("", "pdfmarks-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	defer tmp.Close()

	if _, err := io.Copy(tmp, r); err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}

	tree, err := pdfio.ReadOutline(tmp)
	if err != nil {
		return nil, err
	}
	tree.Title = titleFromFilename(filename)

	if len(tree.Children) > 0 || !p.TextFallback {
		return tree, nil
	}

	texts, err := pdfio.PageTexts(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	tree.Children = detectHeadings(texts)
	return tree, nil
}

// detectHeadings builds a flat outline from pages whose first lines look
// like chapter titles.
func detectHeadings(pages []string) []*doctree.DocNode {
	var out []*doctree.DocNode
	for i, text := range pages {
		seen := 0
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if ranges.IsChapterTitle(line) {
				if title := cleanTitle(line); title != "" {
					out = append(out, &doctree.DocNode{Title: title, Page: i})
				}
				break
			}
			seen++
			if seen == headingScanLines {
				break
			}
		}
	}
	return out
}
