package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/pdfmarks/internal/doctree"
)

// TextParser reads a plain-text table of contents: one entry per line,
// nesting by indentation, optional printed page number at the end.
//
//	Introduction ........ 1
//	Part I .............. 3
//	  Chapter 1 ......... 3
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := newOutlineBuilder()
	// indents[i] is the indentation width of level i+1.
	var indents []int
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		width := indentWidth(line)
		for len(indents) > 0 && indents[len(indents)-1] > width {
			indents = indents[:len(indents)-1]
		}
		if len(indents) == 0 || indents[len(indents)-1] < width {
			indents = append(indents, width)
		}
		b.addRef(len(indents), line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return b.tree(titleFromFilename(filename), 0), nil
}

// indentWidth counts leading whitespace with tabs as four columns.
func indentWidth(line string) int {
	w := 0
	for _, r := range line {
		switch r {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return w
		}
	}
	return w
}
