package parser

import (
	"html"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/pdfmarks/internal/doctree"
	"github.com/microcosm-cc/bluemonday"
)

// strict drops any markup that leaks into imported titles.
var strict = bluemonday.StrictPolicy()

var (
	// "Introduction ........ 12" or "Introduction<TAB>12"
	leaderRef = regexp.MustCompile(`^(.*?)\s*(?:\.{2,}|…+|\t)\s*(\d+)\s*$`)
	// "Introduction (p. 12)" or "Introduction [page 12]"
	parenRef = regexp.MustCompile(`(?i)^(.*?)\s*[\(\[]\s*(?:p\.?|pp\.?|page)\s*(\d+)\s*[\)\]]\s*$`)
	spaces   = regexp.MustCompile(`\s+`)
)

// splitPageRef separates a printed, one-based page reference from a TOC
// entry and returns the zero-based page.
func splitPageRef(s string) (title string, page int, ok bool) {
	s = strings.TrimSpace(s)
	for _, re := range []*regexp.Regexp{parenRef, leaderRef} {
		m := re.FindStringSubmatch(s)
		if m == nil || strings.TrimSpace(m[1]) == "" {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 {
			continue
		}
		return strings.TrimSpace(m[1]), n - 1, true
	}
	return s, 0, false
}

// cleanTitle strips markup, decodes entities and collapses whitespace.
func cleanTitle(s string) string {
	s = html.UnescapeString(strict.Sanitize(s))
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type stackEntry struct {
	node  *doctree.DocNode
	level int
}

// outlineBuilder nests entries by heading level. A deeper level than the
// current one becomes a child of it regardless of how many levels it skips,
// so the resulting tree never has gaps.
type outlineBuilder struct {
	root     doctree.DocNode
	stack    []stackEntry
	lastPage int
}

func newOutlineBuilder() *outlineBuilder {
	b := &outlineBuilder{}
	b.stack = []stackEntry{{node: &b.root, level: 0}}
	return b
}

// add appends an entry. Entries without a page inherit the page of the
// previous entry.
func (b *outlineBuilder) add(level int, title string, page int, hasPage bool) {
	title = cleanTitle(title)
	if title == "" {
		return
	}
	if level < 1 {
		level = 1
	}
	if !hasPage {
		page = b.lastPage
	}
	b.lastPage = page

	n := &doctree.DocNode{Title: title, Page: page}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, n)
	b.stack = append(b.stack, stackEntry{node: n, level: level})
}

// addRef is add for a raw TOC line that may carry a printed page number.
func (b *outlineBuilder) addRef(level int, line string) {
	title, page, ok := splitPageRef(line)
	b.add(level, title, page, ok)
}

func (b *outlineBuilder) tree(title string, pageCount int) *doctree.DocTree {
	return &doctree.DocTree{
		Title:     title,
		PageCount: pageCount,
		Children:  b.root.Children,
	}
}
