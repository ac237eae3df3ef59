// Package ranges derives page ranges from a bookmark outline: one range per
// bookmark, or only the top-level entries that look like chapters.
package ranges

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/dgallion1/pdfmarks/internal/doctree"
)

var chapterKeywords = []string{"chapter", "section", "part"}

// IsChapterTitle reports whether a title reads like a chapter heading:
// it starts with chapter, section or part, or its first word is a bare
// number ("3", "12") or a lettered prefix ("A.", "IV.").
func IsChapterTitle(title string) bool {
	lower := strings.ToLower(strings.TrimSpace(title))
	for _, kw := range chapterKeywords {
		if strings.HasPrefix(lower, kw) {
			return true
		}
	}
	words := strings.Fields(lower)
	if len(words) == 0 {
		return false
	}
	first := []rune(words[0])
	switch {
	case unicode.IsDigit(first[0]):
		return !strings.Contains(words[0], ".")
	case unicode.IsLetter(first[0]):
		return len(first) > 1 && first[len(first)-1] == '.'
	}
	return false
}

// All returns a range for every bookmark in display order. A bookmark's
// range ends one page before its next sibling, or where its parent's range
// ends. The last top-level range ends at the last page.
func All(tree *doctree.DocTree) []doctree.Range {
	last := lastPage(tree)
	var out []doctree.Range
	for i, child := range tree.Children {
		end := last
		if i+1 < len(tree.Children) {
			end = tree.Children[i+1].Page - 1
		}
		walkNode(child, nil, 1, end, &out)
	}
	return out
}

func walkNode(node *doctree.DocNode, breadcrumb []string, level, end int, out *[]doctree.Range) {
	var bc []string
	bc = append(bc, breadcrumb...)
	bc = append(bc, node.Title)

	*out = append(*out, doctree.Range{
		Title:      node.Title,
		Level:      level,
		Breadcrumb: copyBreadcrumb(bc),
		PageStart:  node.Page,
		PageEnd:    max(end, node.Page),
	})

	for i, child := range node.Children {
		childEnd := end
		if i+1 < len(node.Children) {
			childEnd = node.Children[i+1].Page - 1
		}
		walkNode(child, bc, level+1, min(childEnd, max(end, node.Page)), out)
	}
}

// Chapters returns ranges for the top-level bookmarks whose titles look
// like chapters. Each ends one page before the next top-level bookmark,
// whether or not that one is a chapter, or at the last page.
func Chapters(tree *doctree.DocTree) []doctree.Range {
	last := lastPage(tree)
	var out []doctree.Range
	for i, child := range tree.Children {
		if !IsChapterTitle(child.Title) {
			continue
		}
		end := last
		if i+1 < len(tree.Children) {
			end = tree.Children[i+1].Page - 1
		}
		out = append(out, doctree.Range{
			Title:      child.Title,
			Level:      1,
			Breadcrumb: []string{child.Title},
			PageStart:  child.Page,
			PageEnd:    max(end, child.Page),
		})
	}
	return out
}

// Validation errors for hand-entered ranges.
var (
	ErrEmptyName     = errors.New("range name cannot be empty")
	ErrDuplicateName = errors.New("a range with this name already exists")
	ErrReversed      = errors.New("start page must be less than or equal to end page")
	ErrOutOfBounds   = errors.New("range outside the document")
	ErrOverlap       = errors.New("range overlaps an existing range")
)

// Validate checks a hand-entered range against the page count and the
// ranges already chosen. Pages are zero-based.
func Validate(r doctree.Range, pageCount int, existing []doctree.Range) error {
	name := strings.TrimSpace(r.Title)
	if name == "" {
		return ErrEmptyName
	}
	if r.PageStart > r.PageEnd {
		return ErrReversed
	}
	if r.PageStart < 0 || r.PageEnd >= pageCount {
		return fmt.Errorf("pages %d-%d, document has %d: %w", r.PageStart+1, r.PageEnd+1, pageCount, ErrOutOfBounds)
	}
	for _, e := range existing {
		if strings.TrimSpace(e.Title) == name {
			return fmt.Errorf("%q: %w", name, ErrDuplicateName)
		}
		if r.PageStart <= e.PageEnd && r.PageEnd >= e.PageStart {
			return fmt.Errorf("%q (pages %d-%d): %w", e.Title, e.PageStart+1, e.PageEnd+1, ErrOverlap)
		}
	}
	return nil
}

func lastPage(tree *doctree.DocTree) int {
	if tree.PageCount > 0 {
		return tree.PageCount - 1
	}
	return max(tree.MaxPage(), 0)
}

func copyBreadcrumb(bc []string) []string {
	if len(bc) == 0 {
		return nil
	}
	out := make([]string, len(bc))
	copy(out, bc)
	return out
}
