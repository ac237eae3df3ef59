package parser

import (
	"strings"
	"testing"
)

func TestMarkdownParser_HeadingHierarchy(t *testing.T) {
	input := `# Title (p. 1)

Intro text.

## Section A (p. 3)

Section A content.

### Subsection A1 ..... 4

Subsection A1 content.

## Section B (page 9)

Section B content.
`
	p := &MarkdownParser{}
	tree, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tree.Title != "doc" {
		t.Errorf("expected title %q, got %q", "doc", tree.Title)
	}
	if tree.PageCount != 0 {
		t.Errorf("markdown cannot know the page count, got %d", tree.PageCount)
	}

	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 top-level child (h1), got %d", len(tree.Children))
	}
	h1 := tree.Children[0]
	if h1.Title != "Title" || h1.Page != 0 {
		t.Errorf("expected Title on page 0, got %q on %d", h1.Title, h1.Page)
	}

	if len(h1.Children) != 2 {
		t.Fatalf("expected 2 h2 children, got %d", len(h1.Children))
	}
	secA, secB := h1.Children[0], h1.Children[1]
	if secA.Title != "Section A" || secA.Page != 2 {
		t.Errorf("expected Section A on page 2, got %q on %d", secA.Title, secA.Page)
	}
	if secB.Title != "Section B" || secB.Page != 8 {
		t.Errorf("expected Section B on page 8, got %q on %d", secB.Title, secB.Page)
	}

	if len(secA.Children) != 1 {
		t.Fatalf("expected 1 h3 under Section A, got %d", len(secA.Children))
	}
	if sub := secA.Children[0]; sub.Title != "Subsection A1" || sub.Page != 3 {
		t.Errorf("expected Subsection A1 on page 3, got %q on %d", sub.Title, sub.Page)
	}
}

func TestMarkdownParser_HeadingWithoutPageInheritsPrevious(t *testing.T) {
	input := "# One (p. 5)\n\n## Detail\n\n# Two (p. 7)\n"
	tree, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "x.md")
	if err != nil {
		t.Fatal(err)
	}
	if got := tree.Children[0].Children[0].Page; got != 4 {
		t.Errorf("expected inherited page 4, got %d", got)
	}
	if got := tree.Children[1].Page; got != 6 {
		t.Errorf("expected page 6, got %d", got)
	}
}

func TestMarkdownParser_SkippedLevelsNest(t *testing.T) {
	input := "# Top (p. 1)\n\n#### Deep (p. 2)\n"
	tree, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "x.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Children) != 1 || len(tree.Children[0].Children) != 1 {
		t.Fatalf("expected h4 nested directly under h1, got %+v", tree.Children)
	}
}

func TestMarkdownParser_InlineMarkupStripped(t *testing.T) {
	input := "# The *Real* <em>Story</em> &amp; More (p. 2)\n"
	tree, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "x.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 heading, got %d", len(tree.Children))
	}
	if got := tree.Children[0].Title; got != "The Real Story & More" {
		t.Errorf("unexpected title %q", got)
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	tree, err := (&MarkdownParser{}).Parse(strings.NewReader("just text\n\nmore text\n"), "x.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Children) != 0 {
		t.Errorf("expected empty outline, got %d entries", len(tree.Children))
	}
}
