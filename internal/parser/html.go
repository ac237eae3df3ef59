package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/pdfmarks/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser reads bookmarks from an HTML page. Heading tags (h1-h6) become
// bookmarks; when there are none, nested lists of page links such as
// <a href="#page=3"> are read instead, which is the shape the HTML writer
// emits. A data-page attribute on a heading overrides any page in its text.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := titleFromFilename(filename)
	if t := findTitle(doc); t != "" {
		title = t
	}

	root := doc
	if body := findBody(doc); body != nil {
		root = body
	}

	b := newOutlineBuilder()
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				text := textContent(n)
				if page, ok := pageAttr(n, "data-page"); ok {
					b.add(level, text, page, true)
				} else {
					b.addRef(level, text)
				}
				return
			}
			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if len(b.root.Children) == 0 {
		walkLists(b, root, 0)
	}

	return b.tree(title, 0), nil
}

// walkLists reads nested ul/ol structures; depth counts enclosing lists.
func walkLists(b *outlineBuilder, n *html.Node, depth int) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "ul", "ol":
			depth++
		case "li":
			if depth > 0 {
				addListItem(b, n, depth)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkLists(b, c, depth)
	}
}

// addListItem adds the text of li up to its first nested list.
func addListItem(b *outlineBuilder, li *html.Node, depth int) {
	var parts []string
	page, hasPage := -1, false
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
			break
		}
		if c.Type == html.ElementNode && c.Data == "a" {
			if pg, ok := pageAttr(c, "href"); ok {
				page, hasPage = pg, true
			}
		}
		if c.Type == html.TextNode {
			parts = append(parts, c.Data)
		} else {
			parts = append(parts, textContent(c))
		}
	}
	text := strings.Join(parts, " ")
	if hasPage {
		b.add(depth, text, page, true)
		return
	}
	b.addRef(depth, text)
}

// pageAttr reads a one-based page number from data-page="N" or
// href="...#page=N" and returns it zero-based.
func pageAttr(n *html.Node, key string) (int, bool) {
	for _, a := range n.Attr {
		if a.Key != key {
			continue
		}
		v := a.Val
		if key == "href" {
			i := strings.LastIndex(v, "#page=")
			if i < 0 {
				return 0, false
			}
			v = v[i+len("#page="):]
		}
		pg, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || pg < 1 {
			return 0, false
		}
		return pg - 1, true
	}
	return 0, false
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
