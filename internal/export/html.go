package export

import (
	"io"
	"strconv"

	"github.com/dgallion1/pdfmarks/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLWriter emits a standalone page with the outline as nested lists of
// #page=N links.
type HTMLWriter struct{}

func (HTMLWriter) Write(w io.Writer, doc *doctree.DocTree) error {
	title := doc.Title
	if title == "" {
		title = "Bookmarks"
	}

	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	htmlEl := element(atom.Html)
	head := element(atom.Head)
	titleEl := element(atom.Title)
	titleEl.AppendChild(text(title))
	head.AppendChild(titleEl)
	htmlEl.AppendChild(head)

	body := element(atom.Body)
	header := element(atom.Header)
	h1 := element(atom.H1)
	h1.AppendChild(text(title))
	header.AppendChild(h1)
	body.AppendChild(header)
	if list := listOf(doc.Children); list != nil {
		body.AppendChild(list)
	}
	htmlEl.AppendChild(body)
	root.AppendChild(htmlEl)

	return html.Render(w, root)
}

func (HTMLWriter) ContentType() string { return "text/html; charset=utf-8" }
func (HTMLWriter) Ext() string         { return ".html" }

func listOf(nodes []*doctree.DocNode) *html.Node {
	if len(nodes) == 0 {
		return nil
	}
	ul := element(atom.Ul)
	for _, n := range nodes {
		li := element(atom.Li)
		a := element(atom.A)
		a.Attr = []html.Attribute{{Key: "href", Val: "#page=" + strconv.Itoa(n.Page+1)}}
		a.AppendChild(text(n.Title))
		li.AppendChild(a)
		if sub := listOf(n.Children); sub != nil {
			li.AppendChild(sub)
		}
		ul.AppendChild(li)
	}
	return ul
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
