package export

import (
	"io"
	"strconv"

	"github.com/dgallion1/pdfmarks/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXWriter emits one Heading-styled paragraph per bookmark with the page
// after a tab, so Word can build a table of contents from it.
type DOCXWriter struct{}

func (DOCXWriter) Write(w io.Writer, doc *doctree.DocTree) error {
	d := docx.New().WithDefaultTheme()
	if doc.Title != "" {
		d.AddParagraph().AddText(doc.Title).Size("32").Bold()
	}
	doc.Walk(func(n *doctree.DocNode, level int) {
		p := d.AddParagraph().Style("Heading" + strconv.Itoa(min(level, 9)))
		p.AddText(n.Title)
		p.AddTab()
		p.AddText(strconv.Itoa(n.Page + 1))
	})
	_, err := d.WriteTo(w)
	return err
}

func (DOCXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}
func (DOCXWriter) Ext() string { return ".docx" }
