// Package pdfio reads and writes PDF outlines and extracts page ranges.
// Outline and page operations go through pdfcpu; page text for heading
// detection comes from ledongthuc/pdf.
package pdfio

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/pdfmarks/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func newConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount returns the number of pages in the PDF.
func PageCount(rs io.ReadSeeker) (int, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := api.PageCount(rs, newConfig())
	if err != nil {
		return 0, fmt.Errorf("pdf page count: %w", err)
	}
	return n, nil
}

// ReadOutline returns the PDF's bookmarks with zero-based pages. A PDF
// without an outline yields a tree with no children.
func ReadOutline(rs io.ReadSeeker) (*doctree.DocTree, error) {
	n, err := PageCount(rs)
	if err != nil {
		return nil, err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	bms, err := api.Bookmarks(rs, newConfig())
	if err != nil && !noOutline(err) {
		return nil, fmt.Errorf("read pdf bookmarks: %w", err)
	}
	return &doctree.DocTree{
		PageCount: n,
		Children:  fromBookmarks(bms, n),
	}, nil
}

// noOutline matches pdfcpu's "no outlines"/"no bookmarks" errors, which
// are not exported as sentinels.
func noOutline(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no outline") || strings.Contains(msg, "no bookmarks")
}

func fromBookmarks(bms []pdfcpu.Bookmark, pageCount int) []*doctree.DocNode {
	if len(bms) == 0 {
		return nil
	}
	out := make([]*doctree.DocNode, 0, len(bms))
	for _, bm := range bms {
		page := bm.PageFrom - 1
		if page < 0 {
			page = 0
		}
		if pageCount > 0 && page >= pageCount {
			page = pageCount - 1
		}
		out = append(out, &doctree.DocNode{
			Title:    strings.TrimSpace(bm.Title),
			Page:     page,
			Children: fromBookmarks(bm.Kids, pageCount),
		})
	}
	return out
}

func toBookmarks(nodes []*doctree.DocNode) []pdfcpu.Bookmark {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]pdfcpu.Bookmark, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, pdfcpu.Bookmark{
			Title:    n.Title,
			PageFrom: n.Page + 1,
			Kids:     toBookmarks(n.Children),
		})
	}
	return out
}

// WriteOutline copies the PDF read from rs to w with its outline replaced
// by doc. An empty doc removes the outline.
func WriteOutline(rs io.ReadSeeker, w io.Writer, doc *doctree.DocTree) error {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return err
	}
	conf := newConfig()
	if len(doc.Children) == 0 {
		if err := api.RemoveBookmarks(rs, w, conf); err != nil {
			return fmt.Errorf("remove pdf bookmarks: %w", err)
		}
		return nil
	}
	if err := api.AddBookmarks(rs, w, toBookmarks(doc.Children), true, conf); err != nil {
		return fmt.Errorf("write pdf bookmarks: %w", err)
	}
	return nil
}

// ExtractPages writes the zero-based, inclusive page span first..last of
// the PDF to w.
func ExtractPages(rs io.ReadSeeker, w io.Writer, first, last int) error {
	if first < 0 || last < first {
		return fmt.Errorf("bad page span %d-%d", first+1, last+1)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return err
	}
	sel := []string{fmt.Sprintf("%d-%d", first+1, last+1)}
	if err := api.Trim(rs, w, sel, newConfig()); err != nil {
		return fmt.Errorf("extract pages %s: %w", sel[0], err)
	}
	return nil
}

// PageTexts returns the plain text of each page, indexed from zero. Pages
// whose text cannot be decoded come back empty.
func PageTexts(path string) ([]string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := reader.NumPage()
	texts := make([]string, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		texts[i-1] = text
	}
	return texts, nil
}

// ReadOutlineFile is ReadOutline for a path.
func ReadOutlineFile(path string) (*doctree.DocTree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadOutline(f)
}

// WriteOutlineFile writes a copy of src to dst carrying doc as its outline.
func WriteOutlineFile(src, dst string, doc *doctree.DocTree) error {
	return withFiles(src, dst, func(in *os.File, out *os.File) error {
		return WriteOutline(in, out, doc)
	})
}

// ExtractPagesFile writes pages first..last of src to dst.
func ExtractPagesFile(src, dst string, first, last int) error {
	return withFiles(src, dst, func(in *os.File, out *os.File) error {
		return ExtractPages(in, out, first, last)
	})
}

func withFiles(src, dst string, fn func(in, out *os.File) error) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := fn(in, out); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
