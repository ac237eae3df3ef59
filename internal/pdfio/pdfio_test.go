package pdfio

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dgallion1/pdfmarks/internal/doctree"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

func TestBookmarkConversion_PagesShiftByOne(t *testing.T) {
	nodes := []*doctree.DocNode{
		{Title: "One", Page: 0, Children: []*doctree.DocNode{{Title: "One.a", Page: 2}}},
		{Title: "Two", Page: 5},
	}
	bms := toBookmarks(nodes)
	if bms[0].PageFrom != 1 || bms[0].Kids[0].PageFrom != 3 || bms[1].PageFrom != 6 {
		t.Fatalf("expected one-based pages 1,3,6, got %d,%d,%d",
			bms[0].PageFrom, bms[0].Kids[0].PageFrom, bms[1].PageFrom)
	}

	back := fromBookmarks(bms, 10)
	if back[0].Page != 0 || back[0].Children[0].Page != 2 || back[1].Page != 5 {
		t.Errorf("round trip changed pages: %+v", back)
	}
}

func TestFromBookmarks_ClampsUnresolvedPages(t *testing.T) {
	got := fromBookmarks([]pdfcpu.Bookmark{
		{Title: " Lost ", PageFrom: 0},
		{Title: "Past end", PageFrom: 99},
	}, 10)
	if got[0].Page != 0 || got[0].Title != "Lost" {
		t.Errorf("unexpected first bookmark %+v", got[0])
	}
	if got[1].Page != 9 {
		t.Errorf("expected page clamped to 9, got %d", got[1].Page)
	}
}

func TestExtractPages_RejectsBadSpan(t *testing.T) {
	var out bytes.Buffer
	if err := ExtractPages(strings.NewReader(""), &out, 5, 2); err == nil {
		t.Error("expected error for reversed span")
	}
	if err := ExtractPages(strings.NewReader(""), &out, -1, 2); err == nil {
		t.Error("expected error for negative start")
	}
}

func TestReadOutline_NotAPDF(t *testing.T) {
	_, err := ReadOutline(strings.NewReader("plain text, not a pdf"))
	if err == nil {
		t.Fatal("expected error for non-PDF input")
	}
}

func TestNoOutline(t *testing.T) {
	if !noOutline(errors.New("pdfcpu: no outlines available")) {
		t.Error("expected no-outline error to match")
	}
	if noOutline(io.ErrUnexpectedEOF) {
		t.Error("unexpected match")
	}
}
