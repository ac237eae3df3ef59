// Package export writes bookmark outlines in the formats the parser package
// reads back. Every writer except JSON and YAML prints one-based pages.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/pdfmarks/internal/doctree"
	"gopkg.in/yaml.v3"
)

// Writer serialises an outline.
type Writer interface {
	Write(w io.Writer, doc *doctree.DocTree) error
	ContentType() string
	Ext() string
}

// Formats lists the names accepted by ForFormat.
var Formats = []string{"json", "yaml", "md", "txt", "csv", "html", "docx"}

// ForFormat returns the writer for a format name or file extension.
func ForFormat(format string) (Writer, error) {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "json":
		return JSONWriter{}, nil
	case "yaml", "yml":
		return YAMLWriter{}, nil
	case "md", "markdown":
		return MarkdownWriter{}, nil
	case "txt", "text":
		return TextWriter{}, nil
	case "csv":
		return CSVWriter{}, nil
	case "html", "htm":
		return HTMLWriter{}, nil
	case "docx":
		return DOCXWriter{}, nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

type JSONWriter struct{}

func (JSONWriter) Write(w io.Writer, doc *doctree.DocTree) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func (JSONWriter) ContentType() string { return "application/json" }
func (JSONWriter) Ext() string         { return ".json" }

type YAMLWriter struct{}

func (YAMLWriter) Write(w io.Writer, doc *doctree.DocTree) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func (YAMLWriter) ContentType() string { return "application/yaml" }
func (YAMLWriter) Ext() string         { return ".yaml" }

// MarkdownWriter emits one heading per bookmark. Levels past 6 are written
// as level 6 headings.
type MarkdownWriter struct{}

func (MarkdownWriter) Write(w io.Writer, doc *doctree.DocTree) error {
	var b strings.Builder
	doc.Walk(func(n *doctree.DocNode, level int) {
		fmt.Fprintf(&b, "%s %s (p. %d)\n\n", strings.Repeat("#", min(level, 6)), n.Title, n.Page+1)
	})
	_, err := io.WriteString(w, b.String())
	return err
}

func (MarkdownWriter) ContentType() string { return "text/markdown; charset=utf-8" }
func (MarkdownWriter) Ext() string         { return ".md" }

// TextWriter emits an indented table of contents with dot leaders.
type TextWriter struct{}

const leaderWidth = 60

func (TextWriter) Write(w io.Writer, doc *doctree.DocTree) error {
	var b strings.Builder
	doc.Walk(func(n *doctree.DocNode, level int) {
		entry := strings.Repeat("  ", level-1) + n.Title + " "
		dots := max(leaderWidth-len([]rune(entry)), 3)
		fmt.Fprintf(&b, "%s%s %d\n", entry, strings.Repeat(".", dots), n.Page+1)
	})
	_, err := io.WriteString(w, b.String())
	return err
}

func (TextWriter) ContentType() string { return "text/plain; charset=utf-8" }
func (TextWriter) Ext() string         { return ".txt" }

// CSVWriter emits level,title,page rows under a header.
type CSVWriter struct{}

func (CSVWriter) Write(w io.Writer, doc *doctree.DocTree) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"level", "title", "page"}); err != nil {
		return err
	}
	var werr error
	doc.Walk(func(n *doctree.DocNode, level int) {
		if werr != nil {
			return
		}
		werr = cw.Write([]string{strconv.Itoa(level), n.Title, strconv.Itoa(n.Page + 1)})
	})
	if werr != nil {
		return werr
	}
	cw.Flush()
	return cw.Error()
}

func (CSVWriter) ContentType() string { return "text/csv; charset=utf-8" }
func (CSVWriter) Ext() string         { return ".csv" }
