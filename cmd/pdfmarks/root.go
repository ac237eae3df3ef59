package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfmarks/internal/export"
	"github.com/dgallion1/pdfmarks/internal/outline"
	"github.com/dgallion1/pdfmarks/internal/parser"
	"github.com/dgallion1/pdfmarks/internal/pdfio"
)

var (
	verbose      bool
	maxDepth     int
	textFallback bool
	outPath      string
)

var rootCmd = &cobra.Command{
	Use:   "pdfmarks",
	Short: "Inspect and edit document bookmark outlines",
	Long: `pdfmarks edits the bookmark outline of a PDF or of a table of contents
kept as Markdown, HTML, DOCX, CSV, plain text, JSON or YAML.

Bookmarks are addressed by dotted, one-based positions: "2.1" is the first
child of the second top-level bookmark. Page numbers on the command line
are one-based.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log each step to stderr")
	rootCmd.PersistentFlags().IntVar(&maxDepth, "max-depth", 0, "Deepest bookmark level allowed (0 = unlimited)")
	rootCmd.PersistentFlags().BoolVar(&textFallback, "text-fallback", true, "Detect chapter headings when a PDF has no outline")
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// document is an outline loaded from a file for one command.
type document struct {
	path string
	sess *outline.Session
	log  *slog.Logger
}

func openDocument(path string) (*document, error) {
	log := newLogger().With("file", path)
	p, err := parser.ForFile(path, parser.Options{PDFTextFallback: textFallback})
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tree, err := p.Parse(f, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	sess, err := outline.Load(tree, outline.Options{MaxDepth: maxDepth, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &document{path: path, sess: sess, log: log}, nil
}

// resolve maps a dotted path argument to a handle.
func (d *document) resolve(path string) (outline.NodeID, error) {
	id, err := d.sess.Resolve(path)
	if err != nil {
		return outline.NoNode, fmt.Errorf("bookmark %q: %w", path, err)
	}
	return id, nil
}

// save writes the outline to dst, or back to the input when dst is empty.
// A .pdf destination gets a copy of the input PDF with the new outline;
// any other extension selects an export format.
func (d *document) save(dst string) error {
	if dst == "" {
		dst = d.path
	}
	doc := d.sess.Snapshot()

	if isPDF(dst) {
		if !isPDF(d.path) {
			return fmt.Errorf("cannot write a pdf outline from %s: the input is not a pdf", filepath.Base(d.path))
		}
		return replaceFile(dst, func(tmp string) error {
			return pdfio.WriteOutlineFile(d.path, tmp, doc)
		})
	}

	w, err := export.ForFormat(filepath.Ext(dst))
	if err != nil {
		return err
	}
	return replaceFile(dst, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		if err := w.Write(f, doc); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

// replaceFile lets fn write a sibling temp file and renames it over dst,
// so dst may also be the file being read.
func replaceFile(dst string, fn func(tmp string) error) error {
	tmp := dst + ".tmp"
	if err := fn(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
