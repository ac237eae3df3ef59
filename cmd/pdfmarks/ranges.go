package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfmarks/internal/doctree"
	"github.com/dgallion1/pdfmarks/internal/pdfio"
	"github.com/dgallion1/pdfmarks/internal/ranges"
)

var (
	chaptersOnly bool
	splitDir     string
	splitRanges  []string
)

var rangesCmd = &cobra.Command{
	Use:   "ranges FILE",
	Short: "List the page range each bookmark covers",
	Long: `List the page range each bookmark covers. A bookmark's range ends one page
before the next bookmark at the same level, or at the end of its parent.

With --chapters only top-level chapter, section and part headings are listed.`,
	Args: cobra.ExactArgs(1),
	RunE: runRanges,
}

var splitCmd = &cobra.Command{
	Use:   "split FILE.pdf",
	Short: "Write chapters or page ranges to separate PDFs",
	Long: `Write each chapter of a PDF to its own file. Chapters are the top-level
bookmarks that look like chapter headings; when there are none, every
top-level bookmark is used.

Pass --range NAME:FIRST-LAST (one-based, inclusive) to choose the ranges by
hand instead. Ranges may not overlap.

Examples:
  pdfmarks split book.pdf --out-dir chapters
  pdfmarks split book.pdf --range "Intro:1-12" --range "Part One:13-80"`,
	Args: cobra.ExactArgs(1),
	RunE: runSplit,
}

func init() {
	rangesCmd.Flags().BoolVar(&chaptersOnly, "chapters", false, "List detected chapters only")
	splitCmd.Flags().StringVar(&splitDir, "out-dir", ".", "Directory for the extracted files")
	splitCmd.Flags().StringArrayVar(&splitRanges, "range", nil, "NAME:FIRST-LAST page range to extract (repeatable)")
	rootCmd.AddCommand(rangesCmd, splitCmd)
}

func runRanges(cmd *cobra.Command, args []string) error {
	d, err := openDocument(args[0])
	if err != nil {
		return err
	}
	doc := d.sess.Snapshot()
	list := ranges.All(doc)
	if chaptersOnly {
		list = ranges.Chapters(doc)
	}
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "(no ranges)")
		return nil
	}
	for _, r := range list {
		fmt.Fprintf(out, "%5d-%-5d %s\n", r.PageStart+1, r.PageEnd+1, strings.Join(r.Breadcrumb, " > "))
	}
	return nil
}

func runSplit(cmd *cobra.Command, args []string) error {
	src := args[0]
	if !isPDF(src) {
		return fmt.Errorf("split needs a pdf, got %s", filepath.Base(src))
	}
	d, err := openDocument(src)
	if err != nil {
		return err
	}
	pageCount := d.sess.PageCount()
	if f, err := os.Open(src); err == nil {
		if n, err := pdfio.PageCount(f); err == nil {
			pageCount = n
		}
		f.Close()
	}

	var list []doctree.Range
	if len(splitRanges) > 0 {
		for _, arg := range splitRanges {
			r, err := parseRange(arg)
			if err != nil {
				return err
			}
			if err := ranges.Validate(r, pageCount, list); err != nil {
				return fmt.Errorf("range %q: %w", arg, err)
			}
			list = append(list, r)
		}
	} else {
		doc := d.sess.Snapshot()
		list = ranges.Chapters(doc)
		if len(list) == 0 {
			for _, r := range ranges.All(doc) {
				if r.Level == 1 {
					list = append(list, r)
				}
			}
		}
	}
	if len(list) == 0 {
		return fmt.Errorf("%s has no bookmarks to split on; pass --range", filepath.Base(src))
	}

	if err := os.MkdirAll(splitDir, 0o755); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for i, r := range list {
		dst := filepath.Join(splitDir, fmt.Sprintf("%02d-%s.pdf", i+1, fileSlug(r.Title)))
		if err := pdfio.ExtractPagesFile(src, dst, r.PageStart, r.PageEnd); err != nil {
			return fmt.Errorf("extract %q: %w", r.Title, err)
		}
		d.log.Info("extracted", "title", r.Title, "first", r.PageStart+1, "last", r.PageEnd+1, "file", dst)
		fmt.Fprintf(out, "%s  pages %d-%d\n", dst, r.PageStart+1, r.PageEnd+1)
	}
	return nil
}

var rangeArg = regexp.MustCompile(`^(.+):\s*(\d+)\s*-\s*(\d+)$`)

// parseRange reads NAME:FIRST-LAST with one-based pages.
func parseRange(s string) (doctree.Range, error) {
	m := rangeArg.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return doctree.Range{}, fmt.Errorf("range %q: want NAME:FIRST-LAST", s)
	}
	first, _ := strconv.Atoi(m[2])
	last, _ := strconv.Atoi(m[3])
	name := strings.TrimSpace(m[1])
	return doctree.Range{
		Title:      name,
		Level:      1,
		Breadcrumb: []string{name},
		PageStart:  first - 1,
		PageEnd:    last - 1,
	}, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func fileSlug(title string) string {
	s := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if s == "" {
		return "part"
	}
	if len(s) > 60 {
		s = strings.TrimRight(s[:60], "-")
	}
	return s
}
