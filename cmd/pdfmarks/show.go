package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfmarks/internal/outline"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "Print the bookmark outline",
	Long: `Print the bookmark outline with each bookmark's position path and page.

Examples:
  pdfmarks show book.pdf
  pdfmarks show toc.md --json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the outline as JSON with handles and levels")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	d, err := openDocument(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if showJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"title":      d.sess.Title(),
			"page_count": d.sess.PageCount(),
			"bookmarks":  d.sess.View(),
		})
	}
	printOutline(out, d.sess)
	return nil
}

func printOutline(w io.Writer, s *outline.Session) {
	if s.Title() != "" {
		fmt.Fprintf(w, "%s (%d pages)\n", s.Title(), s.PageCount())
	}
	if s.Tree().Len() == 0 {
		fmt.Fprintln(w, "(no bookmarks)")
		return
	}
	var walk func(views []outline.NodeView, prefix string)
	walk = func(views []outline.NodeView, prefix string) {
		for i, v := range views {
			path := fmt.Sprintf("%s%d", prefix, i+1)
			fmt.Fprintf(w, "%s%-8s %s  p.%d\n", strings.Repeat("  ", v.Level-1), path, v.Title, v.Page+1)
			walk(v.Children, path+".")
		}
	}
	walk(s.View(), "")
	if n := s.OrderViolations(); n > 0 {
		fmt.Fprintf(w, "warning: %d bookmark(s) out of page order\n", n)
	}
}
