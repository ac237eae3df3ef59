package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfmarks/internal/export"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write the outline in another format",
	Long: `Write the outline of FILE as ` + strings.Join(export.Formats, ", ") + `, or onto
a PDF. Without --out the result goes next to FILE with the new extension.

Examples:
  pdfmarks export book.pdf --format md
  pdfmarks export book.pdf --out book-fixed.pdf
  pdfmarks export book.pdf -o outline.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format when --out is not given")
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file; its extension selects the format")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	d, err := openDocument(args[0])
	if err != nil {
		return err
	}
	dst := outPath
	if dst == "" {
		ext := "." + strings.TrimPrefix(strings.ToLower(exportFormat), ".")
		if ext != ".pdf" {
			w, err := export.ForFormat(exportFormat)
			if err != nil {
				return err
			}
			ext = w.Ext()
		}
		dst = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ext
	}
	if filepath.Clean(dst) == filepath.Clean(args[0]) && !isPDF(dst) {
		return fmt.Errorf("refusing to overwrite %s; pass --out", args[0])
	}
	if err := d.save(dst); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bookmarks)\n", dst, d.sess.Tree().Len())
	return nil
}
