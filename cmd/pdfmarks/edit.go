package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfmarks/internal/outline"
)

var moveCmd = &cobra.Command{
	Use:   "move FILE SOURCE RELATION [TARGET]",
	Short: "Move a bookmark before, after or inside another",
	Long: `Move the bookmark at SOURCE relative to TARGET.

RELATION is one of before, after, inside or none. With none (or no
TARGET) the bookmark becomes a top-level bookmark placed by page.
A rejected move leaves the file untouched and prints the reason.

Examples:
  pdfmarks move book.pdf 3.2 inside 2
  pdfmarks move toc.md 1.4 after 1.1 --out toc-fixed.md
  pdfmarks move book.pdf 2.3 none`,
	Args: cobra.RangeArgs(3, 4),
	RunE: runMove,
}

var addCmd = &cobra.Command{
	Use:   "add FILE PARENT TITLE PAGE",
	Short: "Add a bookmark",
	Long: `Add a bookmark under PARENT (0 for top level) at the position that keeps
its siblings in page order.

Examples:
  pdfmarks add book.pdf 0 "Appendix B" 212
  pdfmarks add book.pdf 2 "2.4 Results" 48`,
	Args: cobra.ExactArgs(4),
	RunE: runAdd,
}

var deleteCmd = &cobra.Command{
	Use:   "delete FILE PATH",
	Short: "Delete a bookmark and everything under it",
	Args:  cobra.ExactArgs(2),
	RunE:  runDelete,
}

var renameCmd = &cobra.Command{
	Use:   "rename FILE PATH TITLE",
	Short: "Rename a bookmark",
	Args:  cobra.ExactArgs(3),
	RunE:  runRename,
}

func init() {
	for _, c := range []*cobra.Command{moveCmd, addCmd, deleteCmd, renameCmd} {
		c.Flags().StringVarP(&outPath, "out", "o", "", "Write the result here instead of over FILE")
		rootCmd.AddCommand(c)
	}
}

func runMove(cmd *cobra.Command, args []string) error {
	d, err := openDocument(args[0])
	if err != nil {
		return err
	}
	source, err := d.resolve(args[1])
	if err != nil {
		return err
	}
	rel, err := outline.ParseRelation(args[2])
	if err != nil {
		return err
	}
	target := outline.NoNode
	if len(args) == 4 {
		if target, err = d.resolve(args[3]); err != nil {
			return err
		}
	} else if rel != outline.None {
		return fmt.Errorf("relation %s needs a TARGET", rel)
	}

	out, err := d.sess.AttemptMove(source, target, rel)
	if err != nil {
		return err
	}
	if !out.Applied {
		return fmt.Errorf("move rejected (%s): %s", out.Reason, out.Message)
	}
	newPath, err := d.sess.Path(source)
	if err != nil {
		return err
	}
	if err := d.save(outPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "moved %s to %s (level %+d)\n", args[1], newPath, out.LevelChange)
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	d, err := openDocument(args[0])
	if err != nil {
		return err
	}
	parent, err := d.resolve(args[1])
	if err != nil {
		return err
	}
	page, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("page %q: not a number", args[3])
	}
	id, err := d.sess.Add(parent, args[2], page-1)
	if err != nil {
		return err
	}
	path, err := d.sess.Path(id)
	if err != nil {
		return err
	}
	if err := d.save(outPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", path)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	d, err := openDocument(args[0])
	if err != nil {
		return err
	}
	id, err := d.resolve(args[1])
	if err != nil {
		return err
	}
	n, err := d.sess.Delete(id)
	if err != nil {
		return err
	}
	if err := d.save(outPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%d bookmark(s))\n", args[1], n)
	return nil
}

func runRename(cmd *cobra.Command, args []string) error {
	d, err := openDocument(args[0])
	if err != nil {
		return err
	}
	id, err := d.resolve(args[1])
	if err != nil {
		return err
	}
	if err := d.sess.Rename(id, args[2]); err != nil {
		return err
	}
	if !d.sess.IsModified() {
		fmt.Fprintln(cmd.OutOrStdout(), "title unchanged")
		return nil
	}
	if err := d.save(outPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "renamed %s\n", args[1])
	return nil
}
