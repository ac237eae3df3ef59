package outline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dgallion1/pdfmarks/internal/doctree"
)

// Options configures a Session.
type Options struct {
	MaxDepth int
	Logger   *slog.Logger
}

// Session owns one tree for one editing actor. It has no internal locking:
// callers serialise every call, and AttemptMove runs validation and
// execution as a single step so no other mutation can slip between them.
type Session struct {
	tree      *Tree
	title     string
	pageCount int
	validator Validator
	log       *slog.Logger
	journal   MutationLog

	orderViolations int
}

// Outcome is the result of AttemptMove.
type Outcome struct {
	Applied     bool        `json:"applied"`
	LevelChange int         `json:"level_change"`
	Record      *MoveRecord `json:"record,omitempty"`
	Reason      Reason      `json:"reason,omitempty"`
	Message     string      `json:"message,omitempty"`
}

// NodeView is a read-only nested view of a bookmark.
type NodeView struct {
	ID       NodeID     `json:"id"`
	Title    string     `json:"title"`
	Page     int        `json:"page"`
	Level    int        `json:"level"`
	Children []NodeView `json:"children,omitempty"`
}

// Load builds a session from an initial snapshot. Sibling order is kept as
// given even when it is not page-sorted; such lists are counted by
// OrderViolations and only the moved node's new neighbours are checked on
// later moves. A PageCount of zero is derived from the highest page.
func Load(doc *doctree.DocTree, opts Options) (*Session, error) {
	if doc == nil {
		doc = &doctree.DocTree{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	pageCount := doc.PageCount
	if pageCount <= 0 {
		pageCount = doc.MaxPage() + 1
		if pageCount <= 0 {
			pageCount = 1
		}
	}

	s := &Session{
		tree:      NewTree(),
		title:     doc.Title,
		pageCount: pageCount,
		validator: Validator{MaxDepth: opts.MaxDepth},
		log:       logger,
	}

	var build func(parent NodeID, nodes []*doctree.DocNode, trail string) error
	build = func(parent NodeID, nodes []*doctree.DocNode, trail string) error {
		prevPage := -1
		for i, dn := range nodes {
			where := trail + strconv.Itoa(i+1)
			title := strings.TrimSpace(dn.Title)
			if title == "" {
				return fmt.Errorf("bookmark %s: %w", where, ErrEmptyTitle)
			}
			if err := s.checkPage(dn.Page); err != nil {
				return fmt.Errorf("bookmark %s (%q): %w", where, title, err)
			}
			level := s.tree.nodes[parent].level + 1
			if opts.MaxDepth > 0 && level > opts.MaxDepth {
				return fmt.Errorf("bookmark %s (%q) at level %d exceeds depth limit %d", where, title, level, opts.MaxDepth)
			}
			if dn.Page < prevPage {
				s.orderViolations++
			}
			prevPage = dn.Page

			id := s.tree.newNode(title, dn.Page)
			s.tree.nodes[id].level = level
			if _, err := s.tree.InsertChild(parent, id, len(s.tree.nodes[parent].children)); err != nil {
				return err
			}
			if err := build(id, dn.Children, where+"."); err != nil {
				return err
			}
		}
		return nil
	}
	if err := build(Root, doc.Children, ""); err != nil {
		return nil, fmt.Errorf("load outline: %w", err)
	}

	if s.orderViolations > 0 {
		logger.Warn("outline loaded with out-of-order siblings", "violations", s.orderViolations)
	}
	logger.Info("outline loaded", "bookmarks", s.tree.Len(), "pages", pageCount)
	return s, nil
}

// Tree exposes the hierarchy for read-only traversal.
func (s *Session) Tree() *Tree { return s.tree }

func (s *Session) Title() string  { return s.title }
func (s *Session) PageCount() int { return s.pageCount }

// OrderViolations is the number of out-of-order sibling pairs seen at load.
func (s *Session) OrderViolations() int { return s.orderViolations }

// CheckMove validates a move without applying it. It is safe to call on
// every candidate drop target while a drag is in progress.
func (s *Session) CheckMove(source, target NodeID, rel Relation) (Plan, error) {
	return s.validator.Validate(s.tree, source, target, rel)
}

// AttemptMove validates and, if accepted, applies a move. Rejections come
// back as an Outcome with Applied=false; the returned error is reserved for
// stale handles and broken invariants.
func (s *Session) AttemptMove(source, target NodeID, rel Relation) (Outcome, error) {
	plan, err := s.validator.Validate(s.tree, source, target, rel)
	if err != nil {
		if me, ok := AsMoveError(err); ok {
			s.log.Debug("move rejected", "source", source, "target", target, "relation", rel, "reason", me.Reason)
			return Outcome{Reason: me.Reason, Message: me.Message}, nil
		}
		return Outcome{}, err
	}

	rec, err := s.tree.Apply(plan)
	if err != nil {
		s.log.Error("validated move failed to apply", "source", source, "target", target, "error", err)
		return Outcome{}, err
	}
	s.journal.RecordMove(rec)

	s.log.Info("bookmark moved",
		"source", source,
		"target", target,
		"relation", rel,
		"parent", rec.ToParent,
		"index", rec.ToIndex,
		"level_change", rec.LevelChange,
	)
	return Outcome{Applied: true, LevelChange: rec.LevelChange, Record: &rec}, nil
}

// Revert applies the inverse of rec. It is the building block for undo;
// the caller must pass records in reverse order of application. The inverse
// is validated like any move, so edits made since rec can turn it into a
// *MoveError rejection.
func (s *Session) Revert(rec MoveRecord) (MoveRecord, error) {
	inv := rec.Inverse()
	plan, err := s.validator.ValidatePlacement(s.tree, inv.Source, inv.ToParent, inv.ToIndex)
	if err != nil {
		if me, ok := AsMoveError(err); ok {
			s.log.Debug("revert rejected", "source", inv.Source, "parent", inv.ToParent, "reason", me.Reason)
		}
		return MoveRecord{}, err
	}
	applied, err := s.tree.Apply(plan)
	if err != nil {
		return MoveRecord{}, err
	}
	s.journal.RecordMove(applied)
	return applied, nil
}

// Add creates a bookmark under parent (NoNode or Root for top level) at the
// index that keeps the parent's children page-ordered.
func (s *Session) Add(parent NodeID, title string, page int) (NodeID, error) {
	if parent == NoNode {
		parent = Root
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return NoNode, ErrEmptyTitle
	}
	if err := s.checkPage(page); err != nil {
		return NoNode, err
	}
	index, err := s.validator.CheckInsert(s.tree, parent, page)
	if err != nil {
		return NoNode, err
	}

	level := s.tree.nodes[parent].level + 1
	id := s.tree.newNode(title, page)
	s.tree.nodes[id].level = level
	if _, err := s.tree.InsertChild(parent, id, index); err != nil {
		return NoNode, err
	}
	s.journal.MarkEdited()
	s.log.Info("bookmark added", "id", id, "parent", parent, "index", index, "page", page)
	return id, nil
}

// Delete removes id and its whole subtree and returns how many bookmarks
// were discarded.
func (s *Session) Delete(id NodeID) (int, error) {
	if id == Root {
		return 0, ErrRoot
	}
	if err := s.tree.Detach(id); err != nil {
		return 0, err
	}
	n := s.tree.release(id)
	s.journal.MarkEdited()
	s.log.Info("bookmark deleted", "id", id, "removed", n)
	return n, nil
}

// Rename replaces a bookmark's title.
func (s *Session) Rename(id NodeID, title string) error {
	if id == Root {
		return ErrRoot
	}
	n, err := s.tree.get(id)
	if err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	if n.title == title {
		return nil
	}
	n.title = title
	s.journal.MarkEdited()
	return nil
}

// SetPage retargets a bookmark. The new page must keep the bookmark's
// sibling list page-ordered; otherwise a *MoveError is returned.
func (s *Session) SetPage(id NodeID, page int) error {
	if id == Root {
		return ErrRoot
	}
	n, err := s.tree.get(id)
	if err != nil {
		return err
	}
	if err := s.checkPage(page); err != nil {
		return err
	}
	if n.page == page {
		return nil
	}
	idx, err := s.tree.IndexOf(id)
	if err != nil {
		return err
	}

	old := n.page
	n.page = page
	if err := s.tree.checkNeighbors(s.tree.siblingsWithout(n.parent, id), idx, id); err != nil {
		n.page = old
		return err
	}
	s.journal.MarkEdited()
	return nil
}

// Page is the navigation read: the zero-based page a bookmark points at.
func (s *Session) Page(id NodeID) (int, error) {
	if id == Root {
		return 0, ErrRoot
	}
	return s.tree.Page(id)
}

func (s *Session) IsModified() bool { return s.journal.Modified() }

// AcknowledgeSaved is called by the persistence collaborator once a
// snapshot has been written.
func (s *Session) AcknowledgeSaved() {
	s.journal.AcknowledgeSaved()
	s.log.Info("outline saved")
}

func (s *Session) LastMove() (MoveRecord, bool) { return s.journal.LastMove() }

// PendingMoves returns the moves applied since the last save.
func (s *Session) PendingMoves() []MoveRecord { return s.journal.Pending() }

// Snapshot returns the save-ready tree.
func (s *Session) Snapshot() *doctree.DocTree {
	var build func(id NodeID) []*doctree.DocNode
	build = func(id NodeID) []*doctree.DocNode {
		kids := s.tree.nodes[id].children
		if len(kids) == 0 {
			return nil
		}
		out := make([]*doctree.DocNode, 0, len(kids))
		for _, c := range kids {
			n := s.tree.nodes[c]
			out = append(out, &doctree.DocNode{
				Title:    n.title,
				Page:     n.page,
				Children: build(c),
			})
		}
		return out
	}
	return &doctree.DocTree{
		Title:     s.title,
		PageCount: s.pageCount,
		Children:  build(Root),
	}
}

// View returns the top-level bookmarks with their handles and levels.
func (s *Session) View() []NodeView {
	var build func(id NodeID) []NodeView
	build = func(id NodeID) []NodeView {
		kids := s.tree.nodes[id].children
		if len(kids) == 0 {
			return nil
		}
		out := make([]NodeView, 0, len(kids))
		for _, c := range kids {
			n := s.tree.nodes[c]
			out = append(out, NodeView{
				ID:       c,
				Title:    n.title,
				Page:     n.page,
				Level:    n.level,
				Children: build(c),
			})
		}
		return out
	}
	return build(Root)
}

// Resolve maps a dotted, one-based position path such as "2.1" to a handle.
func (s *Session) Resolve(path string) (NodeID, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "0" {
		return Root, nil
	}
	cur := Root
	for _, part := range strings.Split(path, ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return NoNode, fmt.Errorf("bad path segment %q in %q", part, path)
		}
		next, err := s.tree.ChildAt(cur, n-1)
		if err != nil {
			return NoNode, fmt.Errorf("resolve %q: %w", path, err)
		}
		cur = next
	}
	return cur, nil
}

// Path is the inverse of Resolve.
func (s *Session) Path(id NodeID) (string, error) {
	if !s.tree.Contains(id) {
		return "", fmt.Errorf("path: node %d: %w", id, ErrNotFound)
	}
	var parts []string
	for cur := id; cur != Root; {
		idx, err := s.tree.IndexOf(cur)
		if err != nil {
			return "", err
		}
		parts = append([]string{strconv.Itoa(idx + 1)}, parts...)
		cur = s.tree.nodes[cur].parent
	}
	return strings.Join(parts, "."), nil
}

// CheckInvariants verifies ownership, level continuity and sibling page
// order across the whole tree. Lists that were already out of order at
// load time are reported too.
func (s *Session) CheckInvariants() error {
	var errs []error
	seen := make(map[NodeID]bool)
	var visit func(id NodeID)
	visit = func(id NodeID) {
		n := s.tree.nodes[id]
		prev := -1
		for _, c := range n.children {
			if seen[c] {
				errs = append(errs, fmt.Errorf("node %d reachable twice", c))
				continue
			}
			seen[c] = true
			child := s.tree.nodes[c]
			if !child.live {
				errs = append(errs, fmt.Errorf("node %d is dead but listed under %d", c, id))
				continue
			}
			if child.parent != id {
				errs = append(errs, fmt.Errorf("node %d lists parent %d, owned by %d", c, child.parent, id))
			}
			if child.level != n.level+1 {
				errs = append(errs, fmt.Errorf("node %d at level %d under level %d", c, child.level, n.level))
			}
			if child.page < prev {
				errs = append(errs, fmt.Errorf("node %d page %d follows page %d", c, child.page, prev))
			}
			prev = child.page
			visit(c)
		}
	}
	visit(Root)
	if len(seen) != s.tree.Len() {
		errs = append(errs, fmt.Errorf("%d live nodes, %d reachable", s.tree.Len(), len(seen)))
	}
	return errors.Join(errs...)
}

func (s *Session) checkPage(page int) error {
	if page < 0 || page >= s.pageCount {
		return fmt.Errorf("page %d not in [0, %d): %w", page, s.pageCount, ErrPageRange)
	}
	return nil
}
