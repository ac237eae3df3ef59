package outline

import (
	"fmt"
)

// Plan is an accepted move, resolved against one tree state. It goes stale
// as soon as anything else mutates the tree.
type Plan struct {
	Source NodeID
	Parent NodeID
	// Index is the position in Parent's children once Source has been
	// removed from wherever it currently sits.
	Index       int
	NewLevel    int
	LevelChange int
}

// Validator decides whether a move is legal. It never mutates the tree.
type Validator struct {
	// MaxDepth caps the level of any bookmark. Zero means unlimited.
	MaxDepth int
}

// Validate checks moving source relative to target. A rejected move is
// returned as a *MoveError; any other error means a stale handle.
func (v Validator) Validate(t *Tree, source, target NodeID, rel Relation) (Plan, error) {
	if source == Root {
		return Plan{}, reject(ReasonRootMove, "the outline root cannot be moved")
	}
	src, err := t.get(source)
	if err != nil {
		return Plan{}, fmt.Errorf("move source: %w", err)
	}
	if src.parent == NoNode {
		return Plan{}, fmt.Errorf("move source %d is detached: %w", source, ErrNotFound)
	}

	if target == NoNode {
		rel = None
	}
	if rel == None {
		target = Root
	} else if _, err := t.get(target); err != nil {
		return Plan{}, fmt.Errorf("move target: %w", err)
	}

	// 1. Identity and ancestry.
	if source == target {
		return Plan{}, reject(ReasonSameNode, "cannot move a bookmark onto itself")
	}
	if t.IsDescendant(target, source) {
		return Plan{}, reject(ReasonCyclic, "cannot move %q into its own subtree", src.title)
	}

	// 2. Logical parent.
	var parent NodeID
	switch rel {
	case None:
		parent = Root
	case Inside:
		parent = target
	case Before, After:
		if target == Root {
			return Plan{}, reject(ReasonInvalidTarget, "the outline root has no siblings")
		}
		parent = t.nodes[target].parent
		if parent == NoNode {
			return Plan{}, fmt.Errorf("move target %d is detached: %w", target, ErrNotFound)
		}
	default:
		return Plan{}, reject(ReasonInvalidTarget, "unsupported relation %s", rel)
	}

	siblings := t.siblingsWithout(parent, source)

	// 3. Resolved level.
	newLevel := t.nodes[parent].level + 1
	plan := Plan{
		Source:      source,
		Parent:      parent,
		NewLevel:    newLevel,
		LevelChange: newLevel - src.level,
	}

	// 4. Index and page order.
	switch rel {
	case None, Inside:
		plan.Index = t.pageOrderIndex(siblings, src.page)
	case Before, After:
		idx := indexOf(siblings, target)
		if rel == After {
			idx++
		}
		plan.Index = idx
		if err := t.checkNeighbors(siblings, idx, source); err != nil {
			return Plan{}, err
		}
	}

	// 5. Level continuity.
	if err := v.checkLevels(t, source, siblings, newLevel); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// ValidatePlacement checks putting source under parent at index, as an undo
// does. The index is clamped and the level comes from parent's current
// level, so a record left stale by later edits is judged against the tree
// as it is now.
func (v Validator) ValidatePlacement(t *Tree, source, parent NodeID, index int) (Plan, error) {
	if source == Root {
		return Plan{}, reject(ReasonRootMove, "the outline root cannot be moved")
	}
	src, err := t.get(source)
	if err != nil {
		return Plan{}, fmt.Errorf("move source: %w", err)
	}
	if src.parent == NoNode {
		return Plan{}, fmt.Errorf("move source %d is detached: %w", source, ErrNotFound)
	}
	if _, err := t.get(parent); err != nil {
		return Plan{}, fmt.Errorf("move destination: %w", err)
	}
	if t.IsDescendant(parent, source) {
		return Plan{}, reject(ReasonCyclic, "cannot move %q into its own subtree", src.title)
	}

	siblings := t.siblingsWithout(parent, source)
	idx := clamp(index, 0, len(siblings))
	if err := t.checkNeighbors(siblings, idx, source); err != nil {
		return Plan{}, err
	}
	newLevel := t.nodes[parent].level + 1
	if err := v.checkLevels(t, source, siblings, newLevel); err != nil {
		return Plan{}, err
	}
	return Plan{
		Source:      source,
		Parent:      parent,
		Index:       idx,
		NewLevel:    newLevel,
		LevelChange: newLevel - src.level,
	}, nil
}

// checkLevels rejects a destination whose existing children disagree with
// newLevel, and landings past MaxDepth. Level continuity holds for every
// tree built through Load and Session, so the sibling loop only fires on a
// tree whose levels were corrupted directly.
func (v Validator) checkLevels(t *Tree, source NodeID, siblings []NodeID, newLevel int) error {
	src := t.nodes[source]
	for _, s := range siblings {
		if lvl := t.nodes[s].level; lvl != newLevel {
			return reject(ReasonLevelJump,
				"level jump: %q sits at level %d under a level %d parent, %q would land at level %d",
				t.nodes[s].title, lvl, newLevel-1, src.title, newLevel)
		}
	}
	if v.MaxDepth > 0 {
		if deepest := newLevel + t.height(source); deepest > v.MaxDepth {
			return reject(ReasonDepthLimit,
				"depth limit: moving %q would nest bookmarks %d levels deep, maximum is %d",
				src.title, deepest, v.MaxDepth)
		}
	}
	return nil
}

// CheckInsert validates placing a new bookmark with page under parent and
// returns the page-ordered index it should take.
func (v Validator) CheckInsert(t *Tree, parent NodeID, page int) (int, error) {
	p, err := t.get(parent)
	if err != nil {
		return 0, fmt.Errorf("insert parent: %w", err)
	}
	if v.MaxDepth > 0 && p.level+1 > v.MaxDepth {
		return 0, reject(ReasonDepthLimit, "depth limit: a bookmark under %q would sit at level %d, maximum is %d",
			p.title, p.level+1, v.MaxDepth)
	}
	return t.pageOrderIndex(p.children, page), nil
}

// siblingsWithout returns parent's children with skip filtered out.
func (t *Tree) siblingsWithout(parent, skip NodeID) []NodeID {
	kids := t.nodes[parent].children
	out := make([]NodeID, 0, len(kids))
	for _, c := range kids {
		if c != skip {
			out = append(out, c)
		}
	}
	return out
}

// pageOrderIndex is the position just after the last sibling whose page is
// <= page. On a sorted list that keeps it sorted and places equal pages in
// arrival order. On a list loaded out of order it still gives a position
// whose two neighbours are in order around page.
func (t *Tree) pageOrderIndex(siblings []NodeID, page int) int {
	for i := len(siblings) - 1; i >= 0; i-- {
		if t.nodes[siblings[i]].page <= page {
			return i + 1
		}
	}
	return 0
}

// checkNeighbors verifies inserting source at idx keeps the list
// non-decreasing by page.
func (t *Tree) checkNeighbors(siblings []NodeID, idx int, source NodeID) error {
	src := t.nodes[source]
	if idx > 0 {
		prev := t.nodes[siblings[idx-1]]
		if prev.page > src.page {
			e := reject(ReasonPageOrder,
				"page order violation: %q (page %d) cannot follow %q (page %d)",
				src.title, src.page+1, prev.title, prev.page+1)
			e.NeighborPage = prev.page
			return e
		}
	}
	if idx < len(siblings) {
		next := t.nodes[siblings[idx]]
		if src.page > next.page {
			e := reject(ReasonPageOrder,
				"page order violation: %q (page %d) cannot precede %q (page %d)",
				src.title, src.page+1, next.title, next.page+1)
			e.NeighborPage = next.page
			return e
		}
	}
	return nil
}

func indexOf(ids []NodeID, id NodeID) int {
	for i, c := range ids {
		if c == id {
			return i
		}
	}
	return -1
}
