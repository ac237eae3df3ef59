package outline

import (
	"fmt"
)

// MoveRecord describes an applied move precisely enough to reverse it.
type MoveRecord struct {
	Source      NodeID `json:"source"`
	FromParent  NodeID `json:"from_parent"`
	FromIndex   int    `json:"from_index"`
	ToParent    NodeID `json:"to_parent"`
	ToIndex     int    `json:"to_index"`
	LevelChange int    `json:"level_change"`
}

// Inverse returns the record of the move that undoes r.
func (r MoveRecord) Inverse() MoveRecord {
	return MoveRecord{
		Source:      r.Source,
		FromParent:  r.ToParent,
		FromIndex:   r.ToIndex,
		ToParent:    r.FromParent,
		ToIndex:     r.FromIndex,
		LevelChange: -r.LevelChange,
	}
}

// Apply executes a plan produced by Validate against the current tree
// state. Errors here are invariant violations: the plan was stale or forged.
// The tree is restored before an error is returned.
func (t *Tree) Apply(p Plan) (MoveRecord, error) {
	fromParent, err := t.Parent(p.Source)
	if err != nil {
		return MoveRecord{}, fmt.Errorf("apply move: %w", err)
	}
	fromIndex, err := t.IndexOf(p.Source)
	if err != nil {
		return MoveRecord{}, fmt.Errorf("apply move: %w", err)
	}
	if !t.Contains(p.Parent) {
		return MoveRecord{}, fmt.Errorf("apply move: destination %d: %w", p.Parent, ErrNotFound)
	}
	if t.IsDescendant(p.Parent, p.Source) {
		return MoveRecord{}, fmt.Errorf("apply move: destination %d inside source %d: %w", p.Parent, p.Source, ErrInvalidIndex)
	}

	if err := t.Detach(p.Source); err != nil {
		return MoveRecord{}, fmt.Errorf("apply move: %w", err)
	}
	if err := t.ReassignLevels(p.Source, p.LevelChange); err != nil {
		t.restore(p.Source, fromParent, fromIndex, 0)
		return MoveRecord{}, fmt.Errorf("apply move: %w", err)
	}
	toIndex, err := t.InsertChild(p.Parent, p.Source, p.Index)
	if err != nil {
		t.restore(p.Source, fromParent, fromIndex, p.LevelChange)
		return MoveRecord{}, fmt.Errorf("apply move: %w", err)
	}

	return MoveRecord{
		Source:      p.Source,
		FromParent:  fromParent,
		FromIndex:   fromIndex,
		ToParent:    p.Parent,
		ToIndex:     toIndex,
		LevelChange: p.LevelChange,
	}, nil
}

func (t *Tree) restore(id, parent NodeID, index, levelChange int) {
	_ = t.ReassignLevels(id, -levelChange)
	_, _ = t.InsertChild(parent, id, index)
}
