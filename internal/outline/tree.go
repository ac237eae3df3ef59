// Package outline implements the bookmark hierarchy of a paginated document
// and the rules for reorganising it.
//
// Nodes live in an arena and are addressed by NodeID. Each node stores its
// parent as a handle and its children as an ordered list of handles, so the
// parent/child relation is the only ownership edge and back-references are
// plain integers. IDs are never reused inside one Tree; a handle to a deleted
// node reports ErrNotFound instead of silently aliasing a new node.
package outline

import (
	"fmt"
)

// NodeID addresses a node inside a Tree.
type NodeID int

// NoNode marks an absent parent or an absent move target.
const NoNode NodeID = -1

// Root is the handle of the invisible level-0 root present in every Tree.
const Root NodeID = 0

type node struct {
	title    string
	page     int
	level    int
	parent   NodeID
	children []NodeID
	live     bool
}

// Tree is the hierarchy model. It is not safe for concurrent use.
type Tree struct {
	nodes []node
}

// NewTree returns a tree holding only the root.
func NewTree() *Tree {
	return &Tree{
		nodes: []node{{parent: NoNode, live: true}},
	}
}

func (t *Tree) get(id NodeID) (*node, error) {
	if id < 0 || int(id) >= len(t.nodes) || !t.nodes[id].live {
		return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	return &t.nodes[id], nil
}

// Contains reports whether id refers to a live node.
func (t *Tree) Contains(id NodeID) bool {
	_, err := t.get(id)
	return err == nil
}

// Len returns the number of live bookmarks, excluding the root.
func (t *Tree) Len() int {
	n := 0
	for i := 1; i < len(t.nodes); i++ {
		if t.nodes[i].live {
			n++
		}
	}
	return n
}

func (t *Tree) Title(id NodeID) (string, error) {
	n, err := t.get(id)
	if err != nil {
		return "", err
	}
	return n.title, nil
}

func (t *Tree) Page(id NodeID) (int, error) {
	n, err := t.get(id)
	if err != nil {
		return 0, err
	}
	return n.page, nil
}

func (t *Tree) Level(id NodeID) (int, error) {
	n, err := t.get(id)
	if err != nil {
		return 0, err
	}
	return n.level, nil
}

// Parent returns the parent handle, or NoNode for the root and for
// detached nodes.
func (t *Tree) Parent(id NodeID) (NodeID, error) {
	n, err := t.get(id)
	if err != nil {
		return NoNode, err
	}
	return n.parent, nil
}

// Children returns a copy of the ordered child list.
func (t *Tree) Children(id NodeID) ([]NodeID, error) {
	n, err := t.get(id)
	if err != nil {
		return nil, err
	}
	out := make([]NodeID, len(n.children))
	copy(out, n.children)
	return out, nil
}

// ChildAt returns the child of parent at index.
func (t *Tree) ChildAt(parent NodeID, index int) (NodeID, error) {
	n, err := t.get(parent)
	if err != nil {
		return NoNode, err
	}
	if index < 0 || index >= len(n.children) {
		return NoNode, fmt.Errorf("child %d of node %d (has %d): %w", index, parent, len(n.children), ErrInvalidIndex)
	}
	return n.children[index], nil
}

// IndexOf returns the position of id in its parent's child list.
func (t *Tree) IndexOf(id NodeID) (int, error) {
	n, err := t.get(id)
	if err != nil {
		return -1, err
	}
	if n.parent == NoNode {
		return -1, fmt.Errorf("node %d has no parent: %w", id, ErrNotFound)
	}
	for i, c := range t.nodes[n.parent].children {
		if c == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("node %d missing from parent %d: %w", id, n.parent, ErrNotFound)
}

// newNode allocates a detached node. Callers must not hold *node pointers
// across this call.
func (t *Tree) newNode(title string, page int) NodeID {
	t.nodes = append(t.nodes, node{
		title:  title,
		page:   page,
		parent: NoNode,
		live:   true,
	})
	return NodeID(len(t.nodes) - 1)
}

// Detach removes id from its parent's child list. The node keeps its level;
// callers reassign it once the node is re-inserted.
func (t *Tree) Detach(id NodeID) error {
	if id == Root {
		return fmt.Errorf("detach root: %w", ErrNotFound)
	}
	n, err := t.get(id)
	if err != nil {
		return fmt.Errorf("detach: %w", err)
	}
	if n.parent == NoNode {
		return fmt.Errorf("detach node %d: already detached: %w", id, ErrNotFound)
	}
	p := &t.nodes[n.parent]
	for i, c := range p.children {
		if c == id {
			p.children = append(p.children[:i], p.children[i+1:]...)
			n.parent = NoNode
			return nil
		}
	}
	return fmt.Errorf("detach node %d: missing from parent %d: %w", id, n.parent, ErrNotFound)
}

// InsertChild inserts a detached node into parent's children at index and
// points the node's back-reference at parent. Out-of-range indices are
// clamped to [0, len]; the index actually used is returned.
func (t *Tree) InsertChild(parent, id NodeID, index int) (int, error) {
	if id == Root {
		return 0, fmt.Errorf("insert root: %w", ErrRoot)
	}
	if _, err := t.get(parent); err != nil {
		return 0, fmt.Errorf("insert parent: %w", err)
	}
	n, err := t.get(id)
	if err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	if n.parent != NoNode {
		return 0, fmt.Errorf("insert node %d under %d: %w", id, parent, ErrAttached)
	}

	p := &t.nodes[parent]
	index = clamp(index, 0, len(p.children))
	p.children = append(p.children, NoNode)
	copy(p.children[index+1:], p.children[index:])
	p.children[index] = id
	n.parent = parent
	return index, nil
}

// IsDescendant reports whether candidate lies in the subtree rooted at of,
// including candidate == of. It walks parent handles, so the cost is the
// depth of candidate rather than the size of the subtree.
func (t *Tree) IsDescendant(candidate, of NodeID) bool {
	if !t.Contains(candidate) || !t.Contains(of) {
		return false
	}
	for cur, steps := candidate, 0; cur != NoNode; steps++ {
		if cur == of {
			return true
		}
		if steps > len(t.nodes) {
			// A parent loop would be a corrupted arena; refuse to spin.
			return false
		}
		cur = t.nodes[cur].parent
	}
	return false
}

// ReassignLevels adds delta to the level of root and every node below it.
func (t *Tree) ReassignLevels(root NodeID, delta int) error {
	if _, err := t.get(root); err != nil {
		return fmt.Errorf("reassign levels: %w", err)
	}
	if delta == 0 {
		return nil
	}
	stack := []NodeID{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t.nodes[id].level += delta
		stack = append(stack, t.nodes[id].children...)
	}
	return nil
}

// height returns how many levels lie below id (0 for a leaf).
func (t *Tree) height(id NodeID) int {
	max := 0
	for _, c := range t.nodes[id].children {
		if h := t.height(c) + 1; h > max {
			max = h
		}
	}
	return max
}

// release marks a detached subtree as dead.
func (t *Tree) release(id NodeID) int {
	count := 0
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = append(stack, t.nodes[cur].children...)
		t.nodes[cur] = node{parent: NoNode}
		count++
	}
	return count
}

// Walk visits every live node below from in display order. Returning false
// from fn skips that node's children.
func (t *Tree) Walk(from NodeID, fn func(id NodeID, depth int) bool) error {
	if _, err := t.get(from); err != nil {
		return err
	}
	var visit func(id NodeID, depth int)
	visit = func(id NodeID, depth int) {
		for _, c := range t.nodes[id].children {
			if fn(c, depth) {
				visit(c, depth+1)
			}
		}
	}
	visit(from, 1)
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
