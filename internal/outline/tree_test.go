package outline

import (
	"errors"
	"testing"
)

// chain builds root -> a -> b and a sibling c under root.
func chain(t *testing.T) (*Tree, NodeID, NodeID, NodeID) {
	t.Helper()
	tr := NewTree()
	a := tr.newNode("a", 0)
	b := tr.newNode("b", 1)
	c := tr.newNode("c", 2)
	mustInsert(t, tr, Root, a, 0)
	mustInsert(t, tr, a, b, 0)
	mustInsert(t, tr, Root, c, 1)
	tr.nodes[a].level = 1
	tr.nodes[b].level = 2
	tr.nodes[c].level = 1
	return tr, a, b, c
}

func mustInsert(t *testing.T, tr *Tree, parent, id NodeID, index int) int {
	t.Helper()
	got, err := tr.InsertChild(parent, id, index)
	if err != nil {
		t.Fatalf("InsertChild(%d, %d, %d): %v", parent, id, index, err)
	}
	return got
}

func TestTree_DetachRootFails(t *testing.T) {
	tr := NewTree()
	if err := tr.Detach(Root); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTree_DetachTwiceFails(t *testing.T) {
	tr, a, _, _ := chain(t)
	if err := tr.Detach(a); err != nil {
		t.Fatalf("first detach: %v", err)
	}
	if err := tr.Detach(a); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second detach, got %v", err)
	}
	kids, _ := tr.Children(Root)
	if len(kids) != 1 {
		t.Fatalf("expected 1 root child after detach, got %d", len(kids))
	}
}

func TestTree_DetachKeepsLevel(t *testing.T) {
	tr, _, b, _ := chain(t)
	if err := tr.Detach(b); err != nil {
		t.Fatal(err)
	}
	lvl, err := tr.Level(b)
	if err != nil {
		t.Fatal(err)
	}
	if lvl != 2 {
		t.Errorf("expected detached node to keep level 2, got %d", lvl)
	}
	if p, _ := tr.Parent(b); p != NoNode {
		t.Errorf("expected no parent after detach, got %d", p)
	}
}

func TestTree_InsertChildClampsIndex(t *testing.T) {
	tr := NewTree()
	x := tr.newNode("x", 0)
	y := tr.newNode("y", 0)
	z := tr.newNode("z", 0)

	if got := mustInsert(t, tr, Root, x, -5); got != 0 {
		t.Errorf("negative index: expected 0, got %d", got)
	}
	if got := mustInsert(t, tr, Root, y, 99); got != 1 {
		t.Errorf("large index: expected 1, got %d", got)
	}
	if got := mustInsert(t, tr, Root, z, 1); got != 1 {
		t.Errorf("middle index: expected 1, got %d", got)
	}

	kids, _ := tr.Children(Root)
	want := []NodeID{x, z, y}
	for i := range want {
		if kids[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, kids)
		}
	}
	if p, _ := tr.Parent(z); p != Root {
		t.Errorf("expected back-reference to root, got %d", p)
	}
}

func TestTree_InsertAttachedFails(t *testing.T) {
	tr, a, _, c := chain(t)
	if _, err := tr.InsertChild(c, a, 0); !errors.Is(err, ErrAttached) {
		t.Fatalf("expected ErrAttached, got %v", err)
	}
}

func TestTree_IsDescendant(t *testing.T) {
	tr, a, b, c := chain(t)

	cases := []struct {
		candidate, of NodeID
		want          bool
	}{
		{b, a, true},
		{a, a, true},
		{b, Root, true},
		{a, b, false},
		{c, a, false},
		{b, c, false},
	}
	for _, tc := range cases {
		if got := tr.IsDescendant(tc.candidate, tc.of); got != tc.want {
			t.Errorf("IsDescendant(%d, %d) = %v, want %v", tc.candidate, tc.of, got, tc.want)
		}
	}
}

func TestTree_ReassignLevelsShiftsSubtree(t *testing.T) {
	tr, a, b, c := chain(t)
	if err := tr.ReassignLevels(a, 2); err != nil {
		t.Fatal(err)
	}
	if l, _ := tr.Level(a); l != 3 {
		t.Errorf("a: expected level 3, got %d", l)
	}
	if l, _ := tr.Level(b); l != 4 {
		t.Errorf("b: expected level 4, got %d", l)
	}
	if l, _ := tr.Level(c); l != 1 {
		t.Errorf("c: expected untouched level 1, got %d", l)
	}
}

func TestTree_ChildAtOutOfRange(t *testing.T) {
	tr, _, _, _ := chain(t)
	if _, err := tr.ChildAt(Root, 2); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
}

func TestTree_ReleasedHandlesGoStale(t *testing.T) {
	tr, a, b, _ := chain(t)
	if err := tr.Detach(a); err != nil {
		t.Fatal(err)
	}
	if n := tr.release(a); n != 2 {
		t.Errorf("expected 2 released nodes, got %d", n)
	}
	if tr.Contains(b) {
		t.Error("expected descendant handle to be stale")
	}
	if _, err := tr.Title(a); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if tr.Len() != 1 {
		t.Errorf("expected 1 live bookmark, got %d", tr.Len())
	}
}
