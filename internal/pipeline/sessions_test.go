package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/pdfmarks/internal/doctree"
	"github.com/dgallion1/pdfmarks/internal/outline"
)

func newEntry(t *testing.T, id string) *SessionEntry {
	t.Helper()
	s, err := outline.Load(&doctree.DocTree{
		PageCount: 10,
		Children:  []*doctree.DocNode{{Title: "A", Page: 0}, {Title: "B", Page: 3}},
	}, outline.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return NewSessionEntry(id, "doc-"+id, id+".md", "hash", s)
}

func TestSessionStore_PutGetDelete(t *testing.T) {
	ss := NewSessionStore(quietLogger())
	ss.Put(newEntry(t, "s1"))

	if ss.Get("s1") == nil {
		t.Fatal("expected session")
	}
	if ss.Get("nope") != nil {
		t.Error("expected nil for unknown session")
	}
	if !ss.Delete("s1") {
		t.Error("expected delete to report existing session")
	}
	if ss.Delete("s1") {
		t.Error("expected second delete to report missing")
	}
	if ss.Len() != 0 {
		t.Errorf("expected empty store, got %d", ss.Len())
	}
}

func TestSessionStore_CleanupEvictsIdle(t *testing.T) {
	ss := NewSessionStore(quietLogger())
	idle := newEntry(t, "idle")
	dirty := newEntry(t, "dirty")
	fresh := newEntry(t, "fresh")
	ss.Put(idle)
	ss.Put(dirty)
	ss.Put(fresh)

	_ = dirty.Do(func(s *outline.Session) error {
		_, err := s.Add(outline.Root, "C", 5)
		return err
	})
	idle.lastUsed = time.Now().Add(-time.Hour)
	dirty.lastUsed = time.Now().Add(-time.Hour)

	if n := ss.Cleanup(time.Minute); n != 2 {
		t.Errorf("expected 2 evictions, got %d", n)
	}
	if ss.Get("fresh") == nil {
		t.Error("expected fresh session kept")
	}
	if ss.Get("idle") != nil || ss.Get("dirty") != nil {
		t.Error("expected idle sessions evicted")
	}
}

func TestSessionEntry_DoSerialises(t *testing.T) {
	e := newEntry(t, "busy")
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.Do(func(s *outline.Session) error {
				_, err := s.Add(outline.Root, "Extra", 4+i%5)
				return err
			})
		}()
	}
	wg.Wait()

	_ = e.Do(func(s *outline.Session) error {
		if s.Tree().Len() != 22 {
			t.Errorf("expected 22 bookmarks, got %d", s.Tree().Len())
		}
		if err := s.CheckInvariants(); err != nil {
			t.Errorf("invariants broken: %v", err)
		}
		return nil
	})
}
