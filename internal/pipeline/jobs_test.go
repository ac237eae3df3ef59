package pipeline

import (
	"testing"
	"time"
)

func TestContentHashHex(t *testing.T) {
	tests := map[string]string{
		"hello world": "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		"":            "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
	}
	for in, want := range tests {
		if got := ContentHashHex([]byte(in)); got != want {
			t.Errorf("ContentHashHex(%q) = %s, want %s", in, got, want)
		}
	}
	if ContentHashHex([]byte("a.pdf")) == ContentHashHex([]byte("b.pdf")) {
		t.Error("expected different hashes for different content")
	}
}

func TestFormatOf(t *testing.T) {
	tests := map[string]string{
		"Book.PDF":        "pdf",
		"toc.yml":         "yml",
		"dir/outline.csv": "csv",
		"README":          "",
	}
	for in, want := range tests {
		if got := FormatOf(in); got != want {
			t.Errorf("FormatOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewJob_Queued(t *testing.T) {
	job := NewJob("manual.md", "Manual", []byte("# One"))
	if job.ID == "" || job.DocID == "" || job.ID == job.DocID {
		t.Fatalf("expected distinct job and doc ids, got %q %q", job.ID, job.DocID)
	}
	snap := job.Snapshot()
	if snap.Status != StatusQueued || snap.Format != "md" || snap.Title != "Manual" {
		t.Errorf("unexpected new job %+v", snap)
	}
	if string(job.FileData()) != "# One" {
		t.Errorf("expected upload bytes kept, got %q", job.FileData())
	}
	job.releaseFileData()
	if job.FileData() != nil {
		t.Error("expected upload bytes released")
	}
}

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob("book.pdf", "", nil)
	for _, st := range []JobStatus{StatusParsing, StatusLoading} {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(st, string(st))
		snap := job.Snapshot()
		if snap.Status != st || snap.Phase != string(st) {
			t.Errorf("expected %s, got %s/%s", st, snap.Status, snap.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance on %s", st)
		}
	}

	job.SetResult(12, 40, 1)
	job.Complete("sess-1", "saved-doc", true)
	snap := job.Snapshot()
	if snap.Status != StatusCompleted || snap.Phase != "done" {
		t.Errorf("expected completed/done, got %s/%s", snap.Status, snap.Phase)
	}
	if snap.SessionID != "sess-1" || snap.DocID != "saved-doc" || !snap.Restored {
		t.Errorf("unexpected completion %+v", snap)
	}
	if p := snap.Progress; p.Bookmarks != 12 || p.PageCount != 40 || p.OrderViolations != 1 {
		t.Errorf("unexpected progress %+v", p)
	}
}

func TestJob_ErrorsSnapshotIsCopy(t *testing.T) {
	job := NewJob("toc.csv", "", nil)
	if errs := job.Snapshot().Progress.Errors; errs == nil || len(errs) != 0 {
		t.Fatalf("expected empty non-nil errors, got %#v", errs)
	}

	job.AddError("parsing: bad csv level")
	snap := job.Snapshot()
	job.AddError("keep source: disk full")
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("earlier snapshot changed: %v", snap.Progress.Errors)
	}
	if got := job.Snapshot().Progress.Errors; len(got) != 2 || got[1] != "keep source: disk full" {
		t.Errorf("unexpected errors %v", got)
	}
}

func TestJobStore_Cleanup(t *testing.T) {
	store := NewJobStore(time.Minute)
	store.Cleanup()

	old := &Job{ID: "old", UpdatedAt: time.Now().Add(-2 * time.Minute)}
	fresh := &Job{ID: "fresh", UpdatedAt: time.Now()}
	store.Put(old)
	store.Put(fresh)
	if store.Get("old") != old {
		t.Fatal("expected stored job back")
	}

	store.Cleanup()
	if store.Get("old") != nil {
		t.Error("expected stale job evicted")
	}
	if store.Get("fresh") == nil {
		t.Error("expected fresh job kept")
	}
	if store.Get("missing") != nil {
		t.Error("expected nil for unknown id")
	}
}
