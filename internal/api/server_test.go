package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/pdfmarks/internal/config"
	"github.com/dgallion1/pdfmarks/internal/doctree"
	"github.com/dgallion1/pdfmarks/internal/outline"
	"github.com/dgallion1/pdfmarks/internal/pipeline"
	"github.com/dgallion1/pdfmarks/internal/store"
)

const testKey = "test-key"

type harness struct {
	srv  *Server
	orch *pipeline.Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(":memory:", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	cfg := config.Config{
		APIKey:         testKey,
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
		SessionTTL:     time.Hour,
	}
	orch := pipeline.NewOrchestrator(cfg, st, log)
	return &harness{srv: NewServer(orch, log, cfg), orch: orch}
}

// openABC registers a session over A(p0) with children B(p1) and C(p5).
// Handles are A=1, B=2, C=3.
func (h *harness) openABC(t *testing.T) string {
	t.Helper()
	sess, err := outline.Load(&doctree.DocTree{
		Title:     "abc",
		PageCount: 10,
		Children: []*doctree.DocNode{{
			Title: "A", Page: 0,
			Children: []*doctree.DocNode{{Title: "B", Page: 1}, {Title: "C", Page: 5}},
		}},
	}, outline.Options{})
	if err != nil {
		t.Fatal(err)
	}
	e := pipeline.NewSessionEntry("s-abc", "doc-abc", "abc.md", "hash-abc", sess)
	h.orch.Sessions().Put(e)
	return e.ID
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestHealthAndAuth(t *testing.T) {
	h := newHarness(t)

	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/stats/imports", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no auth: expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest("GET", "/api/stats/imports", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad key: expected 401, got %d", rec.Code)
	}

	rec = h.do("GET", "/api/stats/imports", "")
	if rec.Code != http.StatusOK {
		t.Errorf("stats: expected 200, got %d", rec.Code)
	}
}

func TestGetSession(t *testing.T) {
	h := newHarness(t)
	sid := h.openABC(t)

	rec := h.do("GET", "/api/sessions/"+sid, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	body := decode(t, rec)
	if body["modified"] != false || body["page_count"] != float64(10) {
		t.Errorf("unexpected body %v", body)
	}
	marks := body["bookmarks"].([]any)
	if len(marks) != 1 || len(marks[0].(map[string]any)["children"].([]any)) != 2 {
		t.Errorf("unexpected bookmarks %v", marks)
	}

	if rec := h.do("GET", "/api/sessions/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown session: expected 404, got %d", rec.Code)
	}
}

func TestMoves(t *testing.T) {
	h := newHarness(t)
	sid := h.openABC(t)
	base := "/api/sessions/" + sid

	rec := h.do("POST", base+"/moves", `{"source":3,"target":2,"relation":"before"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body)
	}
	if body := decode(t, rec); body["reason"] != "page_order" || body["applied"] != false {
		t.Errorf("unexpected rejection %v", body)
	}

	rec = h.do("POST", base+"/moves/check", `{"source":2,"target":3,"relation":"inside"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("check: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if body := decode(t, rec); body["valid"] != true || body["level_change"] != float64(1) {
		t.Errorf("unexpected plan %v", body)
	}
	if body := decode(t, h.do("GET", base, "")); body["modified"] != false {
		t.Error("dry run must not modify the session")
	}

	rec = h.do("POST", base+"/moves", `{"source":2,"target":3,"relation":"inside"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if body := decode(t, rec); body["applied"] != true || body["level_change"] != float64(1) {
		t.Errorf("unexpected outcome %v", body)
	}

	if rec := h.do("POST", base+"/moves/undo", ""); rec.Code != http.StatusOK {
		t.Errorf("undo: expected 200, got %d", rec.Code)
	}
	_ = h.orch.Sessions().Get(sid).Do(func(s *outline.Session) error {
		kids, _ := s.Tree().Children(1)
		if len(kids) != 2 {
			t.Errorf("expected B and C back under A, got %v", kids)
		}
		return nil
	})

	if rec := h.do("POST", base+"/moves", `{"source":99,"relation":"none"}`); rec.Code != http.StatusNotFound {
		t.Errorf("stale handle: expected 404, got %d", rec.Code)
	}
	if rec := h.do("POST", base+"/moves", `{"source":2,"relation":"sideways"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad relation: expected 400, got %d", rec.Code)
	}
}

func TestUndoWithoutMoves(t *testing.T) {
	h := newHarness(t)
	sid := h.openABC(t)
	if rec := h.do("POST", "/api/sessions/"+sid+"/moves/undo", ""); rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestUndoRejectedAfterRetarget(t *testing.T) {
	h := newHarness(t)
	sid := h.openABC(t)
	base := "/api/sessions/" + sid

	if rec := h.do("POST", base+"/moves", `{"source":2,"relation":"none"}`); rec.Code != http.StatusOK {
		t.Fatalf("move: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if rec := h.do("PATCH", base+"/bookmarks/2", `{"page":7}`); rec.Code != http.StatusOK {
		t.Fatalf("retarget: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	rec := h.do("POST", base+"/moves/undo", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("undo: expected 422, got %d: %s", rec.Code, rec.Body)
	}
	if body := decode(t, rec); body["reason"] != string(outline.ReasonPageOrder) {
		t.Errorf("expected page_order reason, got %v", body)
	}
	_ = h.orch.Sessions().Get(sid).Do(func(s *outline.Session) error {
		if err := s.CheckInvariants(); err != nil {
			t.Error(err)
		}
		if parent, _ := s.Tree().Parent(2); parent != outline.Root {
			t.Errorf("rejected undo moved B to %d", parent)
		}
		return nil
	})
}

func TestBookmarkEdits(t *testing.T) {
	h := newHarness(t)
	sid := h.openABC(t)
	base := "/api/sessions/" + sid

	rec := h.do("POST", base+"/bookmarks", `{"parent":1,"title":"Between","page":3}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	if body := decode(t, rec); body["path"] != "1.2" {
		t.Errorf("expected page-ordered path 1.2, got %v", body["path"])
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"empty title", "POST", "/bookmarks", `{"title":"  ","page":1}`, http.StatusBadRequest},
		{"page out of range", "POST", "/bookmarks", `{"title":"X","page":12}`, http.StatusBadRequest},
		{"rename", "PATCH", "/bookmarks/2", `{"title":"Beta"}`, http.StatusOK},
		{"retarget breaks order", "PATCH", "/bookmarks/2", `{"page":9}`, http.StatusUnprocessableEntity},
		{"nothing to change", "PATCH", "/bookmarks/2", `{}`, http.StatusBadRequest},
		{"unknown bookmark", "PATCH", "/bookmarks/99", `{"title":"Z"}`, http.StatusNotFound},
		{"bad id", "DELETE", "/bookmarks/x", "", http.StatusBadRequest},
		{"page lookup", "GET", "/bookmarks/3/page", "", http.StatusOK},
		{"delete subtree", "DELETE", "/bookmarks/1", "", http.StatusOK},
		{"deleted handle", "GET", "/bookmarks/3/page", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(tt.method, base+tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body)
			}
		})
	}
}

func TestRangesAndExport(t *testing.T) {
	h := newHarness(t)
	sid := h.openABC(t)
	base := "/api/sessions/" + sid

	rec := h.do("GET", base+"/ranges", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ranges: expected 200, got %d", rec.Code)
	}
	if got := decode(t, rec)["ranges"].([]any); len(got) != 3 {
		t.Errorf("expected 3 ranges, got %d", len(got))
	}

	rec = h.do("POST", base+"/ranges/check", `{"title":"Intro","page_start":0,"page_end":2,"existing":[{"title":"Body","page_start":2,"page_end":9}]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("overlap: expected 422, got %d", rec.Code)
	}

	rec = h.do("GET", base+"/export?format=md", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "## C (p. 6)") {
		t.Errorf("unexpected markdown %q", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "abc.md") {
		t.Errorf("unexpected disposition %q", cd)
	}

	if rec := h.do("GET", base+"/export?format=pdf", ""); rec.Code != http.StatusConflict {
		t.Errorf("pdf without source: expected 409, got %d", rec.Code)
	}
	if rec := h.do("GET", base+"/export?format=rtf", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format: expected 400, got %d", rec.Code)
	}
	if rec := h.do("GET", base+"/extract?start=0&end=2", ""); rec.Code != http.StatusConflict {
		t.Errorf("extract without source: expected 409, got %d", rec.Code)
	}
}

func TestSaveJournalAndClose(t *testing.T) {
	h := newHarness(t)
	sid := h.openABC(t)
	base := "/api/sessions/" + sid

	if rec := h.do("POST", base+"/moves", `{"source":3,"relation":"none"}`); rec.Code != http.StatusOK {
		t.Fatalf("move: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if rec := h.do("DELETE", base, ""); rec.Code != http.StatusConflict {
		t.Errorf("close with unsaved changes: expected 409, got %d", rec.Code)
	}

	rec := h.do("POST", base+"/save", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("save: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if body := decode(t, rec); body["revision"] != float64(1) || body["doc_id"] != "doc-abc" {
		t.Errorf("unexpected save %v", body)
	}

	rec = h.do("GET", "/api/documents/doc-abc/journal", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("journal: expected 200, got %d", rec.Code)
	}
	if moves := decode(t, rec)["moves"].([]any); len(moves) != 1 {
		t.Errorf("expected 1 journaled move, got %d", len(moves))
	}

	if rec := h.do("DELETE", base, ""); rec.Code != http.StatusNoContent {
		t.Errorf("close: expected 204, got %d", rec.Code)
	}
	if rec := h.do("GET", base, ""); rec.Code != http.StatusNotFound {
		t.Errorf("closed session: expected 404, got %d", rec.Code)
	}

	rec = h.do("POST", "/api/documents/doc-abc/open", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("open: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	reopened := decode(t, rec)["session_id"].(string)
	body := decode(t, h.do("GET", "/api/sessions/"+reopened, ""))
	if marks := body["bookmarks"].([]any); len(marks) != 2 {
		t.Errorf("expected C promoted to top level after reopen, got %v", marks)
	}

	if rec := h.do("DELETE", "/api/documents/doc-abc", ""); rec.Code != http.StatusOK {
		t.Errorf("delete document: expected 200, got %d", rec.Code)
	}
	if rec := h.do("POST", "/api/documents/doc-abc/open", ""); rec.Code != http.StatusNotFound {
		t.Errorf("open deleted: expected 404, got %d", rec.Code)
	}
}

func TestUploadImportsDocument(t *testing.T) {
	h := newHarness(t)
	h.orch.Start(context.Background())
	defer h.orch.Stop()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "guide.md")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("# One (p. 1)\n## Two (p. 2)\n# Three (p. 4)\n"))
	mw.Close()

	req := httptest.NewRequest("POST", "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body)
	}
	poll := decode(t, rec)["poll_url"].(string)

	deadline := time.Now().Add(5 * time.Second)
	var status map[string]any
	for {
		status = decode(t, h.do("GET", poll, ""))
		if status["status"] == "completed" || status["status"] == "failed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("import did not finish: %v", status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if status["status"] != "completed" {
		t.Fatalf("import failed: %v", status)
	}
	sid := status["session_id"].(string)
	if rec := h.do("GET", "/api/sessions/"+sid, ""); rec.Code != http.StatusOK {
		t.Errorf("expected imported session, got %d", rec.Code)
	}
}

func TestUploadRejectsUnsupported(t *testing.T) {
	h := newHarness(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "notes.rtf")
	fw.Write([]byte("{\\rtf1}"))
	mw.Close()

	req := httptest.NewRequest("POST", "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestBatchUploadReportsPerFile(t *testing.T) {
	h := newHarness(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, body := range map[string]string{"a.md": "# A (p. 1)\n", "b.rtf": "{\\rtf1}"} {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(body))
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/api/documents/batch", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Jobs []uploadResult `json:"jobs"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Jobs) != 2 {
		t.Fatalf("expected 2 results, got %+v", resp.Jobs)
	}
	for _, j := range resp.Jobs {
		switch j.Filename {
		case "a.md":
			if j.JobID == "" || j.Error != "" || j.Status != string(pipeline.StatusQueued) {
				t.Errorf("expected a.md queued, got %+v", j)
			}
		case "b.rtf":
			if j.JobID != "" || !strings.Contains(j.Error, "unsupported") {
				t.Errorf("expected b.rtf refused, got %+v", j)
			}
		default:
			t.Errorf("unexpected result %+v", j)
		}
	}
	if h.orch.QueueDepth() != 1 {
		t.Errorf("expected one queued job, got %d", h.orch.QueueDepth())
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"../../etc/passwd": "passwd",
		"a..b.pdf":         "a_b.pdf",
		"":                 "unnamed",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
