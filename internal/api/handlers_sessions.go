package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/pdfmarks/internal/doctree"
	"github.com/dgallion1/pdfmarks/internal/export"
	"github.com/dgallion1/pdfmarks/internal/metrics"
	"github.com/dgallion1/pdfmarks/internal/outline"
	"github.com/dgallion1/pdfmarks/internal/pdfio"
	"github.com/dgallion1/pdfmarks/internal/pipeline"
	"github.com/dgallion1/pdfmarks/internal/ranges"
	"github.com/go-chi/chi/v5"
)

// Pages in request and response bodies are zero-based.

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	e := sessionFrom(r)
	var body map[string]any
	_ = e.Do(func(sess *outline.Session) error {
		body = map[string]any{
			"session_id":       e.ID,
			"doc_id":           e.DocID,
			"filename":         e.Filename,
			"title":            sess.Title(),
			"page_count":       sess.PageCount(),
			"modified":         sess.IsModified(),
			"order_violations": sess.OrderViolations(),
			"pending_moves":    len(sess.PendingMoves()),
			"pdf_export":       e.SourcePath != "",
			"bookmarks":        sess.View(),
		}
		return nil
	})
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	e := sessionFrom(r)
	var modified bool
	_ = e.Do(func(sess *outline.Session) error {
		modified = sess.IsModified()
		return nil
	})
	if modified && r.URL.Query().Get("force") != "true" {
		jsonError(w, "session has unsaved changes; save first or pass force=true", http.StatusConflict)
		return
	}
	s.orchestrator.Sessions().Delete(e.ID)
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	Source   outline.NodeID   `json:"source"`
	Target   *outline.NodeID  `json:"target"`
	Relation outline.Relation `json:"relation"`
}

func (m moveRequest) target() outline.NodeID {
	if m.Target == nil {
		return outline.NoNode
	}
	return *m.Target
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid move request: "+err.Error(), http.StatusBadRequest)
		return
	}

	var out outline.Outcome
	err := sessionFrom(r).Do(func(sess *outline.Session) error {
		var err error
		out, err = sess.AttemptMove(req.Source, req.target(), req.Relation)
		return err
	})
	if err != nil {
		editError(w, err)
		return
	}
	if !out.Applied {
		metrics.MovesTotal.WithLabelValues(string(out.Reason)).Inc()
		writeJSON(w, http.StatusUnprocessableEntity, out)
		return
	}
	metrics.MovesTotal.WithLabelValues("applied").Inc()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCheckMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid move request: "+err.Error(), http.StatusBadRequest)
		return
	}

	var plan outline.Plan
	err := sessionFrom(r).Do(func(sess *outline.Session) error {
		var err error
		plan, err = sess.CheckMove(req.Source, req.target(), req.Relation)
		return err
	})
	if me, ok := outline.AsMoveError(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"valid":   false,
			"reason":  me.Reason,
			"message": me.Message,
		})
		return
	}
	if err != nil {
		editError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":        true,
		"parent":       plan.Parent,
		"index":        plan.Index,
		"new_level":    plan.NewLevel,
		"level_change": plan.LevelChange,
	})
}

// handleUndoMove reverts the most recent move. The revert is itself a move,
// so a second undo redoes it.
func (s *Server) handleUndoMove(w http.ResponseWriter, r *http.Request) {
	var (
		rec     outline.MoveRecord
		nothing bool
	)
	err := sessionFrom(r).Do(func(sess *outline.Session) error {
		last, ok := sess.LastMove()
		if !ok {
			nothing = true
			return nil
		}
		var err error
		rec, err = sess.Revert(last)
		return err
	})
	if err != nil {
		editError(w, err)
		return
	}
	if nothing {
		jsonError(w, "no move to undo", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reverted": rec})
}

type addRequest struct {
	Parent *outline.NodeID `json:"parent"`
	Title  string          `json:"title"`
	Page   int             `json:"page"`
}

func (s *Server) handleAddBookmark(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid bookmark: "+err.Error(), http.StatusBadRequest)
		return
	}
	parent := outline.Root
	if req.Parent != nil {
		parent = *req.Parent
	}

	var (
		id   outline.NodeID
		path string
	)
	err := sessionFrom(r).Do(func(sess *outline.Session) error {
		var err error
		if id, err = sess.Add(parent, req.Title, req.Page); err != nil {
			return err
		}
		path, err = sess.Path(id)
		return err
	})
	if err != nil {
		editError(w, err)
		return
	}
	metrics.EditsTotal.WithLabelValues("add").Inc()
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "path": path})
}

type editRequest struct {
	Title *string `json:"title"`
	Page  *int    `json:"page"`
}

func (s *Server) handleEditBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeParam(w, r)
	if !ok {
		return
	}
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid edit: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == nil && req.Page == nil {
		jsonError(w, "nothing to change: pass title and/or page", http.StatusBadRequest)
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		editError(w, outline.ErrEmptyTitle)
		return
	}

	err := sessionFrom(r).Do(func(sess *outline.Session) error {
		if req.Page != nil {
			if err := sess.SetPage(id, *req.Page); err != nil {
				return err
			}
		}
		if req.Title != nil {
			return sess.Rename(id, *req.Title)
		}
		return nil
	})
	if err != nil {
		editError(w, err)
		return
	}
	metrics.EditsTotal.WithLabelValues("edit").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (s *Server) handleDeleteBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeParam(w, r)
	if !ok {
		return
	}
	var removed int
	err := sessionFrom(r).Do(func(sess *outline.Session) error {
		var err error
		removed, err = sess.Delete(id)
		return err
	})
	if err != nil {
		editError(w, err)
		return
	}
	metrics.EditsTotal.WithLabelValues("delete").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (s *Server) handleBookmarkPage(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeParam(w, r)
	if !ok {
		return
	}
	var page int
	err := sessionFrom(r).Do(func(sess *outline.Session) error {
		var err error
		page, err = sess.Page(id)
		return err
	})
	if err != nil {
		editError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "page": page})
}

func (s *Server) handleRanges(w http.ResponseWriter, r *http.Request) {
	doc := snapshot(sessionFrom(r))
	var out []doctree.Range
	if r.URL.Query().Get("chapters") == "true" {
		out = ranges.Chapters(doc)
	} else {
		out = ranges.All(doc)
	}
	if out == nil {
		out = []doctree.Range{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"page_count": doc.PageCount, "ranges": out})
}

type rangeCheckRequest struct {
	doctree.Range
	Existing []doctree.Range `json:"existing"`
}

func (s *Server) handleCheckRange(w http.ResponseWriter, r *http.Request) {
	var req rangeCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid range: "+err.Error(), http.StatusBadRequest)
		return
	}
	doc := snapshot(sessionFrom(r))
	if err := ranges.Validate(req.Range, doc.PageCount, req.Existing); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"valid": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	e := sessionFrom(r)
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	doc := snapshot(e)
	base := strings.TrimSuffix(e.Filename, filepath.Ext(e.Filename))

	var (
		buf         bytes.Buffer
		contentType string
		ext         string
	)
	if format == "pdf" {
		if e.SourcePath == "" {
			jsonError(w, "pdf export needs a pdf upload", http.StatusConflict)
			return
		}
		f, err := os.Open(e.SourcePath)
		if err != nil {
			s.log.Error("open source pdf", "session_id", e.ID, "error", err)
			jsonError(w, "source pdf unavailable", http.StatusInternalServerError)
			return
		}
		defer f.Close()
		if err := pdfio.WriteOutline(f, &buf, doc); err != nil {
			s.log.Error("pdf export failed", "session_id", e.ID, "error", err)
			jsonError(w, "pdf export failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		contentType, ext = "application/pdf", ".pdf"
	} else {
		wr, err := export.ForFormat(format)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := wr.Write(&buf, doc); err != nil {
			s.log.Error("export failed", "session_id", e.ID, "format", format, "error", err)
			jsonError(w, "export failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		contentType, ext = wr.ContentType(), wr.Ext()
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+ext))
	w.Write(buf.Bytes())
}

// handleExtract writes pages start..end (zero-based, inclusive) of the
// uploaded PDF as a new document.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	e := sessionFrom(r)
	if e.SourcePath == "" {
		jsonError(w, "page extraction needs a pdf upload", http.StatusConflict)
		return
	}
	q := r.URL.Query()
	start, err1 := strconv.Atoi(q.Get("start"))
	end, err2 := strconv.Atoi(q.Get("end"))
	if err1 != nil || err2 != nil {
		jsonError(w, "start and end must be page numbers", http.StatusBadRequest)
		return
	}
	name := q.Get("name")
	if name == "" {
		name = fmt.Sprintf("pages-%d-%d", start+1, end+1)
	}
	doc := snapshot(e)
	if err := ranges.Validate(doctree.Range{Title: name, PageStart: start, PageEnd: end}, doc.PageCount, nil); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	f, err := os.Open(e.SourcePath)
	if err != nil {
		jsonError(w, "source pdf unavailable", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	var buf bytes.Buffer
	if err := pdfio.ExtractPages(f, &buf, start, end); err != nil {
		s.log.Error("extract failed", "session_id", e.ID, "start", start, "end", end, "error", err)
		jsonError(w, "extract failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitizeFilename(name)+".pdf"))
	w.Write(buf.Bytes())
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	e := sessionFrom(r)
	if s.orchestrator.Store() == nil {
		jsonError(w, "saving is not configured", http.StatusServiceUnavailable)
		return
	}
	rev, err := s.orchestrator.SaveSession(r.Context(), e)
	if err != nil {
		s.log.Error("save failed", "session_id", e.ID, "doc_id", e.DocID, "error", err)
		jsonError(w, "save failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": e.DocID, "revision": rev})
}

func snapshot(e *pipeline.SessionEntry) *doctree.DocTree {
	var doc *doctree.DocTree
	_ = e.Do(func(sess *outline.Session) error {
		doc = sess.Snapshot()
		return nil
	})
	return doc
}

func nodeParam(w http.ResponseWriter, r *http.Request) (outline.NodeID, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, "bookmark id must be an integer", http.StatusBadRequest)
		return outline.NoNode, false
	}
	return outline.NodeID(n), true
}

// editError maps outline errors onto HTTP statuses.
func editError(w http.ResponseWriter, err error) {
	if me, ok := outline.AsMoveError(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  me.Message,
			"reason": me.Reason,
		})
		return
	}
	switch {
	case errors.Is(err, outline.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, outline.ErrEmptyTitle), errors.Is(err, outline.ErrPageRange), errors.Is(err, outline.ErrRoot):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}
