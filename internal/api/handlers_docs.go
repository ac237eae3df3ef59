package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/pdfmarks/internal/store"
	"github.com/go-chi/chi/v5"
)

// handleOpenDocument starts a new session from a saved outline.
func (s *Server) handleOpenDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	e, err := s.orchestrator.OpenSaved(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("open saved outline", "doc_id", docID, "error", err)
		jsonError(w, "failed to open document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": e.ID,
		"doc_id":     e.DocID,
		"filename":   e.Filename,
	})
}

// handleDocumentJournal lists every saved move for a document.
func (s *Server) handleDocumentJournal(w http.ResponseWriter, r *http.Request) {
	st := s.orchestrator.Store()
	if st == nil {
		jsonError(w, "saving is not configured", http.StatusServiceUnavailable)
		return
	}
	docID := chi.URLParam(r, "docID")
	o, err := st.Get(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to read document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	entries, err := st.Journal(r.Context(), docID)
	if err != nil {
		jsonError(w, "failed to read journal: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []store.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id":   o.ID,
		"revision": o.Revision,
		"saved_at": o.SavedAt,
		"moves":    entries,
	})
}

// handleDeleteDocument removes a saved outline and its journal. Open
// sessions on it keep working and can save it again.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	st := s.orchestrator.Store()
	if st == nil {
		jsonError(w, "saving is not configured", http.StatusServiceUnavailable)
		return
	}
	docID := chi.URLParam(r, "docID")
	err := st.Delete(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": docID})
}
