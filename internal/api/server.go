package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/pdfmarks/internal/config"
	"github.com/dgallion1/pdfmarks/internal/metrics"
	"github.com/dgallion1/pdfmarks/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for pdfmarks.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/documents", s.handleUpload)
		r.Post("/api/documents/batch", s.handleBatchUpload)
		r.Get("/api/imports/{jobID}", s.handleImportStatus)
		r.Get("/api/stats/imports", s.handleImportStats)

		r.Post("/api/documents/{docID}/open", s.handleOpenDocument)
		r.Get("/api/documents/{docID}/journal", s.handleDocumentJournal)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)

		r.Route("/api/sessions/{sid}", func(r chi.Router) {
			r.Use(s.withSession)

			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleCloseSession)
			r.Post("/moves", s.handleMove)
			r.Post("/moves/check", s.handleCheckMove)
			r.Post("/moves/undo", s.handleUndoMove)
			r.Post("/bookmarks", s.handleAddBookmark)
			r.Patch("/bookmarks/{id}", s.handleEditBookmark)
			r.Delete("/bookmarks/{id}", s.handleDeleteBookmark)
			r.Get("/bookmarks/{id}/page", s.handleBookmarkPage)
			r.Get("/ranges", s.handleRanges)
			r.Post("/ranges/check", s.handleCheckRange)
			r.Get("/export", s.handleExport)
			r.Get("/extract", s.handleExtract)
			r.Post("/save", s.handleSave)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
