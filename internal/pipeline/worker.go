package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/pdfmarks/internal/metrics"
	"github.com/dgallion1/pdfmarks/internal/outline"
	"github.com/dgallion1/pdfmarks/internal/parser"
	"github.com/dgallion1/pdfmarks/internal/store"
)

// WorkerOptions carries the import settings a worker needs.
type WorkerOptions struct {
	MaxDepth        int
	PDFTextFallback bool
	// DataDir keeps uploaded PDFs so their outline can be written back on
	// export. Empty disables PDF export.
	DataDir string
}

// Worker turns an uploaded document into an editing session.
type Worker struct {
	sessions *SessionStore
	store    *store.Store
	stats    *ImportStats
	log      *slog.Logger
	opts     WorkerOptions
}

func NewWorker(sessions *SessionStore, st *store.Store, stats *ImportStats, log *slog.Logger, opts WorkerOptions) *Worker {
	return &Worker{
		sessions: sessions,
		store:    st,
		stats:    stats,
		log:      log,
		opts:     opts,
	}
}

// Process parses the job's file, restores a saved outline for the same
// content if one exists, and registers a new session.
func (w *Worker) Process(ctx context.Context, job *Job) {
	start := time.Now()
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "filename", job.Filename)
	format := job.Format

	fail := func(phase string, err error) {
		log.Error("import failed", "phase", phase, "error", err)
		job.AddError(fmt.Sprintf("%s: %s", phase, err))
		job.SetStatus(StatusFailed, phase)
		metrics.ImportsTotal.WithLabelValues(format, string(StatusFailed)).Inc()
		w.stats.Record(format, time.Since(start), true)
	}

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	data := job.FileData()
	p, err := parser.ForFile(job.Filename, parser.Options{PDFTextFallback: w.opts.PDFTextFallback})
	if err != nil {
		fail("parsing", err)
		return
	}
	tree, err := p.Parse(bytes.NewReader(data), job.Filename)
	if err != nil {
		fail("parsing", err)
		return
	}
	if job.Title != "" {
		tree.Title = job.Title
	}
	job.ContentHash = ContentHashHex(data)

	// Phase 1.5: pick up where a previous save left off.
	docID := job.DocID
	restored := false
	if saved, ok := w.findSaved(ctx, job.ContentHash, log); ok {
		docID = saved.ID
		restored = true
		if saved.Tree.PageCount == 0 {
			saved.Tree.PageCount = tree.PageCount
		}
		tree = saved.Tree
		log.Info("restoring saved outline", "saved_doc_id", saved.ID, "revision", saved.Revision)
	}

	// Phase 2: Load
	job.SetStatus(StatusLoading, "loading")
	sess, err := outline.Load(tree, outline.Options{
		MaxDepth: w.opts.MaxDepth,
		Logger:   log,
	})
	if err != nil {
		fail("loading", err)
		return
	}
	job.SetResult(sess.Tree().Len(), sess.PageCount(), sess.OrderViolations())

	entry := NewSessionEntry(uuid.NewString(), docID, job.Filename, job.ContentHash, sess)
	if format == "pdf" && w.opts.DataDir != "" {
		path, err := w.keepSource(job.ContentHash, data)
		if err != nil {
			// The session is still editable; only PDF export is lost.
			log.Warn("could not keep source pdf", "error", err)
			job.AddError(fmt.Sprintf("keep source: %s", err))
		} else {
			entry.SourcePath = path
		}
	}
	job.releaseFileData()

	w.sessions.Put(entry)
	job.Complete(entry.ID, docID, restored)

	elapsed := time.Since(start)
	w.stats.Record(format, elapsed, false)
	metrics.ImportDuration.WithLabelValues(format).Observe(elapsed.Seconds())
	metrics.ImportsTotal.WithLabelValues(format, string(StatusCompleted)).Inc()
	log.Info("import complete",
		"session_id", entry.ID,
		"bookmarks", sess.Tree().Len(),
		"pages", sess.PageCount(),
		"restored", restored,
		"duration_ms", elapsed.Milliseconds(),
	)
}

func (w *Worker) findSaved(ctx context.Context, hash string, log *slog.Logger) (store.Outline, bool) {
	if w.store == nil {
		return store.Outline{}, false
	}
	saved, err := w.store.FindByHash(ctx, hash)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn("saved outline lookup failed, using file outline", "error", err)
		}
		return store.Outline{}, false
	}
	return saved, true
}

// keepSource writes the upload under DataDir named by its content hash, so
// repeated uploads of one file share a copy.
func (w *Worker) keepSource(hash string, data []byte) (string, error) {
	if err := os.MkdirAll(w.opts.DataDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(w.opts.DataDir, hash+".pdf")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	tmp, err := os.CreateTemp(w.opts.DataDir, "upload-*.pdf")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}

// FormatOf returns the lower-case extension of filename without the dot.
func FormatOf(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// NewJob builds a queued job for an upload.
func NewJob(filename, title string, data []byte) *Job {
	now := time.Now()
	job := &Job{
		ID:        uuid.NewString(),
		DocID:     uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		Title:     title,
		Format:    FormatOf(filename),
		CreatedAt: now,
		UpdatedAt: now,
	}
	job.SetFileData(data)
	return job
}
