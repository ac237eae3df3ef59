package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/pdfmarks/internal/config"
	"github.com/dgallion1/pdfmarks/internal/metrics"
	"github.com/dgallion1/pdfmarks/internal/outline"
	"github.com/dgallion1/pdfmarks/internal/store"
)

// Orchestrator runs uploaded documents through import workers and owns the
// resulting editing sessions.
type Orchestrator struct {
	jobs     *JobStore
	sessions *SessionStore
	stats    *ImportStats
	queue    chan *Job
	store    *store.Store
	log      *slog.Logger
	cfg      config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. st may be nil, in which case
// imports never restore a previously saved outline.
func NewOrchestrator(cfg config.Config, st *store.Store, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		sessions: NewSessionStore(log),
		stats:    NewImportStats(time.Hour),
		queue:    make(chan *Job, cfg.MaxQueueSize),
		store:    st,
		log:      log,
		cfg:      cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := o.newWorker()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					metrics.QueueDepth.Set(float64(len(o.queue)))
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Evict stale jobs and idle sessions.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
				if n := o.sessions.Cleanup(o.cfg.SessionTTL); n > 0 {
					o.log.Info("idle sessions evicted", "count", n)
				}
			}
		}
	}()
}

func (o *Orchestrator) newWorker() *Worker {
	return NewWorker(o.sessions, o.store, o.stats, o.log, WorkerOptions{
		MaxDepth:        o.cfg.MaxDepth,
		PDFTextFallback: o.cfg.PDFTextFallback,
		DataDir:         o.cfg.DataDir,
	})
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		metrics.QueueDepth.Set(float64(len(o.queue)))
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

func (o *Orchestrator) Sessions() *SessionStore { return o.sessions }

func (o *Orchestrator) Stats() *ImportStats { return o.stats }

// Store returns the persistence layer, or nil when none is configured.
func (o *Orchestrator) Store() *store.Store { return o.store }

// OpenSaved starts a session from the latest saved revision of docID.
func (o *Orchestrator) OpenSaved(ctx context.Context, docID string) (*SessionEntry, error) {
	if o.store == nil {
		return nil, store.ErrNotFound
	}
	saved, err := o.store.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	sess, err := outline.Load(saved.Tree, outline.Options{
		MaxDepth: o.cfg.MaxDepth,
		Logger:   o.log.With("doc_id", docID),
	})
	if err != nil {
		return nil, fmt.Errorf("load saved outline %s: %w", docID, err)
	}
	entry := NewSessionEntry(uuid.NewString(), saved.ID, saved.Filename, saved.ContentHash, sess)
	if o.cfg.DataDir != "" {
		path := filepath.Join(o.cfg.DataDir, saved.ContentHash+".pdf")
		if _, err := os.Stat(path); err == nil {
			entry.SourcePath = path
		}
	}
	o.sessions.Put(entry)
	return entry, nil
}

// SaveSession writes the session's snapshot and pending moves as a new
// revision and clears its modified flag.
func (o *Orchestrator) SaveSession(ctx context.Context, e *SessionEntry) (int, error) {
	if o.store == nil {
		return 0, errors.New("no store configured")
	}
	var revision int
	err := e.Do(func(s *outline.Session) error {
		rev, err := o.store.Save(ctx, store.Outline{
			ID:          e.DocID,
			Filename:    e.Filename,
			ContentHash: e.ContentHash,
			Tree:        s.Snapshot(),
		}, s.PendingMoves())
		if err != nil {
			return err
		}
		s.AcknowledgeSaved()
		revision = rev
		return nil
	})
	if err != nil {
		metrics.SavesTotal.WithLabelValues("error").Inc()
		return 0, err
	}
	metrics.SavesTotal.WithLabelValues("ok").Inc()
	return revision, nil
}
