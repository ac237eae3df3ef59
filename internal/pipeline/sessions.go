package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/pdfmarks/internal/metrics"
	"github.com/dgallion1/pdfmarks/internal/outline"
)

// SessionEntry is one open editing session. outline.Session has no locking
// of its own, so every access goes through Do.
type SessionEntry struct {
	mu      sync.Mutex
	session *outline.Session

	ID          string    `json:"session_id"`
	DocID       string    `json:"doc_id"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash"`
	SourcePath  string    `json:"-"` // stored PDF, empty for other formats
	CreatedAt   time.Time `json:"created_at"`

	lastUsed time.Time
}

func NewSessionEntry(id, docID, filename, hash string, s *outline.Session) *SessionEntry {
	now := time.Now()
	return &SessionEntry{
		session:     s,
		ID:          id,
		DocID:       docID,
		Filename:    filename,
		ContentHash: hash,
		CreatedAt:   now,
		lastUsed:    now,
	}
}

// Do runs fn with exclusive access to the session.
func (e *SessionEntry) Do(fn func(s *outline.Session) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = time.Now()
	return fn(e.session)
}

func (e *SessionEntry) idleSince() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUsed, e.session.IsModified()
}

// SessionStore is a thread-safe registry of open sessions with idle
// eviction.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*SessionEntry
	log      *slog.Logger
}

func NewSessionStore(log *slog.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*SessionEntry),
		log:      log,
	}
}

func (s *SessionStore) Put(e *SessionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[e.ID] = e
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
}

func (s *SessionStore) Get(id string) *SessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// Delete removes a session and reports whether it existed.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return true
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Cleanup evicts sessions idle for longer than ttl and returns how many
// were removed. Unsaved changes in an evicted session are lost.
func (s *SessionStore) Cleanup(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, e := range s.sessions {
		last, modified := e.idleSince()
		if now.Sub(last) <= ttl {
			continue
		}
		if modified && s.log != nil {
			s.log.Warn("evicting session with unsaved changes", "session_id", id, "doc_id", e.DocID, "filename", e.Filename)
		}
		delete(s.sessions, id)
		removed++
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return removed
}
