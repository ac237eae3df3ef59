// Package store persists saved outlines and the moves that produced each
// revision in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dgallion1/pdfmarks/internal/doctree"
	"github.com/dgallion1/pdfmarks/internal/outline"
)

// ErrNotFound is returned when no outline matches.
var ErrNotFound = errors.New("outline not found")

// timeFormat is fixed-width so saved_at sorts as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS outlines (
	id           TEXT PRIMARY KEY,
	filename     TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	page_count   INTEGER NOT NULL,
	tree         TEXT NOT NULL,
	revision     INTEGER NOT NULL DEFAULT 1,
	saved_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outlines_hash ON outlines(content_hash);

CREATE TABLE IF NOT EXISTS move_journal (
	outline_id   TEXT NOT NULL REFERENCES outlines(id) ON DELETE CASCADE,
	revision     INTEGER NOT NULL,
	seq          INTEGER NOT NULL,
	source       INTEGER NOT NULL,
	from_parent  INTEGER NOT NULL,
	from_index   INTEGER NOT NULL,
	to_parent    INTEGER NOT NULL,
	to_index     INTEGER NOT NULL,
	level_change INTEGER NOT NULL,
	PRIMARY KEY (outline_id, revision, seq)
);
`

// Outline is one saved revision of a document's bookmarks.
type Outline struct {
	ID          string           `json:"id"`
	Filename    string           `json:"filename"`
	ContentHash string           `json:"content_hash"`
	Tree        *doctree.DocTree `json:"tree"`
	Revision    int              `json:"revision"`
	SavedAt     time.Time        `json:"saved_at"`
}

// JournalEntry is a move recorded against a saved revision.
type JournalEntry struct {
	Revision int                `json:"revision"`
	Seq      int                `json:"seq"`
	Move     outline.MoveRecord `json:"move"`
}

// Store wraps the SQLite handle.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" opens a private in-memory database.
func Open(path string, log *slog.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes o as a new revision and appends the moves applied since the
// previous one. It returns the revision number written.
func (s *Store) Save(ctx context.Context, o Outline, moves []outline.MoveRecord) (int, error) {
	tree, err := json.Marshal(o.Tree)
	if err != nil {
		return 0, fmt.Errorf("store: encode tree: %w", err)
	}
	savedAt := o.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}

	var revision int
	err = runTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO outlines (id, filename, content_hash, title, page_count, tree, revision, saved_at)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?)
			ON CONFLICT(id) DO UPDATE SET
				filename = excluded.filename,
				content_hash = excluded.content_hash,
				title = excluded.title,
				page_count = excluded.page_count,
				tree = excluded.tree,
				revision = outlines.revision + 1,
				saved_at = excluded.saved_at`,
			o.ID, o.Filename, o.ContentHash, o.Tree.Title, o.Tree.PageCount, string(tree), savedAt.UTC().Format(timeFormat))
		if err != nil {
			return fmt.Errorf("upsert outline: %w", err)
		}
		if err := tx.QueryRowContext(ctx, `SELECT revision FROM outlines WHERE id = ?`, o.ID).Scan(&revision); err != nil {
			return fmt.Errorf("read revision: %w", err)
		}
		for i, m := range moves {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO move_journal (outline_id, revision, seq, source, from_parent, from_index, to_parent, to_index, level_change)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				o.ID, revision, i, m.Source, m.FromParent, m.FromIndex, m.ToParent, m.ToIndex, m.LevelChange)
			if err != nil {
				return fmt.Errorf("insert move %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store: save %s: %w", o.ID, err)
	}
	if s.log != nil {
		s.log.Info("outline saved", "id", o.ID, "revision", revision, "moves", len(moves))
	}
	return revision, nil
}

const selectOutline = `SELECT id, filename, content_hash, tree, revision, saved_at FROM outlines`

// Get returns the latest revision of the outline with id.
func (s *Store) Get(ctx context.Context, id string) (Outline, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, selectOutline+` WHERE id = ?`, id))
}

// FindByHash returns the most recently saved outline for a document with
// the given content hash.
func (s *Store) FindByHash(ctx context.Context, hash string) (Outline, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		selectOutline+` WHERE content_hash = ? ORDER BY saved_at DESC LIMIT 1`, hash))
}

func (s *Store) scanOne(row *sql.Row) (Outline, error) {
	var (
		o       Outline
		tree    string
		savedAt string
	)
	if err := row.Scan(&o.ID, &o.Filename, &o.ContentHash, &tree, &o.Revision, &savedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Outline{}, ErrNotFound
		}
		return Outline{}, fmt.Errorf("store: scan outline: %w", err)
	}
	o.Tree = &doctree.DocTree{}
	if err := json.Unmarshal([]byte(tree), o.Tree); err != nil {
		return Outline{}, fmt.Errorf("store: decode tree %s: %w", o.ID, err)
	}
	t, err := time.Parse(timeFormat, savedAt)
	if err != nil {
		return Outline{}, fmt.Errorf("store: saved_at %q: %w", savedAt, err)
	}
	o.SavedAt = t
	return o, nil
}

// Journal returns every recorded move for an outline, oldest first.
func (s *Store) Journal(ctx context.Context, id string) ([]JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT revision, seq, source, from_parent, from_index, to_parent, to_index, level_change
		FROM move_journal WHERE outline_id = ? ORDER BY revision, seq`, id)
	if err != nil {
		return nil, fmt.Errorf("store: journal: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		m := &e.Move
		if err := rows.Scan(&e.Revision, &e.Seq, &m.Source, &m.FromParent, &m.FromIndex, &m.ToParent, &m.ToIndex, &m.LevelChange); err != nil {
			return nil, fmt.Errorf("store: scan journal: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes an outline and its journal.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := execRetry(ctx, s.db, `DELETE FROM outlines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
