package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const maxRetries = 3

// IsBusy reports whether err is an SQLite lock conflict worth retrying.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// backoff returns a delay for attempt n (0-indexed) with jitter.
func backoff(attempt int) time.Duration {
	base := time.Duration(100*(attempt+1)) * time.Millisecond
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// runTx executes fn in a transaction, retrying on lock conflicts.
func runTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	var err error
	for attempt := range maxRetries {
		err = runOnce(ctx, db, fn)
		if err == nil || !IsBusy(err) {
			return err
		}
		if serr := sleepCtx(ctx, backoff(attempt)); serr != nil {
			return fmt.Errorf("retry cancelled: %w", serr)
		}
	}
	return fmt.Errorf("max retries exceeded: %w", err)
}

func runOnce(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func execRetry(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var err error
	for attempt := range maxRetries {
		var res sql.Result
		res, err = db.ExecContext(ctx, query, args...)
		if err == nil || !IsBusy(err) {
			return res, err
		}
		if serr := sleepCtx(ctx, backoff(attempt)); serr != nil {
			return nil, fmt.Errorf("retry cancelled: %w", serr)
		}
	}
	return nil, fmt.Errorf("max retries exceeded: %w", err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
