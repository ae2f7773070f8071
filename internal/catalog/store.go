package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"wordreel/internal/config"
)

// Store is a read-only SQLite-backed clip catalog, safe for concurrent use
// across jobs. Its only mutable state is the transcript LRU cache.
type Store struct {
	db   *sql.DB
	path string

	cacheMu sync.Mutex
	cache   *transcriptCache
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// transcriptCacheSize bounds the in-process transcript LRU (§4.1).
	transcriptCacheSize = 256
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) queryWithRetry(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ctx = ensureContext(ctx)
	var (
		rows    *sql.Rows
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		rows, execErr = s.db.QueryContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return rows, nil
}

// Open connects to the catalog database at cfg.Paths.DBPath, applying the
// same WAL/busy-timeout pragmas the rest of the corpus uses for SQLite.
func Open(cfg *config.Config) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.Paths.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: cfg.Paths.DBPath, cache: newTranscriptCache(transcriptCacheSize)}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the filesystem path of the open catalog database.
func (s *Store) Path() string {
	return s.path
}

// Stats reports aggregate catalog contents.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT word) FROM word_clips")
	if err := row.Scan(&stats.Words); err != nil {
		return Stats{}, fmt.Errorf("count words: %w", err)
	}
	row = s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM videos")
	if err := row.Scan(&stats.Videos); err != nil {
		return Stats{}, fmt.Errorf("count videos: %w", err)
	}
	var transcripts, phrases int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM video_transcripts").Scan(&transcripts); err != nil {
		return Stats{}, fmt.Errorf("count transcripts: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM phrase_index").Scan(&phrases); err != nil {
		return Stats{}, fmt.Errorf("count phrase index: %w", err)
	}
	stats.HasTranscripts = transcripts > 0
	stats.HasPhraseIndex = phrases > 0
	return stats, nil
}
