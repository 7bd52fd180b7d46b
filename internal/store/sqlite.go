package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tickbars/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

var _ RequestJournal = (*SQLiteStore)(nil)

// MaxListLimit caps the number of journal entries returned per query.
const MaxListLimit = 500

const schema = `
CREATE TABLE IF NOT EXISTS requests (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker      TEXT    NOT NULL,
	date        TEXT    NOT NULL,
	session     TEXT    NOT NULL,
	source      TEXT    NOT NULL DEFAULT '',
	trades      INTEGER NOT NULL DEFAULT 0,
	bars        INTEGER NOT NULL DEFAULT 0,
	status      TEXT    NOT NULL,
	error       TEXT    NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_created ON requests (created_at DESC);
`

// SQLiteStore implements RequestJournal backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the journal table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordRequest inserts entry. CreatedAt defaults to now.
func (s *SQLiteStore) RecordRequest(ctx context.Context, entry *domain.RequestLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO requests (ticker, date, session, source, trades, bars, status, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Ticker, entry.Date, string(entry.Session), entry.Source,
		entry.Trades, entry.Bars, string(entry.Status), entry.Error,
		entry.DurationMs, entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading request id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListRequests returns up to limit entries, newest first. limit is clamped
// to [1, MaxListLimit].
func (s *SQLiteStore) ListRequests(ctx context.Context, limit int) ([]domain.RequestLog, error) {
	limit = min(max(limit, 1), MaxListLimit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ticker, date, session, source, trades, bars, status, error, duration_ms, created_at
		 FROM requests ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying requests: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RequestLog, 0, limit)
	for rows.Next() {
		var (
			r       domain.RequestLog
			session string
			status  string
			created int64
		)
		if err := rows.Scan(&r.ID, &r.Ticker, &r.Date, &session, &r.Source,
			&r.Trades, &r.Bars, &status, &r.Error, &r.DurationMs, &created); err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		r.Session = domain.Session(session)
		r.Status = domain.RequestStatus(status)
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
