package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/FranksOps/searchcredit/internal/storage"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS search_history (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	term TEXT NOT NULL,
	succeeded BOOLEAN NOT NULL,
	message TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_history_created ON search_history (created_at);
CREATE INDEX IF NOT EXISTS idx_search_history_run ON search_history (run_id);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under the async sink
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, r *storage.SearchRecord) error {
	query := `
	INSERT INTO search_history (
		id, run_id, term, succeeded, message, duration_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := b.db.ExecContext(ctx, query,
		r.ID,
		r.RunID,
		r.Term,
		r.Succeeded,
		r.Message,
		r.Duration.Milliseconds(),
		r.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save: %w", err)
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchRecord, error) {
	query := `SELECT id, run_id, term, succeeded, message, duration_ms, created_at FROM search_history WHERE 1=1`
	args := []any{}

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Term != "" {
		query += ` AND term = ?`
		args = append(args, filter.Term)
	}
	if filter.Succeeded != nil {
		query += ` AND succeeded = ?`
		args = append(args, *filter.Succeeded)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}

	query += ` ORDER BY created_at DESC`

	// sqlite only accepts OFFSET after LIMIT
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	var results []*storage.SearchRecord
	for rows.Next() {
		var r storage.SearchRecord
		var durationMs int64
		if err := rows.Scan(&r.ID, &r.RunID, &r.Term, &r.Succeeded, &r.Message, &durationMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
