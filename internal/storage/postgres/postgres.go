package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FranksOps/searchcredit/internal/storage"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS search_history (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	term TEXT NOT NULL,
	succeeded BOOLEAN NOT NULL,
	message TEXT NOT NULL,
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_history_created ON search_history (created_at);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, r *storage.SearchRecord) error {
	query := `
	INSERT INTO search_history (
		id, run_id, term, succeeded, message, duration_ms, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := b.pool.Exec(ctx, query,
		r.ID,
		r.RunID,
		r.Term,
		r.Succeeded,
		r.Message,
		r.Duration.Milliseconds(),
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save: %w", err)
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchRecord, error) {
	query := `SELECT id, run_id, term, succeeded, message, duration_ms, created_at FROM search_history WHERE 1=1`
	args := []any{}
	argID := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, argID)
		args = append(args, filter.RunID)
		argID++
	}
	if filter.Term != "" {
		query += fmt.Sprintf(` AND term = $%d`, argID)
		args = append(args, filter.Term)
		argID++
	}
	if filter.Succeeded != nil {
		query += fmt.Sprintf(` AND succeeded = $%d`, argID)
		args = append(args, *filter.Succeeded)
		argID++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, argID)
		args = append(args, *filter.Since)
		argID++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argID)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*storage.SearchRecord, error) {
		var r storage.SearchRecord
		var durationMs int64
		if err := row.Scan(&r.ID, &r.RunID, &r.Term, &r.Succeeded, &r.Message, &durationMs, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		return &r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
