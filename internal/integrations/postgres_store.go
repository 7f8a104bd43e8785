package integrations

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type execQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore persists entries into integration_logs.
type PostgresStore struct {
	db execQuerier
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("integrations: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithDB(db execQuerier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	entry = normalize(entry)
	id, err := uuid.Parse(entry.ID)
	if err != nil {
		return fmt.Errorf("integrations: invalid entry id: %w", err)
	}
	var statusCode *int
	if entry.StatusCode != 0 {
		statusCode = &entry.StatusCode
	}
	query := `
		INSERT INTO integration_logs (id, type, provider, level, message, status_code, error, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9)
	`
	if _, err := s.db.Exec(ctx, query, id, entry.Type, entry.Provider, entry.Level, entry.Message,
		statusCode, entry.Error, entry.CorrelationID, entry.CreatedAt); err != nil {
		return fmt.Errorf("integrations: insert log: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, type, provider, level, message, COALESCE(status_code, 0), COALESCE(error, ''), COALESCE(correlation_id, ''), created_at
		FROM integration_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("integrations: list logs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var id uuid.UUID
		if err := rows.Scan(&id, &e.Type, &e.Provider, &e.Level, &e.Message, &e.StatusCode, &e.Error, &e.CorrelationID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("integrations: scan log: %w", err)
		}
		e.ID = id.String()
		out = append(out, e)
	}
	return out, rows.Err()
}
