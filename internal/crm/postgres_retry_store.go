package crm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const retryColumns = `id, type, lead_id, attempts, status, next_run_at, COALESCE(last_error, ''), created_at, updated_at`

// PostgresRetryStore keeps the queue in integration_retries.
type PostgresRetryStore struct {
	db querier
}

func NewPostgresRetryStore(pool *pgxpool.Pool) *PostgresRetryStore {
	if pool == nil {
		panic("crm: pgx pool required")
	}
	return &PostgresRetryStore{db: pool}
}

func newPostgresRetryStoreWithDB(db querier) *PostgresRetryStore {
	return &PostgresRetryStore{db: db}
}

func (s *PostgresRetryStore) Enqueue(ctx context.Context, leadID string, runAt time.Time, lastErr string) (*Retry, error) {
	lead, err := uuid.Parse(leadID)
	if err != nil {
		return nil, fmt.Errorf("crm: invalid lead id: %w", err)
	}
	query := `
		INSERT INTO integration_retries (id, type, lead_id, attempts, status, next_run_at, last_error)
		VALUES ($1, $2, $3, 0, $4, $5, NULLIF($6, ''))
		RETURNING ` + retryColumns
	r, err := scanRetry(s.db.QueryRow(ctx, query, uuid.New(), RetryTypeLead, lead, RetryQueued, runAt, lastErr))
	if err != nil {
		return nil, fmt.Errorf("crm: enqueue retry: %w", err)
	}
	return r, nil
}

// Claim leases due rows with SKIP LOCKED so concurrent workers never share a row.
func (s *PostgresRetryStore) Claim(ctx context.Context, now time.Time, limit int) ([]Retry, error) {
	query := `
		UPDATE integration_retries
		SET next_run_at = $3, updated_at = now()
		WHERE id IN (
			SELECT id FROM integration_retries
			WHERE status = 'queued' AND next_run_at <= $1
			ORDER BY next_run_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + retryColumns
	rows, err := s.db.Query(ctx, query, now, limit, now.Add(claimLease))
	if err != nil {
		return nil, fmt.Errorf("crm: claim retries: %w", err)
	}
	defer rows.Close()

	var out []Retry
	for rows.Next() {
		r, err := scanRetry(rows)
		if err != nil {
			return nil, fmt.Errorf("crm: scan retry: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *PostgresRetryStore) MarkDone(ctx context.Context, id string) error {
	return s.exec(ctx, `UPDATE integration_retries SET status = 'done', updated_at = now() WHERE id = $1`, id)
}

func (s *PostgresRetryStore) Reschedule(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error {
	return s.exec(ctx, `
		UPDATE integration_retries
		SET attempts = $2, next_run_at = $3, last_error = $4, updated_at = now()
		WHERE id = $1`, id, attempts, next, lastErr)
}

func (s *PostgresRetryStore) MarkDead(ctx context.Context, id string, attempts int, lastErr string) error {
	return s.exec(ctx, `
		UPDATE integration_retries
		SET status = 'dead', attempts = $2, last_error = $3, updated_at = now()
		WHERE id = $1`, id, attempts, lastErr)
}

func (s *PostgresRetryStore) exec(ctx context.Context, query string, id string, args ...any) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return ErrRetryNotFound
	}
	ct, err := s.db.Exec(ctx, query, append([]any{parsed}, args...)...)
	if err != nil {
		return fmt.Errorf("crm: update retry: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrRetryNotFound
	}
	return nil
}

func scanRetry(row pgx.Row) (*Retry, error) {
	var r Retry
	var id, leadID uuid.UUID
	if err := row.Scan(&id, &r.Type, &leadID, &r.Attempts, &r.Status, &r.NextRunAt, &r.LastError, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.ID = id.String()
	r.LeadID = leadID.String()
	return &r, nil
}
