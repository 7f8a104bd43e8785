package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

const submissionColumns = `id, name, email, phone, company, message, service, budget, timeline, source, status, notes, created_at, updated_at`

// PostgresRepository stores contact submissions in the relational database.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("contacts: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db querier) *PostgresRepository {
	if db == nil {
		panic("contacts: db required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateSubmissionRequest) (*Submission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	query := `
		INSERT INTO contact_submissions (id, name, email, phone, company, message, service, budget, timeline, source, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + submissionColumns
	row := r.db.QueryRow(ctx, query,
		uuid.New(),
		strings.TrimSpace(req.Name),
		strings.TrimSpace(req.Email),
		req.Phone,
		req.Company,
		req.Message,
		req.Service,
		req.Budget,
		req.Timeline,
		req.Source,
		StatusNew,
	)
	sub, err := scanSubmission(row)
	if err != nil {
		return nil, fmt.Errorf("contacts: insert failed: %w", err)
	}
	return sub, nil
}

// List returns every submission newest first. There is no pagination.
func (r *PostgresRepository) List(ctx context.Context) ([]*Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM contact_submissions ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("contacts: list failed: %w", err)
	}
	defer rows.Close()

	subs := []*Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("contacts: scan failed: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("contacts: list failed: %w", err)
	}
	return subs, nil
}

// Update patches status and/or notes. COALESCE keeps columns the patch omits.
func (r *PostgresRepository) Update(ctx context.Context, req *UpdateSubmissionRequest) (*Submission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, ErrSubmissionNotFound
	}
	query := `
		UPDATE contact_submissions
		SET status = COALESCE($2, status),
			notes = COALESCE($3, notes),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + submissionColumns
	sub, err := scanSubmission(r.db.QueryRow(ctx, query, id, req.Status, req.Notes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("contacts: update failed: %w", err)
	}
	return sub, nil
}

// Delete permanently removes the row.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return ErrSubmissionNotFound
	}
	ct, err := r.db.Exec(ctx, `DELETE FROM contact_submissions WHERE id = $1`, parsed)
	if err != nil {
		return fmt.Errorf("contacts: delete failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

func scanSubmission(row pgx.Row) (*Submission, error) {
	var sub Submission
	var id uuid.UUID
	if err := row.Scan(
		&id,
		&sub.Name,
		&sub.Email,
		&sub.Phone,
		&sub.Company,
		&sub.Message,
		&sub.Service,
		&sub.Budget,
		&sub.Timeline,
		&sub.Source,
		&sub.Status,
		&sub.Notes,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	sub.ID = id.String()
	return &sub, nil
}
