package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/leadintake/internal/events"
)

type querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const leadColumns = `id, COALESCE(name, ''), COALESCE(email, ''), COALESCE(phone, ''), COALESCE(message, ''), source, lead_source,
	COALESCE(campaign, ''), raw, status, crm_status, COALESCE(crm_lead_id, ''), score, qualification, priority,
	COALESCE(idempotency_key, ''), correlation_id, created_at, updated_at`

// PostgresRepository persists leads in Postgres.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository returns a repository backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db querier) *PostgresRepository {
	if db == nil {
		panic("leads: db required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts the lead and its lead.created.v1 outbox event in one
// transaction. An idempotency-key conflict returns the existing row instead.
func (r *PostgresRepository) Create(ctx context.Context, lead *Lead) (*Lead, bool, error) {
	id, err := uuid.Parse(lead.ID)
	if err != nil {
		return nil, false, fmt.Errorf("leads: invalid id: %w", err)
	}
	raw, err := json.Marshal(nonNilRaw(lead.Raw))
	if err != nil {
		return nil, false, fmt.Errorf("leads: marshal raw: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("leads: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO leads (id, name, email, phone, message, source, lead_source, campaign, raw, status,
			crm_status, score, qualification, priority, idempotency_key, correlation_id)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, NULLIF($8, ''), $9, $10,
			$11, $12, $13, $14, NULLIF($15, ''), $16)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING ` + leadColumns
	stored, err := scanLead(tx.QueryRow(ctx, query,
		id, lead.Name, lead.Email, lead.Phone, lead.Message, lead.Source, lead.LeadSource, lead.Campaign, raw,
		lead.Status, lead.CRMStatus, lead.Score, lead.Qualification, lead.Priority, lead.IdempotencyKey, lead.CorrelationID,
	))
	if errors.Is(err, pgx.ErrNoRows) && lead.IdempotencyKey != "" {
		existing, err := scanLead(tx.QueryRow(ctx,
			`SELECT `+leadColumns+` FROM leads WHERE idempotency_key = $1`, lead.IdempotencyKey))
		if err != nil {
			return nil, false, fmt.Errorf("leads: load duplicate: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("leads: commit: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("leads: insert failed: %w", err)
	}

	if _, err := events.InsertTx(ctx, tx, events.EventLeadCreated, leadCreatedEvent(stored)); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("leads: commit: %w", err)
	}
	return stored, true, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrLeadNotFound
	}
	lead, err := scanLead(r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, parsed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: get failed: %w", err)
	}
	return lead, nil
}

// List returns every lead newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*Lead, error) {
	rows, err := r.db.Query(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id, status string) (*Lead, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrLeadNotFound
	}
	query := `UPDATE leads SET status = $2, updated_at = now() WHERE id = $1 RETURNING ` + leadColumns
	lead, err := scanLead(r.db.QueryRow(ctx, query, parsed, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: update failed: %w", err)
	}
	return lead, nil
}

// MarkPushed records a successful CRM push. An admin pipeline label in status
// is left alone.
func (r *PostgresRepository) MarkPushed(ctx context.Context, id, crmLeadID string) error {
	return r.exec(ctx, `
		UPDATE leads SET crm_status = 'pushed', crm_lead_id = $2, updated_at = now(),
			status = CASE WHEN status IN ('pending', 'failed') THEN 'pushed' ELSE status END
		WHERE id = $1`, id, crmLeadID)
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, id string) error {
	return r.exec(ctx, `
		UPDATE leads SET crm_status = 'failed', updated_at = now(),
			status = CASE WHEN status = 'pending' THEN 'failed' ELSE status END
		WHERE id = $1`, id)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
}

func (r *PostgresRepository) exec(ctx context.Context, query, id string, args ...any) error {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return ErrLeadNotFound
	}
	ct, err := r.db.Exec(ctx, query, append([]any{parsed}, args...)...)
	if err != nil {
		return fmt.Errorf("leads: exec failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	var id uuid.UUID
	var raw []byte
	if err := row.Scan(
		&id,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Message,
		&lead.Source,
		&lead.LeadSource,
		&lead.Campaign,
		&raw,
		&lead.Status,
		&lead.CRMStatus,
		&lead.CRMLeadID,
		&lead.Score,
		&lead.Qualification,
		&lead.Priority,
		&lead.IdempotencyKey,
		&lead.CorrelationID,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	lead.ID = id.String()
	lead.Raw = map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &lead.Raw); err != nil {
			return nil, fmt.Errorf("leads: decode raw: %w", err)
		}
	}
	return &lead, nil
}

func nonNilRaw(raw map[string]any) map[string]any {
	if raw == nil {
		return map[string]any{}
	}
	return raw
}

func leadCreatedEvent(l *Lead) events.LeadCreatedV1 {
	return events.LeadCreatedV1{
		EventID:       uuid.NewString(),
		LeadID:        l.ID,
		CorrelationID: l.CorrelationID,
		Name:          l.Name,
		Email:         l.Email,
		Phone:         l.Phone,
		Message:       l.Message,
		Source:        l.Source,
		LeadSource:    l.LeadSource,
		Score:         l.Score,
		Qualification: l.Qualification,
		Priority:      l.Priority,
		Raw:           l.Raw,
		CreatedAt:     l.CreatedAt,
	}
}
