package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DeliveryLedger remembers which consumer already handled which event, so a
// redelivered outbox entry does not trigger the same side effect twice.
type DeliveryLedger interface {
	// Claim records the pair and reports whether this call was the first.
	Claim(ctx context.Context, consumer, eventID string) (bool, error)
	// Release forgets a claim whose side effect failed.
	Release(ctx context.Context, consumer, eventID string) error
}

// PostgresLedger stores claims in processed_events.
type PostgresLedger struct {
	db Execer
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &PostgresLedger{db: pool}
}

func newPostgresLedgerWithExec(exec Execer) *PostgresLedger {
	if exec == nil {
		panic("events: exec required")
	}
	return &PostgresLedger{db: exec}
}

func (l *PostgresLedger) Claim(ctx context.Context, consumer, eventID string) (bool, error) {
	query := `
		INSERT INTO processed_events (consumer, event_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	ct, err := l.db.Exec(ctx, query, consumer, eventID)
	if err != nil {
		return false, fmt.Errorf("events: claim delivery: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (l *PostgresLedger) Release(ctx context.Context, consumer, eventID string) error {
	query := `DELETE FROM processed_events WHERE consumer = $1 AND event_id = $2`
	if _, err := l.db.Exec(ctx, query, consumer, eventID); err != nil {
		return fmt.Errorf("events: release delivery: %w", err)
	}
	return nil
}

// MemoryLedger is an in-process DeliveryLedger.
type MemoryLedger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{seen: make(map[string]struct{})}
}

func (l *MemoryLedger) Claim(ctx context.Context, consumer, eventID string) (bool, error) {
	key := consumer + "|" + eventID
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[key]; ok {
		return false, nil
	}
	l.seen[key] = struct{}{}
	return true, nil
}

func (l *MemoryLedger) Release(ctx context.Context, consumer, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, consumer+"|"+eventID)
	return nil
}
