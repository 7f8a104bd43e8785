package events

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresLedger(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	ledger := newPostgresLedgerWithExec(mock)

	mock.ExpectExec("INSERT INTO processed_events").WithArgs("lead_notifier", "evt-new").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	first, err := ledger.Claim(context.Background(), "lead_notifier", "evt-new")
	if err != nil || !first {
		t.Fatalf("expected first claim, got %v %v", first, err)
	}

	mock.ExpectExec("INSERT INTO processed_events").WithArgs("lead_notifier", "evt-new").WillReturnResult(pgxmock.NewResult("INSERT", 0))
	first, err = ledger.Claim(context.Background(), "lead_notifier", "evt-new")
	if err != nil || first {
		t.Fatalf("expected repeat claim to be rejected, got %v %v", first, err)
	}

	mock.ExpectExec("DELETE FROM processed_events").WithArgs("lead_notifier", "evt-new").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	if err := ledger.Release(context.Background(), "lead_notifier", "evt-new"); err != nil {
		t.Fatalf("release: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMemoryLedger(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()
	if ok, _ := ledger.Claim(ctx, "a", "1"); !ok {
		t.Fatal("expected first claim")
	}
	if ok, _ := ledger.Claim(ctx, "a", "1"); ok {
		t.Fatal("expected duplicate claim to be rejected")
	}
	if ok, _ := ledger.Claim(ctx, "b", "1"); !ok {
		t.Fatal("expected other consumer to claim independently")
	}
	_ = ledger.Release(ctx, "a", "1")
	if ok, _ := ledger.Claim(ctx, "a", "1"); !ok {
		t.Fatal("expected released claim to be claimable again")
	}
}
