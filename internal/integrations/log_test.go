package integrations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RecentNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, Entry{Type: "lead_submit", Provider: ProviderCRM, Message: "first", CreatedAt: base}))
	require.NoError(t, store.Append(ctx, Entry{Type: "lead_submit", Provider: ProviderCRM, Message: "second", CreatedAt: base.Add(time.Second)}))
	require.NoError(t, store.Append(ctx, Entry{Type: "token_refresh", Provider: ProviderCRM, Message: "third", CreatedAt: base.Add(2 * time.Second)}))

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Message)
	assert.Equal(t, "second", recent[1].Message)
	assert.Equal(t, LevelInfo, recent[0].Level)
	assert.NotEmpty(t, recent[0].ID)

	assert.Len(t, store.Find("lead_submit", ProviderCRM), 2)
}

func TestPostgresStore_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newPostgresStoreWithDB(mock)
	id := uuid.New()
	code := 401
	mock.ExpectExec("INSERT INTO integration_logs").
		WithArgs(id, "lead_submit", ProviderCRM, LevelError, "Zoho lead creation failed", &code, "unauthorized", "lead_x", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.Append(context.Background(), Entry{
		ID:            id.String(),
		Type:          "lead_submit",
		Provider:      ProviderCRM,
		Level:         LevelError,
		Message:       "Zoho lead creation failed",
		StatusCode:    401,
		Error:         "unauthorized",
		CorrelationID: "lead_x",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Recent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newPostgresStoreWithDB(mock)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, type, provider").WithArgs(100).
		WillReturnRows(pgxmock.NewRows([]string{"id", "type", "provider", "level", "message", "status_code", "error", "correlation_id", "created_at"}).
			AddRow(uuid.New(), "seo_audit_lead_submit", ProviderGoogleAds, LevelInfo, "conversion recorded", 0, "", "lead_1", now))

	entries, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ProviderGoogleAds, entries[0].Provider)
	require.NoError(t, mock.ExpectationsWereMet())
}
