package conversions

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/leadintake/internal/integrations"
	"github.com/wolfman30/leadintake/internal/observability/metrics"
	"github.com/wolfman30/leadintake/pkg/logging"
)

func TestEventFor(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"seo-audit", "seo_audit_lead_submit"},
		{"ai-chatbot-development", "ai_chatbot_development_lead_submit"},
		{"shopify-headless-migration", "shopify_headless_migration_lead_submit"},
		{"  NEXTJS-Development ", "nextjs_development_lead_submit"},
		{"", "business_website_lead_submit"},
		{"pricing-page", "business_website_lead_submit"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, EventFor(tt.source))
		})
	}
}

func TestRecorder_RecordLogsAndReturnsLabel(t *testing.T) {
	logs := integrations.NewMemoryStore()
	labels := map[string]string{"seo_audit_lead_submit": "abc123"}
	rec := NewRecorder("AW-1", labels, logs, metrics.NewIntakeMetrics(prometheus.NewRegistry()), logging.New("error"))

	labels["seo_audit_lead_submit"] = "mutated"

	conv := rec.Record(context.Background(), Context{Source: "seo-audit", LeadID: "l1", CorrelationID: "lead_1"})
	assert.Equal(t, Conversion{ConversionID: "AW-1", Label: "abc123", Event: "seo_audit_lead_submit"}, conv)

	entries := logs.Find("seo_audit_lead_submit", integrations.ProviderGoogleAds)
	require.Len(t, entries, 1)
	assert.Equal(t, "lead_1", entries[0].CorrelationID)
}

type failingStore struct{}

func (failingStore) Append(context.Context, integrations.Entry) error { return errors.New("db down") }

func (failingStore) Recent(context.Context, int) ([]integrations.Entry, error) { return nil, nil }

func TestRecorder_StoreFailureIsSwallowed(t *testing.T) {
	rec := NewRecorder("", nil, failingStore{}, nil, logging.New("error"))
	conv := rec.Record(context.Background(), Context{Source: "unknown"})
	assert.Equal(t, "business_website_lead_submit", conv.Event)
	assert.Empty(t, conv.Label)
}
