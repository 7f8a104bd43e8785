// Package conversions maps lead sources to ad-platform conversion events and
// records server-side copies of those events.
package conversions

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/leadintake/internal/integrations"
	"github.com/wolfman30/leadintake/internal/observability/metrics"
	"github.com/wolfman30/leadintake/pkg/logging"
)

// DefaultSource is used when a lead arrives without a recognised source slug.
const DefaultSource = "business-website"

// knownSources are the landing pages that own a dedicated conversion event.
var knownSources = map[string]struct{}{
	"business-website":                {},
	"ai-chatbot-development":          {},
	"nextjs-development":              {},
	"seo-audit":                       {},
	"shopify-headless-migration":      {},
	"shopify-product-page":            {},
	"ai-voice-agents":                 {},
	"healthcare-software-development": {},
	"nse-mcx-live-market-data":        {},
}

// EventFor returns the lead-submit conversion event for a source slug.
func EventFor(source string) string {
	source = strings.ToLower(strings.TrimSpace(source))
	if _, ok := knownSources[source]; !ok {
		source = DefaultSource
	}
	return strings.ReplaceAll(source, "-", "_") + "_lead_submit"
}

// Conversion is what the client needs to fire the matching ad-platform tag.
type Conversion struct {
	ConversionID string `json:"conversionId"`
	Label        string `json:"label"`
	Event        string `json:"event"`
}

// Context carries identifiers recorded alongside a conversion.
type Context struct {
	Source        string
	LeadID        string
	CRMLeadID     string
	CorrelationID string
}

// Recorder logs server-side conversions. Record never fails the caller.
type Recorder struct {
	conversionID string
	labels       map[string]string
	logs         integrations.Store
	metrics      *metrics.IntakeMetrics
	logger       *logging.Logger
}

func NewRecorder(conversionID string, labels map[string]string, logs integrations.Store, m *metrics.IntakeMetrics, logger *logging.Logger) *Recorder {
	if logs == nil {
		logs = integrations.Discard{}
	}
	copied := make(map[string]string, len(labels))
	for k, v := range labels {
		copied[k] = v
	}
	return &Recorder{
		conversionID: conversionID,
		labels:       copied,
		logs:         logs,
		metrics:      m,
		logger:       logger.Component("conversions"),
	}
}

// Lookup resolves the conversion for a source without recording anything.
func (r *Recorder) Lookup(source string) Conversion {
	event := EventFor(source)
	return Conversion{
		ConversionID: r.conversionID,
		Label:        r.labels[event],
		Event:        event,
	}
}

// Record logs the conversion to the integration log and bumps the counter.
func (r *Recorder) Record(ctx context.Context, c Context) Conversion {
	conv := r.Lookup(c.Source)
	r.metrics.ObserveConversion(conv.Event)

	msg := fmt.Sprintf("Server-side conversion %s for lead %s", conv.Event, c.LeadID)
	if conv.Label == "" {
		msg += " (no label configured)"
	}
	entry := integrations.Entry{
		Type:          conv.Event,
		Provider:      integrations.ProviderGoogleAds,
		Level:         integrations.LevelInfo,
		Message:       msg,
		CorrelationID: c.CorrelationID,
	}
	if err := r.logs.Append(ctx, entry); err != nil {
		r.logger.Warn("failed to log server conversion", "error", err, "event", conv.Event, "lead_id", c.LeadID)
	}
	r.logger.Debug("conversion recorded", "event", conv.Event, "lead_id", c.LeadID, "crm_lead_id", c.CRMLeadID)
	return conv
}
