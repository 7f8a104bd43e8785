package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matches(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matches(metric *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, pair := range metric.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok {
			if pair.GetValue() != want {
				return false
			}
			found++
		}
	}
	return found == len(labels)
}

func TestIntakeMetricsObserve(t *testing.T) {
	m := NewIntakeMetrics(nil)
	m.ObserveLead("seo-audit", "created")
	m.ObserveCRMPush("intake", true)
	m.ObserveConversion("seo_audit_lead_submit")
	m.ObserveScan("B", false, 0.5)
}

func TestIntakeMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIntakeMetrics(reg)
	m.ObserveLead("business-website", "created")
	m.ObserveLead("business-website", "created")
	m.ObserveCRMPush("retry", false)
	m.ObserveConversion("business_website_lead_submit")

	assert.Equal(t, 2.0, counterValue(t, reg, "leadintake_leads_submitted_total",
		map[string]string{"source": "business-website", "outcome": "created"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "leadintake_crm_push_total",
		map[string]string{"trigger": "retry", "status": "failed"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "leadintake_conversions_recorded_total",
		map[string]string{"event": "business_website_lead_submit"}))
}

func TestIntakeMetricsNilSafe(t *testing.T) {
	var m *IntakeMetrics
	m.ObserveLead("source", "created")
	m.ObserveCRMPush("intake", false)
	m.ObserveConversion("event")
	m.ObserveScan("F", true, 0.1)
}
