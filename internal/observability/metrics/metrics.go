package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for lead intake, SEO scans and CRM sync.
type IntakeMetrics struct {
	leadsTotal       *prometheus.CounterVec
	crmPushTotal     *prometheus.CounterVec
	conversionsTotal *prometheus.CounterVec
	scansTotal       *prometheus.CounterVec
	scanLatency      *prometheus.HistogramVec
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		leadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadintake",
			Subsystem: "leads",
			Name:      "submitted_total",
			Help:      "Total lead submissions by source and outcome",
		}, []string{"source", "outcome"}),
		crmPushTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadintake",
			Subsystem: "crm",
			Name:      "push_total",
			Help:      "Total CRM lead pushes by trigger and status",
		}, []string{"trigger", "status"}),
		conversionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadintake",
			Subsystem: "conversions",
			Name:      "recorded_total",
			Help:      "Server-side conversion events recorded",
		}, []string{"event"}),
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadintake",
			Subsystem: "seoscan",
			Name:      "scans_total",
			Help:      "Total SEO scans by grade (or error)",
		}, []string{"grade"}),
		scanLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadintake",
			Subsystem: "seoscan",
			Name:      "scan_duration_seconds",
			Help:      "End-to-end latency of SEO scans",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"browser"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.leadsTotal, m.crmPushTotal, m.conversionsTotal, m.scansTotal, m.scanLatency)
	return m
}

func (m *IntakeMetrics) ObserveLead(source, outcome string) {
	if m == nil {
		return
	}
	m.leadsTotal.WithLabelValues(source, outcome).Inc()
}

func (m *IntakeMetrics) ObserveCRMPush(trigger string, ok bool) {
	if m == nil {
		return
	}
	status := "failed"
	if ok {
		status = "pushed"
	}
	m.crmPushTotal.WithLabelValues(trigger, status).Inc()
}

func (m *IntakeMetrics) ObserveConversion(event string) {
	if m == nil {
		return
	}
	m.conversionsTotal.WithLabelValues(event).Inc()
}

func (m *IntakeMetrics) ObserveScan(grade string, browser bool, seconds float64) {
	if m == nil {
		return
	}
	label := "false"
	if browser {
		label = "true"
	}
	m.scansTotal.WithLabelValues(grade).Inc()
	m.scanLatency.WithLabelValues(label).Observe(seconds)
}
