package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "outreach"
	subsystem = "pipeline"

	// DraftLatencyName is the fully qualified histogram name read back by the dashboard.
	DraftLatencyName = namespace + "_" + subsystem + "_draft_latency_seconds"
)

// OutreachMetrics exposes counters/histograms for pipeline activity.
type OutreachMetrics struct {
	transitions  *prometheus.CounterVec
	xpAwarded    prometheus.Counter
	bulkItems    *prometheus.CounterVec
	draftLatency *prometheus.HistogramVec
	emailsSent   *prometheus.CounterVec
}

func NewOutreachMetrics(reg prometheus.Registerer) *OutreachMetrics {
	m := &OutreachMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transitions_total",
			Help:      "Prospect status changes by destination status",
		}, []string{"status", "auto"}),
		xpAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "xp_awarded_total",
			Help:      "XP credited to members for status changes",
		}),
		bulkItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bulk_items_total",
			Help:      "Items processed by bulk operations",
		}, []string{"op", "result"}),
		draftLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "draft_latency_seconds",
			Help:      "Latency of AI draft requests",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"op", "status"}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "emails_sent_total",
			Help:      "Outreach emails handed to the mail provider",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions, m.xpAwarded, m.bulkItems, m.draftLatency, m.emailsSent)
	return m
}

func (m *OutreachMetrics) ObserveTransition(status string, auto bool, xp int) {
	if m == nil {
		return
	}
	label := "false"
	if auto {
		label = "true"
	}
	m.transitions.WithLabelValues(status, label).Inc()
	if xp > 0 {
		m.xpAwarded.Add(float64(xp))
	}
}

func (m *OutreachMetrics) ObserveBulk(op string, updated, skipped int) {
	if m == nil {
		return
	}
	m.bulkItems.WithLabelValues(op, "updated").Add(float64(updated))
	m.bulkItems.WithLabelValues(op, "skipped").Add(float64(skipped))
}

func (m *OutreachMetrics) ObserveDraft(op, status string, seconds float64) {
	if m == nil {
		return
	}
	m.draftLatency.WithLabelValues(op, status).Observe(seconds)
}

func (m *OutreachMetrics) ObserveEmail(status string) {
	if m == nil {
		return
	}
	m.emailsSent.WithLabelValues(status).Inc()
}
