package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records counters for the order sync pipeline.
type SyncMetrics struct {
	crmCallDuration *prometheus.HistogramVec
	groupOutcome    *prometheus.CounterVec
	ordersReceived  prometheus.Counter
	dedupDemotions  prometheus.Counter
	holdsApplied    *prometheus.CounterVec
}

// NewSyncMetrics registers the sync pipeline metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	crmCallDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_call_duration_seconds",
		Help:    "Duration of CRM API calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	groupOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_group_outcome",
		Help: "Split groups finishing a sync attempt, by outcome.",
	}, []string{"outcome"})
	ordersReceived := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_received",
		Help: "Orders accepted at intake.",
	})
	dedupDemotions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_dedup_demotions",
		Help: "Duplicate catalog rows demoted during canonical resolution.",
	})
	holdsApplied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compliance_holds_applied",
		Help: "Compliance holds applied to orders, by hold type.",
	}, []string{"hold"})
	reg.MustRegister(crmCallDuration, groupOutcome, ordersReceived, dedupDemotions, holdsApplied)
	return &SyncMetrics{
		crmCallDuration: crmCallDuration,
		groupOutcome:    groupOutcome,
		ordersReceived:  ordersReceived,
		dedupDemotions:  dedupDemotions,
		holdsApplied:    holdsApplied,
	}
}

// ObserveCRMCall records the duration of one CRM operation.
func (s *SyncMetrics) ObserveCRMCall(operation string, duration time.Duration) {
	if s == nil || s.crmCallDuration == nil {
		return
	}
	s.crmCallDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncGroupOutcome increments the per-outcome group counter.
func (s *SyncMetrics) IncGroupOutcome(outcome string) {
	if s == nil || s.groupOutcome == nil {
		return
	}
	s.groupOutcome.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncOrdersReceived counts an accepted intake order.
func (s *SyncMetrics) IncOrdersReceived() {
	if s == nil || s.ordersReceived == nil {
		return
	}
	s.ordersReceived.Inc()
}

// IncDedupDemotions counts a demoted duplicate catalog row.
func (s *SyncMetrics) IncDedupDemotions() {
	if s == nil || s.dedupDemotions == nil {
		return
	}
	s.dedupDemotions.Inc()
}

// IncHoldApplied counts a compliance hold by type.
func (s *SyncMetrics) IncHoldApplied(hold string) {
	if s == nil || s.holdsApplied == nil {
		return
	}
	s.holdsApplied.WithLabelValues(normalizeLabel(hold)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
