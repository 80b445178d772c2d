// Package metrics provides Prometheus metrics for wallet registration,
// reconciliation and the ledger oracle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RegistrationsTotal   *prometheus.CounterVec // by outcome (created, updated) and fingerprint format
	ReconciliationsTotal *prometheus.CounterVec // by result (matched, mismatch, not_anchored, ...)

	OracleRequestsTotal  *prometheus.CounterVec // by outcome (anchored, absent, or error category)
	OracleLatencySeconds prometheus.Histogram
	OracleRetriesTotal   prometheus.Counter
	OracleCircuitOpen    prometheus.Gauge       // 1 while the breaker is open
	OracleCacheTotal     *prometheus.CounterVec // by result (hit, miss, bypass, error)
	EventsPublishedTotal *prometheus.CounterVec // by type and result (ok, error, dropped)
}

// New registers the metrics with reg. Pass nil for the default registry,
// which must happen at most once per process.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RegistrationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "walletverify_registrations_total",
			Help: "Wallet registrations by outcome and fingerprint format",
		}, []string{"outcome", "format"}),
		ReconciliationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "walletverify_reconciliations_total",
			Help: "Reconciliation attempts by result",
		}, []string{"result"}),
		OracleRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "walletverify_oracle_requests_total",
			Help: "Ledger oracle reads by outcome",
		}, []string{"outcome"}),
		OracleLatencySeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "walletverify_oracle_latency_seconds",
			Help:    "Ledger oracle read latency including retries",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		OracleRetriesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "walletverify_oracle_retries_total",
			Help: "Ledger oracle retry attempts",
		}),
		OracleCircuitOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "walletverify_oracle_circuit_open",
			Help: "1 while the ledger oracle circuit breaker is open",
		}),
		OracleCacheTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "walletverify_oracle_cache_total",
			Help: "Ledger oracle cache lookups by result",
		}, []string{"result"}),
		EventsPublishedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "walletverify_events_published_total",
			Help: "Wallet events by type and publish result",
		}, []string{"type", "result"}),
	}
}

// The helpers below are nil-safe so components can run without metrics.

func (m *Metrics) IncRegistration(created bool, format string) {
	if m == nil {
		return
	}
	outcome := "updated"
	if created {
		outcome = "created"
	}
	m.RegistrationsTotal.WithLabelValues(outcome, format).Inc()
}

func (m *Metrics) IncReconciliation(result string) {
	if m == nil {
		return
	}
	m.ReconciliationsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveOracleRead(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.OracleRequestsTotal.WithLabelValues(outcome).Inc()
	m.OracleLatencySeconds.Observe(seconds)
}

func (m *Metrics) IncOracleRetry() {
	if m == nil {
		return
	}
	m.OracleRetriesTotal.Inc()
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.OracleCircuitOpen.Set(1)
		return
	}
	m.OracleCircuitOpen.Set(0)
}

func (m *Metrics) IncCache(result string) {
	if m == nil {
		return
	}
	m.OracleCacheTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.EventsPublishedTotal.WithLabelValues(eventType, result).Inc()
}
