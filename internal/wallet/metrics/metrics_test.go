package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncRegistration(true, "cidv0")
	m.IncRegistration(false, "cidv0")
	m.IncRegistration(false, "cidv0")
	m.IncReconciliation("matched")
	m.SetCircuitOpen(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistrationsTotal.WithLabelValues("created", "cidv0")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RegistrationsTotal.WithLabelValues("updated", "cidv0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReconciliationsTotal.WithLabelValues("matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OracleCircuitOpen))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncRegistration(true, "opaque")
		m.IncReconciliation("mismatch")
		m.ObserveOracleRead("absent", 0.1)
		m.IncOracleRetry()
		m.SetCircuitOpen(false)
		m.IncCache("hit")
		m.IncEvent("wallet_verified", "ok")
	})
}
