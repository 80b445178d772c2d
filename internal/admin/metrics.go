package admin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	LoginsTotal         *prometheus.CounterVec // by result (success, failure, disabled)
	AuthorizationsTotal *prometheus.CounterVec // by method (jwt, static_token) and result
}

// NewMetrics registers admin gate metrics with reg, or the default registry when nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		LoginsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "walletverify_admin_logins_total",
			Help: "Admin login attempts by result",
		}, []string{"result"}),
		AuthorizationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "walletverify_admin_authorizations_total",
			Help: "Admin credential checks by method and result",
		}, []string{"method", "result"}),
	}
}

func (m *Metrics) incLogin(result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) incAuthorization(method string, ok bool) {
	if m == nil {
		return
	}
	result := "denied"
	if ok {
		result = "allowed"
	}
	m.AuthorizationsTotal.WithLabelValues(method, result).Inc()
}
