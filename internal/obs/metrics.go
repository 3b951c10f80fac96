package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AuthMetrics counts auth operations by op and outcome. A nil *AuthMetrics
// is a valid no-op receiver so tests can skip registration.
type AuthMetrics struct {
	ops *prometheus.CounterVec
}

func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_operations_total",
			Help: "Auth operations by operation and outcome.",
		}, []string{"op", "status"}),
	}
	reg.MustRegister(m.ops)
	return m
}

func (m *AuthMetrics) Track(op, status string) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op, status).Inc()
}
