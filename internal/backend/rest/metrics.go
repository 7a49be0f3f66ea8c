package rest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts and times requests to the remote service.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates request metrics and registers them on reg, if non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roletodo_remote_requests_total",
			Help: "Requests to the remote service by operation and status",
		}, []string{"op", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roletodo_remote_request_duration_seconds",
			Help:    "Duration of requests to the remote service",
			Buckets: []float64{0.05, 0.1, 0.3, 1, 3, 10},
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

func (m *Metrics) observe(op, status string, start time.Time) {
	m.requests.WithLabelValues(op, status).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
