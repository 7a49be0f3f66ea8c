package taskstore

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	mutations *prometheus.CounterVec
	rollbacks *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roletodo_task_mutations_total",
			Help: "Task mutations confirmed by the server",
		}, []string{"op"}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roletodo_task_rollbacks_total",
			Help: "Optimistic task mutations reverted after a server failure",
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.mutations, m.rollbacks)
	}
	return m
}

func (m *metrics) ok(op Op)       { m.mutations.WithLabelValues(string(op)).Inc() }
func (m *metrics) rollback(op Op) { m.rollbacks.WithLabelValues(string(op)).Inc() }
