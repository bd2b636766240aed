// Package metrics exposes the gateway's Prometheus instrumentation. The
// collector set is built once and injected; nothing registers globally.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds the gateway collectors, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestsRouted  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RoutingMisses   prometheus.Counter
	ForkFailures    *prometheus.CounterVec
	QueuePublished  *prometheus.CounterVec
	DeadLettered    *prometheus.CounterVec

	faults    *prometheus.CounterVec
	conflicts *prometheus.CounterVec
}

// New builds and registers the collector set.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "btmsgw_requests_routed_total",
			Help: "Inbound requests by resolved route legend and message type",
		}, []string{"legend", "message"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "btmsgw_request_duration_seconds",
			Help:    "Inbound request duration by resolved route legend",
			Buckets: prometheus.DefBuckets,
		}, []string{"legend"}),
		RoutingMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "btmsgw_routing_misses_total",
			Help: "Inbound requests that matched no configured route",
		}),
		ForkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "btmsgw_fork_failures_total",
			Help: "Best-effort fork sends that failed, by route legend",
		}, []string{"legend"}),
		QueuePublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "btmsgw_queue_published_total",
			Help: "Messages published to outbound queues, by queue",
		}, []string{"queue"}),
		DeadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "btmsgw_dead_lettered_total",
			Help: "Messages moved to the dead-letter queue, by source queue",
		}, []string{"queue"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "btmsgw_faults_total",
			Help: "Operational faults in decision and error forwarding, by flow",
		}, []string{"flow"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "btmsgw_conflicts_total",
			Help: "Benign conflict responses (duplicate or out-of-order redelivery), by flow",
		}, []string{"flow"}),
	}
	m.registry.MustRegister(
		m.RequestsRouted, m.RequestDuration, m.RoutingMisses, m.ForkFailures,
		m.QueuePublished, m.DeadLettered, m.faults, m.conflicts,
	)
	return m
}

// RecordFault counts a forwarding failure. Conflicts signal an expected,
// benign race and are counted separately so they never feed fault alerting.
func (m *Metrics) RecordFault(flow string, conflict bool) {
	if conflict {
		m.conflicts.WithLabelValues(flow).Inc()
		return
	}
	m.faults.WithLabelValues(flow).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FaultCount returns the current fault counter for a flow. Test support.
func (m *Metrics) FaultCount(flow string) float64 {
	return counterValue(m.faults.WithLabelValues(flow))
}

// ConflictCount returns the current conflict counter for a flow. Test
// support.
func (m *Metrics) ConflictCount(flow string) float64 {
	return counterValue(m.conflicts.WithLabelValues(flow))
}

func counterValue(c prometheus.Counter) float64 {
	var metric dto.Metric
	_ = c.Write(&metric)
	return metric.GetCounter().GetValue()
}
