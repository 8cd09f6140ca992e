package lifecycle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records lifecycle transitions
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   *prometheus.GaugeVec
	failures   *prometheus.CounterVec
}

// NewMetrics creates the lifecycle metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cirrus_cluster_operations_total",
				Help: "Total number of cluster lifecycle operations",
			},
			[]string{"op", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cirrus_cluster_operation_duration_seconds",
				Help:    "Cluster lifecycle operation duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
			},
			[]string{"op"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cirrus_cluster_operations_in_flight",
				Help: "Number of cluster lifecycle operations in progress",
			},
			[]string{"op"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cirrus_cluster_operation_failures_total",
				Help: "Failed cluster lifecycle operations by step and kind",
			},
			[]string{"op", "step", "kind"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.operations, m.duration, m.inFlight, m.failures)
	}
	return m
}

// begin marks an operation as started and returns the function that
// records its outcome
func (m *Metrics) begin(op string) func(err error) {
	if m == nil {
		return func(error) {}
	}
	start := time.Now()
	m.inFlight.WithLabelValues(op).Inc()

	return func(err error) {
		m.inFlight.WithLabelValues(op).Dec()
		m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())

		result := "success"
		if err != nil {
			result = "failure"
			m.failures.WithLabelValues(op, StepOf(err), string(KindOf(err))).Inc()
		}
		m.operations.WithLabelValues(op, result).Inc()
	}
}
