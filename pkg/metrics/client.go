package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ClientMetrics provides observability for RPC calls issued through a
// session, including retries and connection rebuilds.
//
// This interface is optional - passing nil to consumers disables
// collection with zero overhead.
type ClientMetrics interface {
	// RecordCall records a completed call attempt with its procedure
	// name, duration, and outcome.
	RecordCall(procedure string, duration time.Duration, err error)

	// RecordRetry records that a call attempt failed and will be retried.
	RecordRetry(procedure string)

	// RecordRebuild records a session teardown-and-rebuild cycle and
	// whether the rebuild succeeded.
	RecordRebuild(success bool)

	// RecordRetriesExhausted records that a call gave up after
	// exhausting its retry budget.
	RecordRetriesExhausted(procedure string)

	// RecordBytes records payload bytes moved in a given direction
	// ("read" or "write").
	RecordBytes(direction string, n int)
}

// clientMetrics is the Prometheus implementation of ClientMetrics.
type clientMetrics struct {
	calls            *prometheus.CounterVec
	callDuration     *prometheus.HistogramVec
	retries          *prometheus.CounterVec
	rebuilds         *prometheus.CounterVec
	retriesExhausted *prometheus.CounterVec
	bytes            *prometheus.CounterVec
}

// NewClientMetrics creates a new Prometheus-backed ClientMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// causes consumers to fall back to no-op behavior.
func NewClientMetrics() ClientMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &clientMetrics{
		calls: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfsclient_calls_total",
				Help: "Total number of RPC call attempts",
			},
			[]string{"procedure", "status"},
		),
		callDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "nfsclient_call_duration_seconds",
				Help: "Duration of RPC call attempts in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1,      // 1s
					5,      // 5s
				},
			},
			[]string{"procedure"},
		),
		retries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfsclient_retries_total",
				Help: "Total number of retried call attempts",
			},
			[]string{"procedure"},
		),
		rebuilds: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfsclient_session_rebuilds_total",
				Help: "Total number of session rebuild cycles",
			},
			[]string{"status"},
		),
		retriesExhausted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfsclient_retries_exhausted_total",
				Help: "Total number of calls abandoned after exhausting retries",
			},
			[]string{"procedure"},
		),
		bytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfsclient_payload_bytes_total",
				Help: "Total payload bytes moved, by direction",
			},
			[]string{"direction"},
		),
	}
}

func (m *clientMetrics) RecordCall(procedure string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.calls.WithLabelValues(procedure, status).Inc()
	m.callDuration.WithLabelValues(procedure).Observe(duration.Seconds())
}

func (m *clientMetrics) RecordRetry(procedure string) {
	m.retries.WithLabelValues(procedure).Inc()
}

func (m *clientMetrics) RecordRebuild(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.rebuilds.WithLabelValues(status).Inc()
}

func (m *clientMetrics) RecordRetriesExhausted(procedure string) {
	m.retriesExhausted.WithLabelValues(procedure).Inc()
}

func (m *clientMetrics) RecordBytes(direction string, n int) {
	m.bytes.WithLabelValues(direction).Add(float64(n))
}
