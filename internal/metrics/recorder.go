// Package metrics exposes interception counters in Prometheus format,
// either from a live shim or replayed from recorded trace files.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/ncclspy/ncclspy/internal/trace"
)

// Recorder owns the interception metrics. Each Recorder carries its own
// registry so the exporter can replay traces without colliding with a
// live shim in the same process (or another Recorder in tests).
type Recorder struct {
	registry        *prometheus.Registry
	calls           *prometheus.CounterVec
	resolveFailures *prometheus.CounterVec
	elements        *prometheus.HistogramVec
	latency         *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with registered collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ncclspy_calls_total",
				Help: "Intercepted collective calls by operation and returned status",
			},
			[]string{"op", "status"},
		),
		resolveFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ncclspy_resolve_failures_total",
				Help: "Failed attempts to resolve the genuine implementation",
			},
			[]string{"reason"},
		),
		elements: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ncclspy_call_elements",
				Help:    "Element count per intercepted call",
				Buckets: prometheus.ExponentialBuckets(64, 4, 12),
			},
			[]string{"op"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ncclspy_forward_duration_seconds",
				Help:    "Wall time of the forwarded call",
				Buckets: prometheus.ExponentialBuckets(0.00001, 10, 8),
			},
			[]string{"op"},
		),
	}

	r.registry.MustRegister(r.calls)
	r.registry.MustRegister(r.resolveFailures)
	r.registry.MustRegister(r.elements)
	r.registry.MustRegister(r.latency)

	return r
}

// RecordCall counts one forwarded call.
func (r *Recorder) RecordCall(op string, status int32, elements uint64, d time.Duration) {
	r.calls.WithLabelValues(op, strconv.Itoa(int(status))).Inc()
	r.elements.WithLabelValues(op).Observe(float64(elements))
	r.latency.WithLabelValues(op).Observe(d.Seconds())
}

// RecordResolveFailure counts one failed resolution attempt.
// Reason is "load" or "lookup".
func (r *Recorder) RecordResolveFailure(reason string) {
	r.resolveFailures.WithLabelValues(reason).Inc()
}

// Replay feeds recorded trace events into the collectors.
func (r *Recorder) Replay(events []trace.Event) {
	for _, ev := range events {
		r.RecordCall(ev.Op, ev.Status, ev.Count, time.Duration(ev.DurationUS)*time.Microsecond)
	}
}

// Handler serves this Recorder's registry in Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gather snapshots the current metric families.
func (r *Recorder) Gather() ([]*dto.MetricFamily, error) {
	return r.registry.Gather()
}
