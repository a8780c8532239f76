// Package metrics records invocation counters and remote call latencies and
// exports them in the Prometheus text format for the node-exporter textfile
// collector. kvensure is a one-shot process, so there is no scrape endpoint;
// metrics are written to a file after the run instead.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns a private registry so invocation metrics never collide with
// anything else linked into the process. A nil Recorder is a no-op.
type Recorder struct {
	registry *prometheus.Registry

	ensureTotal    *prometheus.CounterVec
	changedTotal   prometheus.Counter
	remoteDuration *prometheus.HistogramVec
}

// NewRecorder creates a recorder with all collectors registered.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		ensureTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kvensure_ensure_total",
				Help: "Total number of ensure invocations",
			},
			[]string{"state", "status"},
		),
		changedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kvensure_changed_total",
				Help: "Total number of invocations that changed remote state",
			},
		),
		remoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kvensure_remote_duration_seconds",
				Help:    "Duration of Key Vault API calls in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"op"},
		),
	}

	registry.MustRegister(r.ensureTotal, r.changedTotal, r.remoteDuration)
	return r
}

// RecordEnsure counts one completed ensure invocation.
func (r *Recorder) RecordEnsure(state, status string, changed bool) {
	if r == nil {
		return
	}
	r.ensureTotal.WithLabelValues(state, status).Inc()
	if changed {
		r.changedTotal.Inc()
	}
}

// ObserveRemote records the duration of one Key Vault API call.
func (r *Recorder) ObserveRemote(op string, d time.Duration) {
	if r == nil {
		return
	}
	r.remoteDuration.WithLabelValues(op).Observe(d.Seconds())
}

// WriteTextfile writes all collected metrics to path in the Prometheus text
// exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
