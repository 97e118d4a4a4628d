// Package metrics exposes sync activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/memosync/pkg/core"
)

const namespace = "memosync"

// Recorder implements core.Recorder on a dedicated registry.
type Recorder struct {
	registry *prometheus.Registry

	MemosTotal    *prometheus.CounterVec
	PassesTotal   *prometheus.CounterVec
	PassDuration  prometheus.Histogram
	LastPass      prometheus.Gauge
	FetchedMemos  prometheus.Gauge
	DigestWritten prometheus.Counter
	LocalChanges  *prometheus.CounterVec
}

var _ core.Recorder = (*Recorder)(nil)

// New registers the sync metrics on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		MemosTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "memos_total",
				Help:      "Memos processed, by outcome",
			},
			[]string{"outcome"}, // skipped, persisted, updated, failed
		),
		PassesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passes_total",
				Help:      "Sync passes, by result",
			},
			[]string{"result"}, // ok, partial, error
		),
		PassDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pass_duration_seconds",
				Help:      "Duration of sync passes",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		LastPass: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_pass_timestamp_seconds",
				Help:      "Unix time of the last completed pass",
			},
		),
		FetchedMemos: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_pass_fetched_memos",
				Help:      "Memos fetched by the last pass",
			},
		),
		DigestWritten: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "digests_written_total",
				Help:      "Weekly digests written",
			},
		),
		LocalChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "local_changes_total",
				Help:      "Edits to the document tree made outside of a pass, by type",
			},
			[]string{"type"}, // create, modify, delete
		),
	}
}

func (r *Recorder) ObserveOutcome(o core.Outcome) {
	r.MemosTotal.WithLabelValues(string(o)).Inc()
}

func (r *Recorder) ObservePass(rep core.Report, err error) {
	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case rep.Failed > 0:
		result = "partial"
	}
	r.PassesTotal.WithLabelValues(result).Inc()
	r.PassDuration.Observe(rep.Duration.Seconds())
	r.FetchedMemos.Set(float64(rep.Fetched))
	r.LastPass.SetToCurrentTime()
	if rep.DigestPath != "" {
		r.DigestWritten.Inc()
	}
}

func (r *Recorder) ObserveLocalChange(e core.Event) {
	r.LocalChanges.WithLabelValues(strings.ToLower(string(e.Type))).Inc()
}

// Registry returns the registry holding the sync metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
