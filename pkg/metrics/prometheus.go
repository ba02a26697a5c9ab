package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisions *prometheus.CounterVec
	entropy   prometheus.Histogram
	ksDist    *prometheus.GaugeVec
	drift     *prometheus.CounterVec
	unsafe    *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// New creates a recorder registered on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astramind_decisions_total",
				Help: "Gated decisions by regime, chosen action and gate outcome",
			},
			[]string{"regime", "action", "act"},
		),
		entropy: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "astramind_predictive_entropy",
				Help:    "Monte-Carlo predictive entropy per decision batch",
				Buckets: prometheus.LinearBuckets(0, 0.1, 17),
			},
		),
		ksDist: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "astramind_sentinel_ks_distance",
				Help: "Latest KS distance between reference and current windows",
			},
			[]string{"symbol"},
		),
		drift: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astramind_sentinel_drift_total",
				Help: "Sentinel updates that reported drift",
			},
			[]string{"symbol"},
		),
		unsafe: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astramind_sentinel_unsafe_total",
				Help: "Sentinel updates that reported an unsafe state",
			},
			[]string{"symbol"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astramind_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"kind"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "astramind_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
}

// RecordDecision counts one gated decision.
func (r *Recorder) RecordDecision(regime, action string, act bool) {
	r.decisions.WithLabelValues(regime, action, strconv.FormatBool(act)).Inc()
}

// RecordEntropy observes a predictive entropy value.
func (r *Recorder) RecordEntropy(entropy float64) {
	r.entropy.Observe(entropy)
}

// RecordDrift tracks the sentinel state of a symbol.
func (r *Recorder) RecordDrift(symbol string, ks float64, drift, safe bool) {
	r.ksDist.WithLabelValues(symbol).Set(ks)
	if drift {
		r.drift.WithLabelValues(symbol).Inc()
	}
	if !safe {
		r.unsafe.WithLabelValues(symbol).Inc()
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records stage latency in seconds.
func (r *Recorder) RecordLatency(stage string, seconds float64) {
	r.latency.WithLabelValues(stage).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordDecision(string, string, bool)     {}
func (Nop) RecordEntropy(float64)                   {}
func (Nop) RecordDrift(string, float64, bool, bool) {}
func (Nop) RecordError(string)                      {}
func (Nop) RecordLatency(string, float64)           {}
