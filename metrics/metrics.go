// Package metrics records evaluation timings and scores in a private
// Prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects evaluation metrics. A nil *Recorder discards
// everything, so callers need not check whether metrics are enabled.
type Recorder struct {
	reg         *prometheus.Registry
	duration    *prometheus.HistogramVec
	scores      *prometheus.GaugeVec
	evaluations *prometheus.CounterVec
}

// NewRecorder returns a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cremi_component_duration_seconds",
			Help:    "Time spent evaluating one component of a sample",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"component"}),
		scores: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cremi_score",
			Help: "Latest value of an evaluation score",
		}, []string{"component", "score"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cremi_evaluations_total",
			Help: "Evaluations run, by outcome",
		}, []string{"status"}),
	}
	r.reg.MustRegister(r.duration, r.scores, r.evaluations)
	return r
}

// ObserveDuration records the time taken by component.
func (r *Recorder) ObserveDuration(component string, d time.Duration) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(component).Observe(d.Seconds())
}

// SetScore records the latest value of a score.
func (r *Recorder) SetScore(component, score string, value float64) {
	if r == nil {
		return
	}
	r.scores.WithLabelValues(component, score).Set(value)
}

// CountEvaluation counts a finished evaluation.
func (r *Recorder) CountEvaluation(err error) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.evaluations.WithLabelValues(status).Inc()
}

// Gatherer exposes the registry, e.g. for promhttp.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteTextfile writes all metrics to path in the text exposition format
// read by the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
