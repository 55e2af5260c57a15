// Package telemetry records per-run Prometheus metrics and exports them in
// the node_exporter textfile format next to the other run artifacts.
package telemetry

import (
	"fmt"

	"github.com/hyperjump/kurabe/internal/eval"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the metrics of a single run on its own registry, so that
// runs never share collectors.
type Recorder struct {
	registry *prometheus.Registry

	CasesTotal       *prometheus.CounterVec
	StageLatency     *prometheus.HistogramVec
	StageCandidates  *prometheus.HistogramVec
	EmbedDocsSeconds prometheus.Gauge
	MetricMean       *prometheus.GaugeVec
}

// NewRecorder creates a recorder whose series carry the run, pipeline and vendor set as constant labels.
func NewRecorder(runID, pipelineID, vendorSetID string) *Recorder {
	labels := prometheus.Labels{
		"run_id":     runID,
		"pipeline":   pipelineID,
		"vendor_set": vendorSetID,
	}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		CasesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "kurabe_cases_total",
			Help:        "Query cases processed, by final status",
			ConstLabels: labels,
		}, []string{"status"}),
		StageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "kurabe_stage_latency_seconds",
			Help:        "Per-case latency of each pipeline stage",
			ConstLabels: labels,
			Buckets:     []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"stage"}),
		StageCandidates: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "kurabe_stage_candidates",
			Help:        "Number of candidates leaving each pipeline stage",
			ConstLabels: labels,
			Buckets:     []float64{0, 1, 5, 10, 20, 50, 100, 200},
		}, []string{"stage"}),
		EmbedDocsSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "kurabe_embed_docs_seconds",
			Help:        "Time spent embedding the catalog for in-memory dense retrieval",
			ConstLabels: labels,
		}),
		MetricMean: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "kurabe_metric_mean",
			Help:        "Mean rank-quality metric over evaluated cases",
			ConstLabels: labels,
		}, []string{"metric"}),
	}
	r.registry.MustRegister(r.CasesTotal, r.StageLatency, r.StageCandidates, r.EmbedDocsSeconds, r.MetricMean)
	return r
}

// Registry returns the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordCase counts a case with its final status.
func (r *Recorder) RecordCase(status string) {
	if r == nil {
		return
	}
	r.CasesTotal.WithLabelValues(status).Inc()
}

// RecordStage observes a stage's latency in milliseconds and its output size.
func (r *Recorder) RecordStage(stage string, latencyMS float64, candidates int) {
	if r == nil {
		return
	}
	r.StageLatency.WithLabelValues(stage).Observe(latencyMS / 1000)
	r.StageCandidates.WithLabelValues(stage).Observe(float64(candidates))
}

// SetEmbedDocs records the catalog embedding time in milliseconds.
func (r *Recorder) SetEmbedDocs(ms float64) {
	if r == nil {
		return
	}
	r.EmbedDocsSeconds.Set(ms / 1000)
}

// SetMetrics records the aggregated metric means.
func (r *Recorder) SetMetrics(m eval.Metrics) {
	if r == nil {
		return
	}
	for k, v := range m {
		r.MetricMean.WithLabelValues(k).Set(v)
	}
}

// WriteTextfile writes every series to path in the Prometheus text format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
