// Package metrics defines the Prometheus stage metrics the Pipeline Driver
// and Expansion Controller emit, built on the generic MetricsCollector in
// internal/infrastructure/monitoring/prometheus: one set per pipeline
// stage (document acquisition, extraction, tree construction, expansion
// iterations). cmd/worker exposes the resulting registry at /metrics via
// the collector's own promhttp Handler.
package metrics

import (
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/monitoring/logging"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/monitoring/prometheus"
)

// Pipeline holds every counter/histogram/gauge the pipeline stages report.
type Pipeline struct {
	collector prometheus.MetricsCollector

	DocumentsFetched    prometheus.CounterVec // labels: material, source
	ReactionsExtracted  prometheus.CounterVec // labels: material
	ReactionsParseFail  prometheus.CounterVec // labels: material
	ExpansionIterations prometheus.CounterVec // labels: material
	TreeBuildSeconds    prometheus.HistogramVec
	PathwaysFound       prometheus.GaugeVec // labels: material
	UnexpandableCount   prometheus.GaugeVec // labels: material
}

// New constructs a Pipeline metrics set registered under namespace
// "retrosynth". Pass the returned collector's Handler() to an HTTP mux to
// serve /metrics (see cmd/worker).
func New(log logging.Logger) (*Pipeline, prometheus.MetricsCollector, error) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "retrosynth",
		Subsystem:            "pipeline",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	p := &Pipeline{
		collector:           collector,
		DocumentsFetched:    collector.RegisterCounter("documents_fetched_total", "documents acquired per material and source", "material", "source"),
		ReactionsExtracted:  collector.RegisterCounter("reactions_extracted_total", "reactions parsed into the store per material", "material"),
		ReactionsParseFail:  collector.RegisterCounter("reactions_parse_failures_total", "reaction blocks dropped on parse failure per material", "material"),
		ExpansionIterations: collector.RegisterCounter("expansion_iterations_total", "expansion controller iterations run per material", "material"),
		TreeBuildSeconds:    collector.RegisterHistogram("tree_build_duration_seconds", "retrosynthesis tree build wall time", nil, "material"),
		PathwaysFound:       collector.RegisterGauge("pathways_found", "pathways enumerated on the most recent build", "material"),
		UnexpandableCount:   collector.RegisterGauge("unexpandable_substances", "unexpandable substances in the most recent tree build", "material"),
	}
	return p, collector, nil
}
