package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ResolutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bazelcp_resolution_seconds",
		Help:    "Time spent computing the classpath of one build unit.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	StrategyOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazelcp_strategy_outcomes_total",
		Help: "Per-target strategy results, by strategy name and outcome.",
	}, []string{"strategy", "outcome"})

	CacheEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazelcp_cache_events_total",
		Help: "Classpath cache hits, misses, expirations and invalidations.",
	}, []string{"cache", "event"})

	MetadataExtractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bazelcp_metadata_extraction_seconds",
		Help:    "Time spent running one aspect extraction batch.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	MetadataRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazelcp_metadata_records_total",
		Help: "Target metadata records served, by source (fresh, cached, last_good).",
	}, []string{"source"})

	BazelInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazelcp_bazel_invocations_total",
		Help: "Bazel command invocations by verb and status.",
	}, []string{"verb", "status"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bazelcp_graph_nodes_total",
		Help: "Total number of labels in the last built dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bazelcp_graph_edges_total",
		Help: "Total number of edges in the last built dependency graph.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazelcp_watcher_events_total",
		Help: "Total number of BUILD file events received by the watcher.",
	})

	BatchUnitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazelcp_batch_units_total",
		Help: "Build units processed by batch imports, by result.",
	}, []string{"result"})
)
