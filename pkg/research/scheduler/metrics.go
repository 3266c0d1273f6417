package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_cycles_total",
		Help: "Research cycles by result (completed, gated, lease_held).",
	}, []string{"result"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "research_cycle_duration_seconds",
		Help:    "Wall time of completed research cycles.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	topicRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_topic_runs_total",
		Help: "Pipeline runs by outcome and topic kind.",
	}, []string{"outcome", "kind"})

	expansionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_expansions_created_total",
		Help: "Expansion topics created, split by whether they were activated.",
	}, []string{"active"})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_lifecycle_transitions_total",
		Help: "Lifecycle transitions by kind.",
	}, []string{"kind"})

	impetusGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "research_drive_impetus",
		Help: "Drive impetus observed at the start of the last cycle.",
	})
)

func topicKind(expansion bool) string {
	if expansion {
		return "expansion"
	}
	return "root"
}
