package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// SignalCitation labels degradation of the citation-derived signal.
	SignalCitation = "citation"
	// SignalSimilarity labels degradation of the catalog-derived signal.
	SignalSimilarity = "similarity"
	// SignalEntered labels a malformed entered code.
	SignalEntered = "entered"
)

var (
	rowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atarec",
			Name:      "rows_total",
			Help:      "Total work orders processed, partitioned by disposition.",
		},
		[]string{"disposition"},
	)

	degradedSignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atarec",
			Name:      "degraded_signals_total",
			Help:      "Signals that resolved to absent/unknown instead of a value.",
		},
		[]string{"signal"},
	)

	rowDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "atarec",
			Name:      "row_seconds",
			Help:      "Per-row pipeline latency in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	similarityScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "atarec",
			Name:      "similarity_score",
			Help:      "Catalog cosine similarity of accepted E2 matches.",
			Buckets:   prometheus.LinearBuckets(0.2, 0.1, 8),
		},
	)
)

// Register attaches atarec collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		rowsTotal,
		degradedSignalsTotal,
		rowDurationSeconds,
		similarityScore,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRow records one completed row with its disposition label.
func ObserveRow(duration time.Duration, disposition string) {
	rowsTotal.WithLabelValues(disposition).Inc()
	if duration < 0 {
		duration = 0
	}
	rowDurationSeconds.Observe(duration.Seconds())
}

// ObserveDegradedSignal counts a signal that resolved without a usable value.
func ObserveDegradedSignal(signal string) {
	degradedSignalsTotal.WithLabelValues(signal).Inc()
}

// ObserveSimilarity records the score of an accepted catalog match.
func ObserveSimilarity(score float64) {
	similarityScore.Observe(score)
}
