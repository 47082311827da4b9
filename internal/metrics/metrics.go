// Package metrics provides Prometheus metrics for news_collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"news_collector/internal/domain"
)

var (
	// SourceRunsTotal counts finished source runs by outcome.
	SourceRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collector",
			Name:      "source_runs_total",
			Help:      "Total number of source collection runs",
		},
		[]string{"source", "status"},
	)

	// ArticlesCollectedTotal counts articles stored per source.
	ArticlesCollectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collector",
			Name:      "articles_collected_total",
			Help:      "Total number of newly stored articles",
		},
		[]string{"source"},
	)

	// SourceRunDuration measures how long one source run takes.
	SourceRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "collector",
			Name:      "source_run_duration_seconds",
			Help:      "Duration of source collection runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"source"},
	)

	// LastRunTimestamp is the unix time of the last finished run per source.
	LastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "collector",
			Name:      "source_last_run_timestamp_seconds",
			Help:      "Unix timestamp of the last finished source run",
		},
		[]string{"source"},
	)
)

// RecordSourceRun records a finished source run.
func RecordSourceRun(source, status string, articles int, duration time.Duration) {
	SourceRunsTotal.WithLabelValues(source, status).Inc()
	ArticlesCollectedTotal.WithLabelValues(source).Add(float64(articles))
	SourceRunDuration.WithLabelValues(source).Observe(duration.Seconds())
	LastRunTimestamp.WithLabelValues(source).SetToCurrentTime()
}

// Recorder adapts the package metrics to the collector.
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (Recorder) ObserveSource(result domain.SourceResult, duration time.Duration) {
	RecordSourceRun(result.SourceName, string(result.Status), result.ArticlesCollected, duration)
}
