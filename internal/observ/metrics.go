package observ

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CompileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dtolsp_compile_seconds",
		Help:    "Time spent in one analysis phase of a DTO document.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	SnapshotPromotions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dtolsp_snapshot_promotions_total",
		Help: "Analyses that promoted a document's latest snapshot to its last good one.",
	})

	StaleCommits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dtolsp_stale_commits_total",
		Help: "Analyses discarded because a newer edit arrived first.",
	})

	IndexGeneration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dtolsp_index_generation",
		Help: "Sequence number of the published index generation.",
	}, []string{"backend"})

	IndexFiles = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dtolsp_index_files",
		Help: "Number of files in the published index generation.",
	}, []string{"backend"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dtolsp_request_seconds",
		Help:    "Time spent handling one language server message.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	WatcherEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dtolsp_watcher_events_total",
		Help: "File system events received by the workspace watcher.",
	})
)

// ObservePhases feeds every phase of t into CompileDuration.
func ObservePhases(t *Timer) {
	if t == nil {
		return
	}
	for _, p := range t.phases {
		CompileDuration.WithLabelValues(p.Name).Observe(p.Dur.Seconds())
	}
}

// Since observes the time elapsed since start under phase.
func Since(phase string, start time.Time) {
	CompileDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
