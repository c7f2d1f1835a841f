// Package metrics exposes Prometheus metrics for documentation mounts.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	rebuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vdfs_rebuild_duration_seconds",
			Help:    "Time to rebuild a mount's hierarchy index",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mount"},
	)

	rebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vdfs_rebuilds_total",
			Help: "Total number of hierarchy rebuilds",
		},
		[]string{"mount"},
	)

	indexedDocuments = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vdfs_indexed_documents",
			Help: "Number of documents in a mount's index",
		},
		[]string{"mount"},
	)

	indexedFolders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vdfs_indexed_folders",
			Help: "Number of folders in a mount's index",
		},
		[]string{"mount"},
	)

	persistTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vdfs_persist_total",
			Help: "Total document writes to disk",
		},
		[]string{"mount", "status"},
	)

	filterCompilations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vdfs_filter_compilations_total",
			Help: "Total number of compiled filters",
		},
		[]string{"mount"},
	)

	watchEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vdfs_watch_events_total",
			Help: "Total file system events seen by the watcher",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRebuild records a rebuild of mount and the resulting index size.
func RecordRebuild(mount string, duration time.Duration, documents, folders int) {
	rebuildsTotal.WithLabelValues(mount).Inc()
	rebuildDuration.WithLabelValues(mount).Observe(duration.Seconds())
	indexedDocuments.WithLabelValues(mount).Set(float64(documents))
	indexedFolders.WithLabelValues(mount).Set(float64(folders))
}

// RecordPersist records a document write.
func RecordPersist(mount string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	persistTotal.WithLabelValues(mount, status).Inc()
}

// RecordFilterCompilation records one compiled filter.
func RecordFilterCompilation(mount string) {
	filterCompilations.WithLabelValues(mount).Inc()
}

// RecordWatchEvent records one file system event.
func RecordWatchEvent() {
	watchEventsTotal.Inc()
}

// Forget drops the per-mount series of a closed mount.
func Forget(mount string) {
	rebuildDuration.DeleteLabelValues(mount)
	rebuildsTotal.DeleteLabelValues(mount)
	indexedDocuments.DeleteLabelValues(mount)
	indexedFolders.DeleteLabelValues(mount)
	filterCompilations.DeleteLabelValues(mount)
	persistTotal.DeletePartialMatch(prometheus.Labels{"mount": mount})
}
