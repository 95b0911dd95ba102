// Package metrics exposes the Prometheus instrumentation every shard
// publishes, grounded on the same package-level-vars-plus-init-registration
// pattern used elsewhere in this codebase.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	IndexRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shardd_index_requests_total",
			Help: "Total number of Index RPC calls by outcome",
		},
		[]string{"outcome"},
	)

	IndexBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shardd_index_batch_size",
			Help:    "Number of documents per Index call",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shardd_search_requests_total",
			Help: "Total number of Search RPC calls by outcome and cost bucket",
		},
		[]string{"outcome", "cost_bucket"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shardd_search_duration_seconds",
			Help:    "Search call duration in seconds by cost bucket",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cost_bucket"},
	)

	SyncRowsReplicated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shardd_sync_rows_replicated_total",
			Help: "Total number of rows sent to replicas via Sync",
		},
	)

	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shardd_sync_duration_seconds",
			Help:    "Time taken for one replication step across all replicas",
			Buckets: prometheus.DefBuckets,
		},
	)

	LifecycleRotationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shardd_lifecycle_rotations_total",
			Help: "Total number of migration batches written to cold shards",
		},
	)

	LifecyclePurgedRows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shardd_lifecycle_purged_rows_total",
			Help: "Total number of rows deleted from the primary after migration to cold shards",
		},
	)

	ShardDocumentCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shardd_documents",
			Help: "Current document count by shard name",
		},
		[]string{"shard"},
	)

	ShardBytesUsed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shardd_bytes_used",
			Help: "Current on-disk size in bytes by shard name",
		},
		[]string{"shard"},
	)

	ShardReadOnly = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shardd_read_only",
			Help: "Whether a shard is currently read-only (1) or accepting writes (0)",
		},
		[]string{"shard"},
	)

	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shardd_tick_duration_seconds",
			Help:    "Time taken for one full scheduler tick (replication + lifecycle)",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		IndexRequestsTotal,
		IndexBatchSize,
		SearchRequestsTotal,
		SearchDuration,
		SyncRowsReplicated,
		SyncDuration,
		LifecycleRotationsTotal,
		LifecyclePurgedRows,
		ShardDocumentCount,
		ShardBytesUsed,
		ShardReadOnly,
		TickDuration,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed wall time for a single operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}
