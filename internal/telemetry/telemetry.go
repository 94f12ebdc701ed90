// Package telemetry registers Greylock's prometheus metrics. Grounded on
// the teacher's service/pkg/api/http.go, which registers runtime
// GaugeFuncs in an init() block; extended here with domain counters and
// histograms for indexing, search, and merge activity.
package telemetry

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	goroutines = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "go_goroutines",
			Help: "Number of active goroutines.",
		},
		func() float64 { return float64(runtime.NumGoroutine()) },
	)

	heapAlloc = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "go_heap_alloc_bytes",
			Help: "Current heap allocation in bytes.",
		},
		func() float64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return float64(stats.HeapAlloc)
		},
	)

	gcPauseTotal = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "go_gc_pause_total_ns",
			Help: "Total GC pause time in nanoseconds.",
		},
		func() float64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return float64(stats.PauseTotalNs)
		},
	)

	// DocumentsIndexed counts documents successfully written by the
	// indexer, labeled by mailbox.
	DocumentsIndexed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greylock_documents_indexed_total",
			Help: "Documents successfully indexed.",
		},
		[]string{"mailbox"},
	)

	// DocumentsSkipped counts documents skipped by the dedup-on-id policy.
	DocumentsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greylock_documents_skipped_total",
			Help: "Documents skipped because their external id already existed.",
		},
		[]string{"mailbox"},
	)

	// IndexErrors counts per-document indexing failures.
	IndexErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greylock_index_errors_total",
			Help: "Documents that failed to index.",
		},
		[]string{"mailbox", "kind"},
	)

	// SearchLatency observes wall-clock time spent in one Intersect call.
	SearchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "greylock_search_latency_seconds",
			Help:    "Latency of search requests.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// SearchShardsScanned observes how many shards a search walked.
	SearchShardsScanned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "greylock_search_shards_scanned",
			Help:    "Number of shards scanned to satisfy one search.",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		},
	)

	// MergeFailures counts pebble merge-operator dispatch failures.
	MergeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "greylock_merge_failures_total",
			Help: "Merge operator invocations that could not be dispatched.",
		},
	)

	// WorkerQueueDepth reports the current depth of the index worker pool's
	// buffered channel.
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "greylock_worker_queue_depth",
			Help: "Current number of pending requests in the index worker queue.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		heapAlloc,
		gcPauseTotal,
		DocumentsIndexed,
		DocumentsSkipped,
		IndexErrors,
		SearchLatency,
		SearchShardsScanned,
		MergeFailures,
		WorkerQueueDepth,
	)
	// goroutines is deliberately not registered: the prometheus client's
	// default process collector already exports goroutine count, and the
	// teacher's own http.go leaves this one commented out for the same
	// reason. Kept as a field so a caller inspecting this package's
	// gauges finds it here too.
	_ = goroutines
}
