// Package metrics implements the atomic counters, gauges and exposition
// endpoints from spec §4.7: JSON at /metrics, Prometheus text at
// /metricsp, both bearer-gated when an API key is configured.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	promTotalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "go_apiserver",
		Name:      "requests_total",
		Help:      "Total number of parsed requests the server has dispatched, whatever their outcome.",
	})
	promCurrentConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "go_apiserver",
		Name:      "connections_current",
		Help:      "Number of connections currently open across all I/O workers.",
	})
	promActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "go_apiserver",
		Name:      "worker_threads_active",
		Help:      "Number of worker-pool threads currently executing a handler.",
	})
	promPendingTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "go_apiserver",
		Name:      "pending_tasks",
		Help:      "Sum of queued tasks across every worker pool's task queue.",
	})
	promProcessingSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "go_apiserver",
		Name:      "request_processing_seconds",
		Help:      "Handler processing time, from dispatch to response ready.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Registry holds the atomic counters the JSON exposition reads directly.
// The Prometheus collectors above are process-global (promauto registers
// against the default registry once per process, as in the examples),
// but Registry itself is an ordinary value the server façade owns and
// threads through, not a package-level singleton (spec §9 "Singleton
// JWT service" applies the same way here).
type Registry struct {
	totalRequests       int64
	currentConnections  int64
	activeWorkerThreads int64
	pendingTasks        int64

	// Running mean of processing time in nanoseconds, updated with a
	// monotonic counter pair so concurrent readers never see a torn
	// average (spec §4.7 "average processing time, running mean with
	// monotonic updates").
	totalProcessingNanos int64
	processedCount       int64

	// pendingByWorker holds each I/O worker's own task-queue depth so
	// SetPendingTasks can publish the sum across worker queues (spec
	// §4.7), rather than the last writer's value clobbering the rest —
	// with IO_THREADS > 1 every worker calls SetPendingTasks with only
	// its own pool depth.
	pendingMu       sync.Mutex
	pendingByWorker map[int]int64
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{pendingByWorker: make(map[int]int64)}
}

// IncRequests records a parsed request entering dispatch, before its
// outcome is known.
func (r *Registry) IncRequests() {
	atomic.AddInt64(&r.totalRequests, 1)
	promTotalRequests.Inc()
}

// ConnOpened records a newly accepted connection.
func (r *Registry) ConnOpened() {
	atomic.AddInt64(&r.currentConnections, 1)
	promCurrentConnections.Inc()
}

// ConnClosed records a connection's removal from its I/O worker's table.
func (r *Registry) ConnClosed() {
	atomic.AddInt64(&r.currentConnections, -1)
	promCurrentConnections.Dec()
}

// WorkerStarted records a worker-pool thread beginning handler execution.
func (r *Registry) WorkerStarted() {
	atomic.AddInt64(&r.activeWorkerThreads, 1)
	promActiveWorkers.Inc()
}

// WorkerFinished records a worker-pool thread completing handler
// execution and observes its processing time.
func (r *Registry) WorkerFinished(elapsedNanos int64) {
	atomic.AddInt64(&r.activeWorkerThreads, -1)
	promActiveWorkers.Dec()
	atomic.AddInt64(&r.totalProcessingNanos, elapsedNanos)
	atomic.AddInt64(&r.processedCount, 1)
	promProcessingSeconds.Observe(float64(elapsedNanos) / 1e9)
}

// SetPendingTasks records workerID's current task-queue depth and
// publishes the sum across every worker that has reported so far (spec
// §4.7: "pending tasks, sum across worker queues").
func (r *Registry) SetPendingTasks(workerID int, n int64) {
	r.pendingMu.Lock()
	r.pendingByWorker[workerID] = n
	var sum int64
	for _, v := range r.pendingByWorker {
		sum += v
	}
	r.pendingMu.Unlock()

	atomic.StoreInt64(&r.pendingTasks, sum)
	promPendingTasks.Set(float64(sum))
}

// Snapshot is the JSON-exposed view of the registry.
type Snapshot struct {
	TotalRequests          int64   `json:"total_requests"`
	CurrentConnections     int64   `json:"current_connections"`
	ActiveWorkerThreads    int64   `json:"active_worker_threads"`
	PendingTasks           int64   `json:"pending_tasks"`
	AverageProcessingMicro float64 `json:"average_processing_micros"`
}

// Snapshot reads a consistent-enough point-in-time view. Individual
// fields are read with separate atomic loads; spec §4.7 only requires
// monotonic updates to the running mean, not a cross-field transaction.
func (r *Registry) Snapshot() Snapshot {
	count := atomic.LoadInt64(&r.processedCount)
	var avgMicro float64
	if count > 0 {
		avgMicro = float64(atomic.LoadInt64(&r.totalProcessingNanos)) / float64(count) / 1000
	}
	return Snapshot{
		TotalRequests:          atomic.LoadInt64(&r.totalRequests),
		CurrentConnections:     atomic.LoadInt64(&r.currentConnections),
		ActiveWorkerThreads:    atomic.LoadInt64(&r.activeWorkerThreads),
		PendingTasks:           atomic.LoadInt64(&r.pendingTasks),
		AverageProcessingMicro: avgMicro,
	}
}
