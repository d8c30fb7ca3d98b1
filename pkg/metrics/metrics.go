// Package metrics provides Prometheus instrumentation for sluice sync runs.
//
// # Overview
//
// The metrics package provides:
//   - Prometheus-compatible metric collection via promauto
//   - Pre-defined counters for fetch, persist, and retry activity
//   - Stage duration histograms
//   - Throughput tracking utilities
//
// # Basic Usage
//
//	// Count a fetched page of customers
//	metrics.PagesFetched.WithLabelValues("customers").Inc()
//
//	// Track how long a stage ran
//	timer := metrics.NewStageTimer("orders")
//	runOrders()
//	timer.ObserveDuration()
//
//	// Track records per second while persisting
//	tracker := metrics.NewThroughputTracker("products")
//	for _, rec := range records {
//	    persist(rec)
//	    tracker.Increment(1)
//	}
//	rate := tracker.GetAndReset()
//
// All metrics are registered on the default registry.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched counts GraphQL result pages retrieved from the source
	// store, including pages that turn out to be empty.
	// Labels: resource (customers/orders/products)
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_pages_fetched_total",
			Help: "Total number of result pages fetched from the source store",
		},
		[]string{"resource"},
	)

	// RecordsFetched counts raw records returned by the source, before
	// transformation. Orders without a customer still count here.
	// Labels: resource
	RecordsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_records_fetched_total",
			Help: "Total number of records fetched from the source store",
		},
		[]string{"resource"},
	)

	// RecordsPersisted counts records successfully written to the
	// destination store.
	// Labels: resource
	RecordsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_records_persisted_total",
			Help: "Total number of records written to the destination store",
		},
		[]string{"resource"},
	)

	// PersistFailures counts records that failed to persist and were
	// skipped. These do not abort the stage.
	// Labels: stage (customers/orders/products/aggregation)
	PersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_persist_failures_total",
			Help: "Total number of records that failed to persist and were skipped",
		},
		[]string{"stage"},
	)

	// ThrottleRetries counts page fetches retried because the source
	// reported a throttled request.
	// Labels: resource
	ThrottleRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_throttle_retries_total",
			Help: "Total number of page fetches retried after source throttling",
		},
		[]string{"resource"},
	)

	// FetchRetries counts page fetches retried after transport or HTTP
	// failures.
	// Labels: resource
	FetchRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_fetch_retries_total",
			Help: "Total number of page fetches retried after transport errors",
		},
		[]string{"resource"},
	)

	// StageDuration tracks how long each sync stage takes end to end,
	// fetch and persist included.
	// Labels: stage (customers/orders/products/aggregation)
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "sluice_stage_duration_seconds",
			Help: "Duration of sync stages in seconds",
			Buckets: []float64{
				0.1,  // trivial stores
				0.5,  // single page
				1,    // a few pages
				5,    // small stores
				15,   // typical stores
				60,   // large stores
				300,  // very large stores
				1800, // pathological stores
			},
		},
		[]string{"stage"},
	)

	// SyncJobs counts completed sync runs by terminal status.
	// Labels: status (connected/error)
	SyncJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_sync_jobs_total",
			Help: "Total number of completed sync runs by terminal status",
		},
		[]string{"status"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs.
//
// Example:
//
//	timer := metrics.NewTimer("aggregation")
//	aggregate(records)
//	duration := timer.Stop()
//	logger.Info("aggregation done", zap.Duration("duration", duration))
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop returns the elapsed duration since creation. The timer can be
// stopped multiple times, each returning the total elapsed time.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// StageTimer times a sync stage and records the result in the
// StageDuration histogram.
type StageTimer struct {
	start time.Time
	stage string
}

// NewStageTimer creates a timer for the named stage and starts it.
func NewStageTimer(stage string) *StageTimer {
	return &StageTimer{
		start: time.Now(),
		stage: stage,
	}
}

// ObserveDuration records the elapsed time in the StageDuration histogram
// and returns it.
func (t *StageTimer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	StageDuration.WithLabelValues(t.stage).Observe(d.Seconds())
	return d
}

// ThroughputTracker tracks records per second for a resource over time
// windows. Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64     // Records processed since last reset
	lastReset time.Time // Time of last reset
	resource  string    // Resource name for logging
}

// NewThroughputTracker creates a throughput tracker for a resource.
//
// Example:
//
//	tracker := metrics.NewThroughputTracker("orders")
//	for _, rec := range records {
//	    persist(rec)
//	    tracker.Increment(1)
//	}
//	rate := tracker.GetAndReset()
//	logger.Info("stage throughput", zap.Float64("records_per_sec", rate))
func NewThroughputTracker(resource string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		resource:  resource,
	}
}

// Increment adds n to the record count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput in records per second,
// resets the counter, and returns the calculated rate. Safe for
// concurrent use.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	rate := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()

	return rate
}
