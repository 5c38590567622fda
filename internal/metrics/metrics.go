// Package metrics registers the engine's Prometheus collectors.
//
// Registers:
//
//	#depthsignal_cycle_success_total
//	#depthsignal_cycle_errors_total
//	#depthsignal_venue_fetch_errors_total
//	#depthsignal_broadcasts_total
//	#depthsignal_subscribers
//	#go_* and process_* system metrics
//
// The HTTP server exposes them on /metrics.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	once            sync.Once
	cycleSuccess    prometheus.Counter
	cycleErrors     prometheus.Counter
	venueErrors     *prometheus.CounterVec
	broadcasts      prometheus.Counter
	subscriberGauge prometheus.Gauge

	// Mirrored totals for the CloudWatch publisher.
	counts Counts
)

// Counts is an atomic snapshot of the engine totals.
type Counts struct {
	CycleSuccess int64
	CycleErrors  int64
	VenueErrors  int64
	Broadcasts   int64
	Subscribers  int64
}

func Init() {
	once.Do(func() {
		cycleSuccess = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "depthsignal_cycle_success_total",
			Help: "Number of completed aggregation cycles",
		})
		cycleErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "depthsignal_cycle_errors_total",
			Help: "Number of aggregation cycles that failed and kept the previous snapshot",
		})
		venueErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "depthsignal_venue_fetch_errors_total",
			Help: "Number of venue fetches treated as absent",
		}, []string{"venue"})
		broadcasts = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "depthsignal_broadcasts_total",
			Help: "Number of snapshot broadcasts delivered to subscribers",
		})
		subscriberGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "depthsignal_subscribers",
			Help: "Number of registered subscribers",
		})

		_ = prometheus.Register(cycleSuccess)
		_ = prometheus.Register(cycleErrors)
		_ = prometheus.Register(venueErrors)
		_ = prometheus.Register(broadcasts)
		_ = prometheus.Register(subscriberGauge)
		_ = prometheus.Register(collectors.NewGoCollector())
		_ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// IncrementCycleSuccess records one completed cycle.
func IncrementCycleSuccess() {
	if cycleSuccess != nil {
		cycleSuccess.Inc()
	}
	atomic.AddInt64(&counts.CycleSuccess, 1)
}

// IncrementCycleError records one failed cycle.
func IncrementCycleError() {
	if cycleErrors != nil {
		cycleErrors.Inc()
	}
	atomic.AddInt64(&counts.CycleErrors, 1)
}

// IncrementVenueError records one venue fetch treated as absent.
func IncrementVenueError(venue string) {
	if venueErrors != nil {
		venueErrors.WithLabelValues(venue).Inc()
	}
	atomic.AddInt64(&counts.VenueErrors, 1)
}

// IncrementBroadcast records one delivered subscriber broadcast.
func IncrementBroadcast() {
	if broadcasts != nil {
		broadcasts.Inc()
	}
	atomic.AddInt64(&counts.Broadcasts, 1)
}

// SetSubscribers records the current subscriber count.
func SetSubscribers(n int) {
	if subscriberGauge != nil {
		subscriberGauge.Set(float64(n))
	}
	atomic.StoreInt64(&counts.Subscribers, int64(n))
}

// Snapshot returns the current totals.
func Snapshot() Counts {
	return Counts{
		CycleSuccess: atomic.LoadInt64(&counts.CycleSuccess),
		CycleErrors:  atomic.LoadInt64(&counts.CycleErrors),
		VenueErrors:  atomic.LoadInt64(&counts.VenueErrors),
		Broadcasts:   atomic.LoadInt64(&counts.Broadcasts),
		Subscribers:  atomic.LoadInt64(&counts.Subscribers),
	}
}
