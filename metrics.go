package goEMS

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one client counter.
type MetricID uint16

const (
	// MetricHydrateRestored counts hydrations that restored persisted state.
	MetricHydrateRestored MetricID = iota
	// MetricHydrateEmpty counts hydrations that found nothing persisted.
	MetricHydrateEmpty
	// MetricHydrateReset counts hydrations that found corrupt or unreadable
	// state and reset it.
	MetricHydrateReset
	// MetricMirrorFailure counts durable writes or deletes that failed and
	// left a field memory-only.
	MetricMirrorFailure
	// MetricLogin counts completed login transitions.
	MetricLogin
	// MetricLogout counts completed logout transitions.
	MetricLogout
	// MetricCheckIn counts attendance check-ins.
	MetricCheckIn
	// MetricCheckOut counts attendance check-outs.
	MetricCheckOut
	// MetricSocketConnect counts realtime connections established.
	MetricSocketConnect
	// MetricSocketReconnect counts realtime reconnections after a drop.
	MetricSocketReconnect
	// MetricSocketGiveUp counts realtime streams abandoned after the
	// reconnection budget ran out.
	MetricSocketGiveUp
	// MetricProjectCreateSuccess counts projects created through the client.
	MetricProjectCreateSuccess
	// MetricProjectCreateFailure counts rejected or failed project creations.
	MetricProjectCreateFailure
	// MetricTokenExpired counts REST calls refused locally because the bearer
	// token had expired.
	MetricTokenExpired
	// MetricMirrorLatency is the durable write-through latency histogram.
	MetricMirrorLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters plus one latency histogram.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only [MetricMirrorLatency]
// carries a histogram; other IDs are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricMirrorLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricMirrorLatency].buckets[i])
		}
		s.Histograms[MetricMirrorLatency] = buckets
	}

	return s
}

// bucketIndex maps d onto upper bounds of 1, 2.5, 5, 10, 25, 50, 100 ms
// and +Inf. Durable writes are local Redis round trips, so the buckets sit
// lower than a request-latency histogram would.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 1000:
		return 0
	case us <= 2500:
		return 1
	case us <= 5000:
		return 2
	case us <= 10000:
		return 3
	case us <= 25000:
		return 4
	case us <= 50000:
		return 5
	case us <= 100000:
		return 6
	default:
		return 7
	}
}
