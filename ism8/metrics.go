package ism8

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a thread-safe counter
type Counter struct {
	value int64
}

// Add adds a delta to the counter
func (c *Counter) Add(delta int64) {
	atomic.AddInt64(&c.value, delta)
}

// Inc increments the counter by 1
func (c *Counter) Inc() {
	c.Add(1)
}

// Value returns the current counter value
func (c *Counter) Value() int64 {
	return atomic.LoadInt64(&c.value)
}

// Reset resets the counter to 0
func (c *Counter) Reset() {
	atomic.StoreInt64(&c.value, 0)
}

// Gauge is a thread-safe gauge that can go up and down
type Gauge struct {
	value int64
}

// Set sets the gauge value
func (g *Gauge) Set(value int64) {
	atomic.StoreInt64(&g.value, value)
}

// Value returns the current gauge value
func (g *Gauge) Value() int64 {
	return atomic.LoadInt64(&g.value)
}

// latencyBounds are the upper bounds of the histogram buckets; the last bucket is open
var latencyBounds = []time.Duration{
	50 * time.Microsecond,
	100 * time.Microsecond,
	250 * time.Microsecond,
	500 * time.Microsecond,
	time.Millisecond,
	5 * time.Millisecond,
	25 * time.Millisecond,
	100 * time.Millisecond,
}

// LatencyHistogram tracks how long inbound chunks take to process
type LatencyHistogram struct {
	mu      sync.RWMutex
	count   int64
	sum     int64 // nanoseconds
	min     int64
	max     int64
	buckets []int64
}

// NewLatencyHistogram creates a new latency histogram
func NewLatencyHistogram() *LatencyHistogram {
	return &LatencyHistogram{
		min:     -1,
		buckets: make([]int64, len(latencyBounds)+1),
	}
}

// Record records a latency measurement
func (h *LatencyHistogram) Record(d time.Duration) {
	ns := d.Nanoseconds()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.count++
	h.sum += ns
	if h.min < 0 || ns < h.min {
		h.min = ns
	}
	if ns > h.max {
		h.max = ns
	}

	i := 0
	for i < len(latencyBounds) && d >= latencyBounds[i] {
		i++
	}
	h.buckets[i]++
}

// Stats returns histogram statistics
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := LatencyStats{
		Count:   h.count,
		Sum:     time.Duration(h.sum),
		Buckets: make([]int64, len(h.buckets)),
	}
	copy(stats.Buckets, h.buckets)

	if h.count > 0 {
		stats.Min = time.Duration(h.min)
		stats.Max = time.Duration(h.max)
		stats.Avg = time.Duration(h.sum / h.count)
	}
	return stats
}

// Reset resets the histogram
func (h *LatencyHistogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.count = 0
	h.sum = 0
	h.min = -1
	h.max = 0
	for i := range h.buckets {
		h.buckets[i] = 0
	}
}

// LatencyBounds returns the upper bounds of the histogram buckets
func LatencyBounds() []time.Duration {
	return append([]time.Duration(nil), latencyBounds...)
}

// LatencyStats contains latency statistics.
// Buckets[i] counts samples below LatencyBounds()[i]; the last bucket counts the rest.
type LatencyStats struct {
	Count   int64
	Sum     time.Duration
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	Buckets []int64
}

// Metrics holds engine metrics
type Metrics struct {
	// Connection metrics
	Connections Counter
	Disconnects Counter
	Rejected    Counter
	Connected   Gauge

	// Inbound
	BytesReceived      Counter
	FramesReceived     Counter
	FramesDiscarded    Counter
	BytesDiscarded     Counter
	AcksSent           Counter
	DatapointsDecoded  Counter
	UnknownDatapoints  Counter
	DecodeErrors       Counter
	DatapointsRetained Gauge

	// Outbound
	BytesSent       Counter
	WritesSent      Counter
	WritesRejected  Counter
	ReadAllRequests Counter
	WriteErrors     Counter

	ProcessLatency *LatencyHistogram

	startTime    time.Time
	lastActivity atomic.Int64
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		ProcessLatency: NewLatencyHistogram(),
		startTime:      time.Now(),
	}
}

// RecordActivity records the last activity time
func (m *Metrics) RecordActivity() {
	m.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the last activity time
func (m *Metrics) LastActivity() time.Time {
	ns := m.lastActivity.Load()
	if ns == 0 {
		return m.startTime
	}
	return time.Unix(0, ns)
}

// Uptime returns the time since metrics started
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// Snapshot returns a snapshot of current metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Uptime: m.Uptime(),

		Connections: m.Connections.Value(),
		Disconnects: m.Disconnects.Value(),
		Rejected:    m.Rejected.Value(),
		Connected:   m.Connected.Value() != 0,

		BytesReceived:      m.BytesReceived.Value(),
		FramesReceived:     m.FramesReceived.Value(),
		FramesDiscarded:    m.FramesDiscarded.Value(),
		BytesDiscarded:     m.BytesDiscarded.Value(),
		AcksSent:           m.AcksSent.Value(),
		DatapointsDecoded:  m.DatapointsDecoded.Value(),
		UnknownDatapoints:  m.UnknownDatapoints.Value(),
		DecodeErrors:       m.DecodeErrors.Value(),
		DatapointsRetained: m.DatapointsRetained.Value(),

		BytesSent:       m.BytesSent.Value(),
		WritesSent:      m.WritesSent.Value(),
		WritesRejected:  m.WritesRejected.Value(),
		ReadAllRequests: m.ReadAllRequests.Value(),
		WriteErrors:     m.WriteErrors.Value(),

		Latency: m.ProcessLatency.Stats(),

		LastActivity: m.LastActivity(),
	}
}

// MetricsSnapshot is a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	Uptime time.Duration

	Connections int64
	Disconnects int64
	Rejected    int64
	Connected   bool

	BytesReceived      int64
	FramesReceived     int64
	FramesDiscarded    int64
	BytesDiscarded     int64
	AcksSent           int64
	DatapointsDecoded  int64
	UnknownDatapoints  int64
	DecodeErrors       int64
	DatapointsRetained int64

	BytesSent       int64
	WritesSent      int64
	WritesRejected  int64
	ReadAllRequests int64
	WriteErrors     int64

	Latency LatencyStats

	LastActivity time.Time
}
