// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime counters for the listener, fed through a sink decorator.

package control

import (
	"sync"
	"time"

	"github.com/momentics/etlisten/api"
)

// Metric keys maintained by MetricsSink.
const (
	MetricAccepted       = "conns.accepted"
	MetricClosed         = "conns.closed"
	MetricActive         = "conns.active" // gauge, set by the owner of the reactor
	MetricBytesReceived  = "bytes.received"
	MetricChunksReceived = "chunks.received"
	MetricErrors         = "errors"
)

// MetricsRegistry holds named counters and gauges.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Add increments an int64 counter, creating it at zero.
func (mr *MetricsRegistry) Add(key string, delta int64) {
	mr.mu.Lock()
	v, _ := mr.metrics[key].(int64)
	mr.metrics[key] = v + delta
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Counter returns an int64 counter, or zero if unset.
func (mr *MetricsRegistry) Counter(key string) int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	v, _ := mr.metrics[key].(int64)
	return v
}

// Updated returns the time of the last change.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

// GetSnapshot returns a copy of all metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}

// MetricsSink counts events into a registry and forwards them to next.
type MetricsSink struct {
	reg  *MetricsRegistry
	next api.Sink
}

// NewMetricsSink wraps next. A nil next discards events after counting.
func NewMetricsSink(reg *MetricsRegistry, next api.Sink) *MetricsSink {
	if next == nil {
		next = api.NopSink{}
	}
	return &MetricsSink{reg: reg, next: next}
}

func (s *MetricsSink) Accepted(c api.ConnInfo) {
	s.reg.Add(MetricAccepted, 1)
	s.next.Accepted(c)
}

func (s *MetricsSink) Received(c api.ConnInfo, chunk []byte) {
	s.reg.Add(MetricChunksReceived, 1)
	s.reg.Add(MetricBytesReceived, int64(len(chunk)))
	s.next.Received(c, chunk)
}

func (s *MetricsSink) Closed(c api.ConnInfo) {
	s.reg.Add(MetricClosed, 1)
	s.next.Closed(c)
}

func (s *MetricsSink) Error(op string, c api.ConnInfo, err error) {
	s.reg.Add(MetricErrors, 1)
	s.next.Error(op, c, err)
}
