// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Item metrics (only for sync operations)
	TotalConversations int64
	TotalMessages      int64
	TotalFailures      int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64

	// Sync item stats (nil if not applicable)
	TotalConversations *int64
	TotalMessages      *int64
	TotalFailures      *int64
}

// Snapshot represents the full server statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	ProviderFetch *OperationSnapshot
	DBQuery       *OperationSnapshot
	SyncRun       *OperationSnapshot
	HTTPRequest   *OperationSnapshot
}

// Operation names for the collector.
const (
	OpProviderFetch = "provider_fetch"
	OpDBQuery       = "db_query"
	OpSyncRun       = "sync_run"
	OpHTTPRequest   = "http_request"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime: time.Duration(math.MaxInt64),
		}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordSyncRun records timing and item counts for a sync run.
func (c *Collector) RecordSyncRun(duration time.Duration, conversations, messages, failures int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(OpSyncRun)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}

	m.TotalConversations += conversations
	m.TotalMessages += messages
	m.TotalFailures += failures
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics, includeItems bool) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	snap := &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}

	if includeItems {
		convs := m.TotalConversations
		msgs := m.TotalMessages
		fails := m.TotalFailures
		snap.TotalConversations = &convs
		snap.TotalMessages = &msgs
		snap.TotalFailures = &fails
	}

	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		ProviderFetch: snapshotOp(c.ops[OpProviderFetch], false),
		DBQuery:       snapshotOp(c.ops[OpDBQuery], false),
		SyncRun:       snapshotOp(c.ops[OpSyncRun], true),
		HTTPRequest:   snapshotOp(c.ops[OpHTTPRequest], false),
	}
}
