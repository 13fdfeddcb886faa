// Package metrics provides in-memory runtime statistics for pipeline runs.
package metrics

import (
	"math"
	"sync"
	"time"
)

// StageMetrics holds aggregated metrics for a single pipeline stage.
type StageMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Records processed by the stage across all runs.
	TotalRecords int64
	MinRecords   int64
	MaxRecords   int64
}

// StageSnapshot provides computed stats from raw metrics.
type StageSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64

	TotalRecords int64
	AvgRecords   float64
	MinRecords   int64
	MaxRecords   int64
}

// Snapshot represents the full pipeline statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Unpack        *StageSnapshot
	Extract       *StageSnapshot
	Transform     *StageSnapshot
	Upload        *StageSnapshot
}

// Stage names for the collector.
const (
	StageUnpack    = "unpack"
	StageExtract   = "extract"
	StageTransform = "transform"
	StageUpload    = "upload"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	stages    map[string]*StageMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		stages:    make(map[string]*StageMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for a stage.
// Caller must hold write lock.
func (c *Collector) getOrCreate(stage string) *StageMetrics {
	m, ok := c.stages[stage]
	if !ok {
		m = &StageMetrics{
			MinTime:    time.Duration(math.MaxInt64),
			MinRecords: math.MaxInt64,
		}
		c.stages[stage] = m
	}
	return m
}

// Record records one stage execution with its duration and the number of
// records it handled.
func (c *Collector) Record(stage string, duration time.Duration, records int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(stage)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}

	m.TotalRecords += records
	if records < m.MinRecords {
		m.MinRecords = records
	}
	if records > m.MaxRecords {
		m.MaxRecords = records
	}
}

// snapshotStage creates a snapshot for a stage, returning nil if no data.
func snapshotStage(m *StageMetrics) *StageSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	minRecords := m.MinRecords
	if minRecords == math.MaxInt64 {
		minRecords = 0
	}

	return &StageSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),

		TotalRecords: m.TotalRecords,
		AvgRecords:   float64(m.TotalRecords) / float64(m.Count),
		MinRecords:   minRecords,
		MaxRecords:   m.MaxRecords,
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Unpack:        snapshotStage(c.stages[StageUnpack]),
		Extract:       snapshotStage(c.stages[StageExtract]),
		Transform:     snapshotStage(c.stages[StageTransform]),
		Upload:        snapshotStage(c.stages[StageUpload]),
	}
}
