package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects in-process counters for study operations.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	// Daily plan composition.
	plansGenerated atomic.Int64
	reviewItems    atomic.Int64
	newItems       atomic.Int64
	missingItems   atomic.Int64

	// Optimistic concurrency.
	writeConflicts atomic.Int64

	operationMetrics map[string]*OperationMetrics
}

// OperationMetrics represents metrics for a specific service operation.
type OperationMetrics struct {
	executionCount atomic.Int64
	totalDuration  atomic.Int64 // milliseconds
	errorCount     atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		operationMetrics: make(map[string]*OperationMetrics),
	}
}

var globalMetrics = NewMetrics()

// GlobalMetrics returns the global metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordRequest records a call of operation.
func (m *Metrics) RecordRequest(operation string) {
	m.requestTotal.Add(1)
	m.getOperationMetrics(operation).executionCount.Add(1)
}

// RecordFailure records a failed call of operation.
func (m *Metrics) RecordFailure(operation string) {
	m.requestFailed.Add(1)
	m.getOperationMetrics(operation).errorCount.Add(1)
}

// RecordDuration records the duration of a call of operation.
func (m *Metrics) RecordDuration(operation string, duration time.Duration) {
	m.getOperationMetrics(operation).totalDuration.Add(duration.Milliseconds())
}

// RecordPlan records a generated daily plan and its composition.
func (m *Metrics) RecordPlan(reviewItems, newItems int) {
	m.plansGenerated.Add(1)
	m.reviewItems.Add(int64(reviewItems))
	m.newItems.Add(int64(newItems))
}

// RecordMissingItem records a due topic that had no drop to show.
func (m *Metrics) RecordMissingItem() {
	m.missingItems.Add(1)
}

// RecordConflict records a conditional write that lost to a concurrent writer.
func (m *Metrics) RecordConflict() {
	m.writeConflicts.Add(1)
}

func (m *Metrics) getOperationMetrics(operation string) *OperationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	om, ok := m.operationMetrics[operation]
	if !ok {
		om = &OperationMetrics{}
		m.operationMetrics[operation] = om
	}
	return om
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)
	m.plansGenerated.Store(0)
	m.reviewItems.Store(0)
	m.newItems.Store(0)
	m.missingItems.Store(0)
	m.writeConflicts.Store(0)

	m.mu.Lock()
	m.operationMetrics = make(map[string]*OperationMetrics)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	operations := make(map[string]*OperationMetricsSnapshot, len(m.operationMetrics))
	for operation, om := range m.operationMetrics {
		snapshot := &OperationMetricsSnapshot{
			ExecutionCount: om.executionCount.Load(),
			TotalDuration:  om.totalDuration.Load(),
			ErrorCount:     om.errorCount.Load(),
		}
		if snapshot.ExecutionCount > 0 {
			snapshot.AverageDuration = snapshot.TotalDuration / snapshot.ExecutionCount
		}
		operations[operation] = snapshot
	}

	return &MetricsSnapshot{
		RequestTotal:     m.requestTotal.Load(),
		RequestFailed:    m.requestFailed.Load(),
		PlansGenerated:   m.plansGenerated.Load(),
		ReviewItems:      m.reviewItems.Load(),
		NewItems:         m.newItems.Load(),
		MissingItems:     m.missingItems.Load(),
		WriteConflicts:   m.writeConflicts.Load(),
		OperationMetrics: operations,
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal     int64                                `json:"requestTotal"`
	RequestFailed    int64                                `json:"requestFailed"`
	PlansGenerated   int64                                `json:"plansGenerated"`
	ReviewItems      int64                                `json:"reviewItems"`
	NewItems         int64                                `json:"newItems"`
	MissingItems     int64                                `json:"missingItems"`
	WriteConflicts   int64                                `json:"writeConflicts"`
	OperationMetrics map[string]*OperationMetricsSnapshot `json:"operations"`
}

// OperationMetricsSnapshot represents metrics for a specific operation.
type OperationMetricsSnapshot struct {
	ExecutionCount  int64 `json:"executionCount"`
	TotalDuration   int64 `json:"totalDurationMs"`
	ErrorCount      int64 `json:"errorCount"`
	AverageDuration int64 `json:"averageDurationMs"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
