package snapsweep

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    updateCounter prometheus.Counter
//	    mineHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordUpdateIndex(newCount, moved, failed int, duration time.Duration, err error) {
//	    p.updateCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordUpdateIndex is called after each index reconciliation.
	// newCount/moved/failed are the report counters, duration is the
	// total time taken, err is nil if successful.
	RecordUpdateIndex(newCount, moved, failed int, duration time.Duration, err error)

	// RecordMine is called after each duplicate mining run.
	// pairs is the number of pairs returned.
	RecordMine(pairs int, duration time.Duration, err error)

	// RecordMarkDeleted is called after each soft-delete run.
	RecordMarkDeleted(marked int, duration time.Duration, err error)

	// RecordSnapshot is called after each snapshot save or load.
	RecordSnapshot(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordUpdateIndex(int, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordMine(int, time.Duration, error)                  {}
func (NoopMetricsCollector) RecordMarkDeleted(int, time.Duration, error)           {}
func (NoopMetricsCollector) RecordSnapshot(time.Duration, error)                   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	UpdateCount      atomic.Int64
	UpdateErrors     atomic.Int64
	UpdateTotalNanos atomic.Int64
	ItemsNew         atomic.Int64
	ItemsMoved       atomic.Int64
	ItemsFailed      atomic.Int64
	MineCount        atomic.Int64
	MineErrors       atomic.Int64
	MineTotalNanos   atomic.Int64
	PairsFound       atomic.Int64
	DeleteCount      atomic.Int64
	DeleteErrors     atomic.Int64
	ItemsTombstoned  atomic.Int64
	SnapshotCount    atomic.Int64
	SnapshotErrors   atomic.Int64
}

// RecordUpdateIndex implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdateIndex(newCount, moved, failed int, duration time.Duration, err error) {
	b.UpdateCount.Add(1)
	b.UpdateTotalNanos.Add(duration.Nanoseconds())
	b.ItemsNew.Add(int64(newCount))
	b.ItemsMoved.Add(int64(moved))
	b.ItemsFailed.Add(int64(failed))
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// RecordMine implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMine(pairs int, duration time.Duration, err error) {
	b.MineCount.Add(1)
	b.MineTotalNanos.Add(duration.Nanoseconds())
	b.PairsFound.Add(int64(pairs))
	if err != nil {
		b.MineErrors.Add(1)
	}
}

// RecordMarkDeleted implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMarkDeleted(marked int, duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	b.ItemsTombstoned.Add(int64(marked))
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(duration time.Duration, err error) {
	b.SnapshotCount.Add(1)
	if err != nil {
		b.SnapshotErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		UpdateCount:     b.UpdateCount.Load(),
		UpdateErrors:    b.UpdateErrors.Load(),
		UpdateAvgNanos:  b.getAvgUpdateNanos(),
		ItemsNew:        b.ItemsNew.Load(),
		ItemsMoved:      b.ItemsMoved.Load(),
		ItemsFailed:     b.ItemsFailed.Load(),
		MineCount:       b.MineCount.Load(),
		MineErrors:      b.MineErrors.Load(),
		MineAvgNanos:    b.getAvgMineNanos(),
		PairsFound:      b.PairsFound.Load(),
		DeleteCount:     b.DeleteCount.Load(),
		DeleteErrors:    b.DeleteErrors.Load(),
		ItemsTombstoned: b.ItemsTombstoned.Load(),
		SnapshotCount:   b.SnapshotCount.Load(),
		SnapshotErrors:  b.SnapshotErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgUpdateNanos() int64 {
	count := b.UpdateCount.Load()
	if count == 0 {
		return 0
	}
	return b.UpdateTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgMineNanos() int64 {
	count := b.MineCount.Load()
	if count == 0 {
		return 0
	}
	return b.MineTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	UpdateCount     int64
	UpdateErrors    int64
	UpdateAvgNanos  int64
	ItemsNew        int64
	ItemsMoved      int64
	ItemsFailed     int64
	MineCount       int64
	MineErrors      int64
	MineAvgNanos    int64
	PairsFound      int64
	DeleteCount     int64
	DeleteErrors    int64
	ItemsTombstoned int64
	SnapshotCount   int64
	SnapshotErrors  int64
}
