// Package stats - StatsCollector implementation
package stats

import (
	"context"
	"sync"
	"time"
)

// StatsCollector collects real-time run statistics with 1 Hz sampling.
// It maintains a 60-second sliding window for rate calculation and notifies
// registered consumers (dashboard or stdout reporter) on each tick.
//
// Thread-safe for concurrent access from the scheduler and the sampling
// goroutine.
type StatsCollector struct {
	mu            sync.RWMutex
	topInfo       TopInfo         // Current snapshot
	rateBuckets   [60]int         // Ring buffer: 1-second buckets for rate calculation
	currentBucket int             // Current bucket index (0-59)
	bucketStart   time.Time       // Start time of current bucket
	startTime     time.Time       // Run start timestamp
	ticker        *time.Ticker    // 1 Hz sampling ticker
	consumers     []StatsConsumer // Registered consumers (dashboard, stdout reporter)
	ctx           context.Context // Cancellation context
	cancel        context.CancelFunc
	wg            sync.WaitGroup // Wait for goroutine to finish
}

// NewStatsCollector creates a new StatsCollector and starts the 1 Hz sampling loop.
// The collector runs until Close() is called or the context is cancelled.
//
// maxWorkers is the configured maximum number of concurrent task slots.
func NewStatsCollector(ctx context.Context, maxWorkers int) *StatsCollector {
	collectorCtx, cancel := context.WithCancel(ctx)
	now := time.Now()

	sc := &StatsCollector{
		topInfo: TopInfo{
			MaxWorkers: maxWorkers,
			StartTime:  now,
		},
		bucketStart: now,
		startTime:   now,
		ticker:      time.NewTicker(1 * time.Second),
		ctx:         collectorCtx,
		cancel:      cancel,
	}

	sc.wg.Add(1)
	go sc.run()

	return sc
}

// RecordCompletion records a task outcome event, updating the current rate
// bucket and totals.
func (sc *StatsCollector) RecordCompletion(outcome TaskOutcome) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.advanceBucketLocked(time.Now())

	switch outcome {
	case TaskExited:
		sc.topInfo.Exited++
	case TaskTimedOut:
		sc.topInfo.TimedOut++
	case TaskMemedOut:
		sc.topInfo.MemedOut++
	}

	sc.rateBuckets[sc.currentBucket]++
}

// UpdateWorkerCount updates the active worker count.
func (sc *StatsCollector) UpdateWorkerCount(active int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.topInfo.ActiveWorkers = active
}

// UpdateDynMaxWorkers updates the throttled dynamic worker ceiling.
func (sc *StatsCollector) UpdateDynMaxWorkers(dynMax int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.topInfo.DynMaxWorkers = dynMax
}

// UpdateQueuedCount updates the total queued task count.
func (sc *StatsCollector) UpdateQueuedCount(queued int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.topInfo.Queued = queued
}

// GetSnapshot returns a thread-safe copy of the current TopInfo.
func (sc *StatsCollector) GetSnapshot() TopInfo {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.topInfo
}

// AddConsumer registers a stats consumer to receive updates on each tick.
// Consumers are notified in registration order.
func (sc *StatsCollector) AddConsumer(consumer StatsConsumer) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.consumers = append(sc.consumers, consumer)
}

// Close stops the sampling loop and waits for cleanup.
func (sc *StatsCollector) Close() error {
	sc.cancel()
	sc.ticker.Stop()
	sc.wg.Wait()
	return nil
}

// run is the 1 Hz sampling loop (goroutine).
func (sc *StatsCollector) run() {
	defer sc.wg.Done()

	for {
		select {
		case <-sc.ticker.C:
			sc.tick()
		case <-sc.ctx.Done():
			return
		}
	}
}

// tick performs a single sampling iteration.
func (sc *StatsCollector) tick() {
	now := time.Now()

	sc.mu.Lock()

	sc.advanceBucketLocked(now)

	sc.topInfo.Elapsed = now.Sub(sc.startTime)
	sc.topInfo.Rate = sc.calculateRateLocked()

	prevBucket := (sc.currentBucket + 59) % 60
	sc.topInfo.Impulse = float64(sc.rateBuckets[prevBucket])

	sc.topInfo.Remaining = sc.topInfo.Queued - (sc.topInfo.Exited + sc.topInfo.TimedOut + sc.topInfo.MemedOut)

	snapshot := sc.topInfo
	consumers := sc.consumers

	sc.mu.Unlock()

	for _, consumer := range consumers {
		consumer.OnStatsUpdate(snapshot)
	}
}

// advanceBucketLocked advances the bucket index, handling multi-second gaps.
// Must be called with lock held.
func (sc *StatsCollector) advanceBucketLocked(now time.Time) {
	elapsed := now.Sub(sc.bucketStart)

	for elapsed >= time.Second {
		sc.currentBucket = (sc.currentBucket + 1) % 60
		sc.rateBuckets[sc.currentBucket] = 0
		sc.bucketStart = sc.bucketStart.Add(time.Second)
		elapsed = now.Sub(sc.bucketStart)
	}
}

// calculateRateLocked calculates tasks/hour from the 60-second window.
// Must be called with lock held.
func (sc *StatsCollector) calculateRateLocked() float64 {
	sum := 0
	for _, count := range sc.rateBuckets {
		sum += count
	}
	return float64(sum * 60)
}
