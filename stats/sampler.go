package stats

// Sampler adapts WorkerThrottler and the collector to supervisor.Throttler,
// resampling system load and swap usage on every Cap() call so the
// scheduler's dispatch pass always throttles against a fresh reading.
type Sampler struct {
	throttler *WorkerThrottler
	collector *StatsCollector // optional, may be nil
}

// NewSampler creates a Sampler wrapping a WorkerThrottler sized for
// maxWorkers. If disabled is true, Cap always returns maxWorkers
// unthrottled (cmd passes false and handles --no-throttle by using
// supervisor.FixedThrottler instead). collector may be nil, in which case
// readings are not published anywhere.
func NewSampler(maxWorkers int, disabled bool, collector *StatsCollector) *Sampler {
	return &Sampler{
		throttler: NewWorkerThrottler(maxWorkers, disabled),
		collector: collector,
	}
}

// Cap implements supervisor.Throttler. It samples /proc/loadavg and
// /proc/meminfo, runs them through the three-cap algorithm, and returns
// the resulting worker ceiling. Sampling failures are treated as zero
// readings, which the throttler's auto-disable rule turns into "no
// throttling" rather than a spurious worker-count collapse.
func (s *Sampler) Cap(maxWorkers int) int {
	load, _ := getAdjustedLoad()
	swapPct, _ := getSwapUsage()

	dynMax := s.throttler.CalculateDynMax(load, swapPct)
	if dynMax > maxWorkers {
		dynMax = maxWorkers
	}

	if s.collector != nil {
		s.collector.mu.Lock()
		s.collector.topInfo.Load = load
		s.collector.topInfo.SwapPct = swapPct
		s.collector.mu.Unlock()
		s.collector.UpdateDynMaxWorkers(dynMax)
	}

	return dynMax
}
