package collector

import (
	"time"

	"loadsim/internal/core"
	"loadsim/internal/report"
)

// Sink accumulates one workload's samples for one interval. It is owned by
// the aggregation goroutine and is never touched after it has been swapped
// out and computed.
type Sink struct {
	ops       int64
	durations []int64
	records   []int64
}

func newSink() *Sink {
	return &Sink{}
}

// Add appends one sample.
func (s *Sink) Add(sample core.Sample) {
	s.ops++
	s.durations = append(s.durations, sample.DurationMillis)
	s.records = append(s.records, sample.Records)
}

// Ops returns the number of samples added.
func (s *Sink) Ops() int64 {
	return s.ops
}

// Compute derives the interval's statistics and records how long that took.
func (s *Sink) Compute(interval time.Duration, mode MedianMode, clock core.Clock) report.Statistics {
	start := clock.Now()
	stats := ComputeStatistics(s.durations, s.records, interval, mode)
	stats.ComputeTimeMillis = core.Millis(clock.Since(start))
	return stats
}
