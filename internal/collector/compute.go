// Package collector aggregates worker samples into periodic reports.
package collector

import (
	"fmt"
	"math"
	"slices"
	"time"

	"loadsim/internal/report"
)

// MedianMode selects how the median and p95 ranks are computed.
type MedianMode int

const (
	// MedianNearestRank uses the nearest-rank method: index ceil(p*n)-1.
	MedianNearestRank MedianMode = iota
	// MedianLegacy reproduces the ranks of earlier tool versions: the
	// median is D[n/2+1] (0 when n <= 1) and p95 is D[ceil(0.95n)], both
	// clamped to the last element.
	MedianLegacy
)

func (m MedianMode) String() string {
	switch m {
	case MedianNearestRank:
		return "nearest-rank"
	case MedianLegacy:
		return "legacy"
	}
	return fmt.Sprintf("MedianMode(%d)", int(m))
}

// ParseMedianMode parses "nearest-rank" (or "") and "legacy".
func ParseMedianMode(s string) (MedianMode, error) {
	switch s {
	case "", "nearest-rank":
		return MedianNearestRank, nil
	case "legacy":
		return MedianLegacy, nil
	}
	return 0, fmt.Errorf("unknown median mode %q", s)
}

// Percentile returns the nearest-rank percentile of an ascending slice.
// p is between 0 and 1 (e.g. 0.95 for p95). An empty slice yields 0.
func Percentile(sorted []int64, p float64) int64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(n))) - 1
	return sorted[clamp(idx, 0, n-1)]
}

func legacyPercentile(sorted []int64, p float64) int64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	return sorted[clamp(int(math.Ceil(p*float64(n))), 0, n-1)]
}

// Median returns the median of an ascending slice according to mode.
func Median(sorted []int64, mode MedianMode) int64 {
	if mode == MedianLegacy {
		n := len(sorted)
		if n <= 1 {
			return 0
		}
		return sorted[clamp(n/2+1, 0, n-1)]
	}
	return Percentile(sorted, 0.5)
}

// P95 returns the 95th percentile of an ascending slice according to mode.
func P95(sorted []int64, mode MedianMode) int64 {
	if mode == MedianLegacy {
		return legacyPercentile(sorted, 0.95)
	}
	return Percentile(sorted, 0.95)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// ComputeStatistics derives the statistics document for one interval.
// durations is sorted in place. Rates divide by the interval in seconds,
// with a divisor of 1 for intervals under one second.
func ComputeStatistics(durations, records []int64, interval time.Duration, mode MedianMode) report.Statistics {
	var s report.Statistics

	slices.Sort(durations)
	var totalBatchTime int64
	for _, d := range durations {
		totalBatchTime += d
	}
	if n := len(durations); n > 0 {
		s.MeanDurationMillis = float64(totalBatchTime) / float64(n)
		s.MedianDurationMillis = Median(durations, mode)
		s.P95DurationMillis = P95(durations, mode)
	}

	intervalMillis := interval.Milliseconds()
	if intervalMillis > 0 {
		s.ClientUtilizationPercent = 100 * float64(totalBatchTime) / float64(intervalMillis)
	}

	s.TotalOps = int64(len(records))
	if len(records) > 0 {
		s.MinBatchSize, s.MaxBatchSize = records[0], records[0]
		for _, r := range records {
			s.TotalRecords += r
			s.MinBatchSize = min(s.MinBatchSize, r)
			s.MaxBatchSize = max(s.MaxBatchSize, r)
		}
		s.MeanBatchSize = float64(s.TotalRecords) / float64(len(records))
	}

	seconds := float64(intervalMillis) / 1000
	if intervalMillis < 1000 {
		seconds = 1
	}
	s.OpsPerSecond = float64(s.TotalOps) / seconds
	s.RecordsPerSecond = float64(s.TotalRecords) / seconds

	return s
}
