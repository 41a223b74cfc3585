package collector

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// maxTrackedMillis is the largest duration the run histograms resolve;
// longer samples are recorded as this value.
const maxTrackedMillis = int64(time.Hour / time.Millisecond)

// Summary describes one workload over the whole run, across every report.
type Summary struct {
	Workload         string          `json:"workload"`
	TotalOps         int64           `json:"totalOps"`
	TotalRecords     int64           `json:"totalRecords"`
	OpsPerSecond     float64         `json:"opsPerSecond"`
	RecordsPerSecond float64         `json:"recordsPerSecond"`
	Elapsed          time.Duration   `json:"-"`
	Duration         DurationSummary `json:"durationMillis"`
}

// DurationSummary contains run-level latency quantiles in milliseconds.
type DurationSummary struct {
	Min  int64   `json:"min"`
	Mean float64 `json:"mean"`
	P50  int64   `json:"p50"`
	P95  int64   `json:"p95"`
	P99  int64   `json:"p99"`
	Max  int64   `json:"max"`
}

type runTotals struct {
	hist    *hdrhistogram.Histogram
	ops     int64
	records int64
}

func newRunTotals() *runTotals {
	return &runTotals{hist: hdrhistogram.New(1, maxTrackedMillis, 3)}
}

func (t *runTotals) add(s *Sink) {
	for _, d := range s.durations {
		_ = t.hist.RecordValue(min(d, maxTrackedMillis))
	}
	for _, r := range s.records {
		t.records += r
	}
	t.ops += s.ops
}

func (t *runTotals) summary(workload string, elapsed time.Duration) Summary {
	s := Summary{
		Workload:     workload,
		TotalOps:     t.ops,
		TotalRecords: t.records,
		Elapsed:      elapsed,
	}
	if elapsed > 0 {
		s.OpsPerSecond = float64(t.ops) / elapsed.Seconds()
		s.RecordsPerSecond = float64(t.records) / elapsed.Seconds()
	}
	if t.hist.TotalCount() > 0 {
		s.Duration = DurationSummary{
			Min:  t.hist.Min(),
			Mean: t.hist.Mean(),
			P50:  t.hist.ValueAtQuantile(50),
			P95:  t.hist.ValueAtQuantile(95),
			P99:  t.hist.ValueAtQuantile(99),
			Max:  t.hist.Max(),
		}
	}
	return s
}
