// Package report holds the immutable, timestamped statistics produced by
// each aggregation cycle and the time-ordered history they are kept in.
package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"
)

// Statistics is the per-workload document computed for one interval.
// Durations are in milliseconds. An interval without samples yields the zero
// value.
type Statistics struct {
	OpsPerSecond             float64 `json:"opsPerSecond"`
	RecordsPerSecond         float64 `json:"recordsPerSecond"`
	TotalOps                 int64   `json:"totalOps"`
	TotalRecords             int64   `json:"totalRecords"`
	MeanDurationMillis       float64 `json:"meanDurationMillis"`
	MedianDurationMillis     int64   `json:"medianDurationMillis"`
	P95DurationMillis        int64   `json:"p95DurationMillis"`
	MeanBatchSize            float64 `json:"meanBatchSize"`
	MinBatchSize             int64   `json:"minBatchSize"`
	MaxBatchSize             int64   `json:"maxBatchSize"`
	ClientUtilizationPercent float64 `json:"clientUtilizationPercent"`
	ComputeTimeMillis        int64   `json:"computeTimeMillis"`
}

// Metric names, in report order.
const (
	MetricOpsPerSecond             = "opsPerSecond"
	MetricRecordsPerSecond         = "recordsPerSecond"
	MetricTotalOps                 = "totalOps"
	MetricTotalRecords             = "totalRecords"
	MetricMeanDurationMillis       = "meanDurationMillis"
	MetricMedianDurationMillis     = "medianDurationMillis"
	MetricP95DurationMillis        = "p95DurationMillis"
	MetricMeanBatchSize            = "meanBatchSize"
	MetricMinBatchSize             = "minBatchSize"
	MetricMaxBatchSize             = "maxBatchSize"
	MetricClientUtilizationPercent = "clientUtilizationPercent"
	MetricComputeTimeMillis        = "computeTimeMillis"
)

// MetricNames lists every metric in report order.
var MetricNames = []string{
	MetricOpsPerSecond,
	MetricRecordsPerSecond,
	MetricTotalOps,
	MetricTotalRecords,
	MetricMeanDurationMillis,
	MetricMedianDurationMillis,
	MetricP95DurationMillis,
	MetricMeanBatchSize,
	MetricMinBatchSize,
	MetricMaxBatchSize,
	MetricClientUtilizationPercent,
	MetricComputeTimeMillis,
}

// Values returns the document as a metric name to number mapping.
func (s Statistics) Values() map[string]float64 {
	return map[string]float64{
		MetricOpsPerSecond:             s.OpsPerSecond,
		MetricRecordsPerSecond:         s.RecordsPerSecond,
		MetricTotalOps:                 float64(s.TotalOps),
		MetricTotalRecords:             float64(s.TotalRecords),
		MetricMeanDurationMillis:       s.MeanDurationMillis,
		MetricMedianDurationMillis:     float64(s.MedianDurationMillis),
		MetricP95DurationMillis:        float64(s.P95DurationMillis),
		MetricMeanBatchSize:            s.MeanBatchSize,
		MetricMinBatchSize:             float64(s.MinBatchSize),
		MetricMaxBatchSize:             float64(s.MaxBatchSize),
		MetricClientUtilizationPercent: s.ClientUtilizationPercent,
		MetricComputeTimeMillis:        float64(s.ComputeTimeMillis),
	}
}

// Report is the immutable result of one aggregation cycle.
type Report struct {
	timestamp time.Time
	stats     map[string]Statistics
}

// New creates a Report. The stats map is copied.
func New(timestamp time.Time, stats map[string]Statistics) Report {
	return Report{timestamp: timestamp, stats: maps.Clone(stats)}
}

func (r Report) Timestamp() time.Time {
	return r.timestamp
}

// Workloads returns the workload names in the report, sorted.
func (r Report) Workloads() []string {
	return slices.Sorted(maps.Keys(r.stats))
}

// Stats returns the document for one workload.
func (r Report) Stats(workload string) (Statistics, bool) {
	s, ok := r.stats[workload]
	return s, ok
}

// PerWorkloadStats returns a copy of every workload's document.
func (r Report) PerWorkloadStats() map[string]Statistics {
	return maps.Clone(r.stats)
}

type reportJSON struct {
	Timestamp        time.Time             `json:"timestamp"`
	PerWorkloadStats map[string]Statistics `json:"perWorkloadStats"`
}

func (r Report) MarshalJSON() ([]byte, error) {
	stats := r.stats
	if stats == nil {
		stats = map[string]Statistics{}
	}
	return json.Marshal(reportJSON{Timestamp: r.timestamp, PerWorkloadStats: stats})
}

func (r *Report) UnmarshalJSON(data []byte) error {
	var v reportJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = New(v.Timestamp, v.PerWorkloadStats)
	return nil
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "report %s", r.timestamp.Format(time.RFC3339Nano))
	for _, name := range r.Workloads() {
		s := r.stats[name]
		fmt.Fprintf(&b, " %s{ops/s=%.1f records/s=%.1f total=%d mean=%.2fms p50=%dms p95=%dms util=%.1f%%}",
			name, s.OpsPerSecond, s.RecordsPerSecond, s.TotalOps,
			s.MeanDurationMillis, s.MedianDurationMillis, s.P95DurationMillis,
			s.ClientUtilizationPercent)
	}
	return b.String()
}

// LogValue groups the report by workload for structured logging.
func (r Report) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(r.stats)+1)
	attrs = append(attrs, slog.Time("timestamp", r.timestamp))
	for _, name := range r.Workloads() {
		s := r.stats[name]
		attrs = append(attrs, slog.Group(name,
			slog.Float64(MetricOpsPerSecond, s.OpsPerSecond),
			slog.Float64(MetricRecordsPerSecond, s.RecordsPerSecond),
			slog.Int64(MetricTotalOps, s.TotalOps),
			slog.Int64(MetricTotalRecords, s.TotalRecords),
			slog.Float64(MetricMeanDurationMillis, s.MeanDurationMillis),
			slog.Int64(MetricMedianDurationMillis, s.MedianDurationMillis),
			slog.Int64(MetricP95DurationMillis, s.P95DurationMillis),
			slog.Float64(MetricMeanBatchSize, s.MeanBatchSize),
			slog.Int64(MetricMinBatchSize, s.MinBatchSize),
			slog.Int64(MetricMaxBatchSize, s.MaxBatchSize),
			slog.Float64(MetricClientUtilizationPercent, s.ClientUtilizationPercent),
			slog.Int64(MetricComputeTimeMillis, s.ComputeTimeMillis),
		))
	}
	return slog.GroupValue(attrs...)
}
