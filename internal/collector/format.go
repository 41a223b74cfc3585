package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"loadsim/internal/report"
)

// FormatReportLine writes one line per workload of r, for live progress.
func FormatReportLine(w io.Writer, elapsed time.Duration, r report.Report) {
	elapsed = elapsed.Round(time.Second)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	for _, name := range r.Workloads() {
		s, _ := r.Stats(name)
		fmt.Fprintf(w, "[%02d:%02d] %-15s ops/s: %8.1f | records/s: %9.1f | mean: %7.2fms | p95: %5dms | util: %5.1f%%\n",
			mins, secs, name, s.OpsPerSecond, s.RecordsPerSecond,
			s.MeanDurationMillis, s.P95DurationMillis, s.ClientUtilizationPercent)
	}
}

// FormatText writes the run summary in human-readable format.
func FormatText(w io.Writer, summaries map[string]Summary, reports int, thresholds *ThresholdResults) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No samples collected")
		return
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "loadsim - Run Summary")
	fmt.Fprintln(w, "=====================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Reports: %d\n", reports)

	for _, name := range sortedNames(summaries) {
		s := summaries[name]
		fmt.Fprintln(w, "")
		fmt.Fprintf(w, "%s:\n", name)
		fmt.Fprintf(w, "  Duration:      %v\n", s.Elapsed.Round(time.Millisecond))
		fmt.Fprintf(w, "  Total ops:     %s\n", formatNumber(s.TotalOps))
		fmt.Fprintf(w, "  Total records: %s\n", formatNumber(s.TotalRecords))
		fmt.Fprintf(w, "  Ops/sec:       %.1f\n", s.OpsPerSecond)
		fmt.Fprintf(w, "  Records/sec:   %.1f\n", s.RecordsPerSecond)
		fmt.Fprintf(w, "  Latency:       min=%dms mean=%.2fms p50=%dms p95=%dms p99=%dms max=%dms\n",
			s.Duration.Min, s.Duration.Mean, s.Duration.P50, s.Duration.P95, s.Duration.P99, s.Duration.Max)
	}

	if thresholds != nil && len(thresholds.Results) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Thresholds:")
		for _, result := range thresholds.Results {
			symbol := "✓"
			if !result.Passed {
				symbol = "✗"
			}
			fmt.Fprintf(w, "  %s %s %s (actual: %s)\n",
				symbol, result.Name, result.Threshold, result.Actual)
		}
	}
}

// FormatJSON writes the report history and run summary in JSON format.
func FormatJSON(w io.Writer, reports []report.Report, summaries map[string]Summary, thresholds *ThresholdResults) {
	if reports == nil {
		reports = []report.Report{}
	}
	output := struct {
		Reports    []report.Report    `json:"reports"`
		Summary    map[string]Summary `json:"summary"`
		Thresholds *ThresholdResults  `json:"thresholds,omitempty"`
	}{
		Reports:    reports,
		Summary:    summaries,
		Thresholds: thresholds,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output) // stdout errors are unrecoverable
}

func sortedNames(summaries map[string]Summary) []string {
	names := make([]string, 0, len(summaries))
	for name := range summaries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return formatNumber(n/1000) + fmt.Sprintf(",%03d", n%1000)
}
