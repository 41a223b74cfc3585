package collector

import (
	"fmt"
	"slices"
	"time"
)

// Thresholds defines pass/fail criteria applied to every workload's run
// summary. Zero values are not checked.
type Thresholds struct {
	Mean            time.Duration `yaml:"mean"`
	P95             time.Duration `yaml:"p95"`
	P99             time.Duration `yaml:"p99"`
	MinOpsPerSecond float64       `yaml:"minOpsPerSecond"`
}

// ThresholdResult represents the outcome of a single threshold check.
type ThresholdResult struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
}

// ThresholdResults contains all threshold check results.
type ThresholdResults struct {
	Passed  bool              `json:"passed"`
	Results []ThresholdResult `json:"results"`
}

// Check evaluates all thresholds against the run summaries, workloads in
// name order.
func (t *Thresholds) Check(summaries map[string]Summary) *ThresholdResults {
	if t == nil {
		return &ThresholdResults{Passed: true, Results: nil}
	}

	results := &ThresholdResults{
		Passed:  true,
		Results: make([]ThresholdResult, 0),
	}

	names := make([]string, 0, len(summaries))
	for name := range summaries {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		s := summaries[name]
		results.checkDurationThresholds(name, t, s.Duration)
		if t.MinOpsPerSecond > 0 {
			results.add(ThresholdResult{
				Name:      name + ".ops_per_second",
				Passed:    s.OpsPerSecond >= t.MinOpsPerSecond,
				Threshold: fmt.Sprintf(">= %.1f", t.MinOpsPerSecond),
				Actual:    fmt.Sprintf("%.1f", s.OpsPerSecond),
			})
		}
	}

	return results
}

func (r *ThresholdResults) checkDurationThresholds(workload string, t *Thresholds, actual DurationSummary) {
	checks := []struct {
		name      string
		threshold time.Duration
		actual    time.Duration
	}{
		{"duration.mean", t.Mean, time.Duration(actual.Mean * float64(time.Millisecond))},
		{"duration.p95", t.P95, time.Duration(actual.P95) * time.Millisecond},
		{"duration.p99", t.P99, time.Duration(actual.P99) * time.Millisecond},
	}

	for _, check := range checks {
		if check.threshold == 0 {
			continue
		}
		r.add(ThresholdResult{
			Name:      workload + "." + check.name,
			Passed:    check.actual < check.threshold,
			Threshold: "< " + FormatDuration(check.threshold),
			Actual:    FormatDuration(check.actual),
		})
	}
}

func (r *ThresholdResults) add(result ThresholdResult) {
	if !result.Passed {
		r.Passed = false
	}
	r.Results = append(r.Results, result)
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// Violations returns only the failed threshold results.
func (r *ThresholdResults) Violations() []ThresholdResult {
	violations := make([]ThresholdResult, 0)
	for _, result := range r.Results {
		if !result.Passed {
			violations = append(violations, result)
		}
	}
	return violations
}
