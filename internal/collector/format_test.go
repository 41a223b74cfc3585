package collector

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loadsim/internal/report"
)

func TestFormatReportLine(t *testing.T) {
	r := report.New(testStart, map[string]report.Statistics{
		"insert": {OpsPerSecond: 12.5, P95DurationMillis: 40, ClientUtilizationPercent: 50},
		"find":   {OpsPerSecond: 3},
	})
	var buf bytes.Buffer

	FormatReportLine(&buf, 75*time.Second, r)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "[01:15] find")
	assert.Contains(t, string(lines[1]), "[01:15] insert")
	assert.Contains(t, string(lines[1]), "p95:    40ms")
	assert.Contains(t, string(lines[1]), "util:  50.0%")
}

func TestFormatText(t *testing.T) {
	summaries := map[string]Summary{
		"insert": {
			Workload:     "insert",
			TotalOps:     1234567,
			TotalRecords: 42,
			OpsPerSecond: 100,
			Elapsed:      10 * time.Second,
			Duration:     DurationSummary{Min: 1, Mean: 2.5, P50: 2, P95: 5, P99: 9, Max: 12},
		},
	}
	res := (&Thresholds{P95: time.Millisecond}).Check(summaries)
	var buf bytes.Buffer

	FormatText(&buf, summaries, 3, res)

	out := buf.String()
	assert.Contains(t, out, "Reports: 3")
	assert.Contains(t, out, "insert:")
	assert.Contains(t, out, "Total ops:     1,234,567")
	assert.Contains(t, out, "p95=5ms")
	assert.Contains(t, out, "✗ insert.duration.p95 < 1ms (actual: 5ms)")
}

func TestFormatText_Empty(t *testing.T) {
	var buf bytes.Buffer
	FormatText(&buf, nil, 0, nil)
	assert.Equal(t, "No samples collected\n", buf.String())
}

func TestFormatJSON(t *testing.T) {
	reports := []report.Report{
		report.New(testStart, map[string]report.Statistics{"w": {TotalOps: 2}}),
	}
	summaries := map[string]Summary{"w": {Workload: "w", TotalOps: 2}}
	var buf bytes.Buffer

	FormatJSON(&buf, reports, summaries, nil)

	var decoded struct {
		Reports []json.RawMessage  `json:"reports"`
		Summary map[string]Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded.Reports, 1)
	assert.Equal(t, int64(2), decoded.Summary["w"].TotalOps)
	assert.NotContains(t, buf.String(), "thresholds")
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "12,005,001", formatNumber(12005001))
}
