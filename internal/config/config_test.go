package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loadsim/internal/collector"
)

func TestLoadConfig_FullWorkload(t *testing.T) {
	content := `
reportInterval: 2s
medianMode: legacy
redis:
  addr: redis:6380
  db: 3
  keyPrefix: "bench:"
thresholds:
  p95: 50ms
  minOpsPerSecond: 100
workloads:
  - name: insert
    op: insert
    threads: 4
    pace: 100ms
    batch: 10
    stopAfter: 1000
    duration: 30s
    rateLimit: 200
    drop: true
    key: "user:${uuid()}"
    variables:
      tenant: acme
    template:
      name: "${random_string(8)}"
      tenant: "${tenant}"
`
	cfg := loadConfigFromString(t, content)

	assert.Equal(t, 2*time.Second, cfg.ReportInterval)
	assert.Equal(t, collector.MedianLegacy, cfg.MedianModeValue())
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "bench:", cfg.Redis.KeyPrefix)
	require.NotNil(t, cfg.Thresholds)
	assert.Equal(t, 50*time.Millisecond, cfg.Thresholds.P95)
	assert.Equal(t, 100.0, cfg.Thresholds.MinOpsPerSecond)

	require.Len(t, cfg.Workloads, 1)
	w := cfg.Workloads[0]
	assert.Equal(t, "insert", w.Name)
	assert.Equal(t, OpInsert, w.Op)
	assert.Equal(t, 4, w.Threads)
	assert.Equal(t, 10, w.Batch)
	assert.Equal(t, 200, w.RateLimit)
	assert.True(t, w.Drop)
	assert.Equal(t, "user:${uuid()}", w.Key)
	assert.Equal(t, map[string]string{"tenant": "acme"}, w.Variables)
	assert.Equal(t, "${tenant}", w.Template["tenant"])

	rc := w.RunnerConfig()
	assert.Equal(t, "insert", rc.Workload)
	assert.Equal(t, int64(1000), rc.StopAfter)
	assert.Equal(t, 30*time.Second, rc.MaxDuration)
	assert.Equal(t, 100*time.Millisecond, rc.Pace)
	assert.Equal(t, w.Variables, rc.Variables)
}

func TestLoadConfig_Defaults(t *testing.T) {
	content := `
workloads:
  - name: find
    op: find
  - name: plain
`
	cfg := loadConfigFromString(t, content)

	assert.Equal(t, DefaultReportInterval, cfg.ReportInterval)
	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
	assert.Equal(t, DefaultKeyPrefix, cfg.Redis.KeyPrefix)
	assert.Equal(t, collector.MedianNearestRank, cfg.MedianModeValue())
	assert.Nil(t, cfg.Thresholds)

	require.Len(t, cfg.Workloads, 2)
	assert.Equal(t, 1, cfg.Workloads[0].Threads)
	assert.Equal(t, 1, cfg.Workloads[0].Batch)
	assert.Equal(t, OpInsert, cfg.Workloads[1].Op)
}

func TestLoadConfig_NegativeValuesClamped(t *testing.T) {
	content := `
workloads:
  - name: w
    threads: -2
    batch: -1
    pace: -100ms
    stopAfter: -5
    duration: -1s
    rateLimit: -10
`
	cfg := loadConfigFromString(t, content)

	w := cfg.Workloads[0]
	assert.Equal(t, 1, w.Threads)
	assert.Equal(t, 1, w.Batch)
	assert.Zero(t, w.Pace)
	assert.Zero(t, w.StopAfter)
	assert.Zero(t, w.Duration)
	assert.Zero(t, w.RateLimit)
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"no workloads", "reportInterval: 1s\n", ErrNoWorkloads},
		{"empty file", "", ErrNoWorkloads},
		{"duplicate", "workloads:\n  - name: a\n  - name: a\n", ErrDuplicateWorkload},
		{"unknown op", "workloads:\n  - name: a\n    op: upsert\n", ErrUnknownOp},
		{"unnamed", "workloads:\n  - op: find\n", ErrUnnamedWorkload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(createTempFile(t, tt.content))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfig_InvalidMedianMode(t *testing.T) {
	_, err := Parse([]byte("medianMode: mean\nworkloads:\n  - name: a\n"))
	assert.ErrorContains(t, err, "unknown median mode")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	content := `
workloads:
  - name: "Invalid
    op: [[[invalid
`
	_, err := LoadConfig(createTempFile(t, content))
	assert.ErrorContains(t, err, "parsing config file")
}

// Helper functions

func loadConfigFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := LoadConfig(createTempFile(t, content))
	require.NoError(t, err, "failed to load config")
	return cfg
}

func createTempFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))
	return tmpFile
}
