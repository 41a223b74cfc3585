package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loadsim/internal/config"
)

func TestExitCode(t *testing.T) {
	var stderr bytes.Buffer

	assert.Equal(t, ExitSuccess, exitCode(nil, &stderr))
	assert.Empty(t, stderr.String())

	assert.Equal(t, ExitThresholdFailed, exitCode(errThresholdFailed, &stderr))
	assert.Contains(t, stderr.String(), "Threshold check failed!")

	stderr.Reset()
	assert.Equal(t, ExitError, exitCode(errors.New("boom"), &stderr))
	assert.Equal(t, "error: boom\n", stderr.String())
}

func TestNewLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", slog.String("workload", "insert"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"workload":"insert"`)
}

func TestNewLogger_InvalidInput(t *testing.T) {
	_, err := newLogger(&bytes.Buffer{}, "loud", "text")
	assert.ErrorContains(t, err, "--log-level")

	_, err = newLogger(&bytes.Buffer{}, "info", "xml")
	assert.ErrorContains(t, err, "--log-format")
}

func TestApplyOverrides(t *testing.T) {
	cfg := &config.Config{ReportInterval: time.Second, Redis: config.RedisConfig{Addr: "a:1"}}

	applyOverrides(cfg, &options{})
	assert.Equal(t, "a:1", cfg.Redis.Addr)
	assert.Equal(t, time.Second, cfg.ReportInterval)

	applyOverrides(cfg, &options{redisAddr: "b:2", interval: 5 * time.Second, legacyMedian: true, metricsAddr: ":9100"})
	assert.Equal(t, "b:2", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Second, cfg.ReportInterval)
	assert.Equal(t, "legacy", cfg.MedianMode)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
}

func TestRootCmd_RequiresConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs(nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, `"config" not set`)
}

func TestRun_RejectsUnknownOutput(t *testing.T) {
	err := run(context.Background(), &options{output: "yaml"}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "--output")
}

func TestRun_ConfigErrors(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	path := filepath.Join(t.TempDir(), "loadsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reportInterval: 1s\n"), 0644))

	err := run(context.Background(), &options{configPath: path, output: "text", logLevel: "info"},
		&bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, config.ErrNoWorkloads)
}
