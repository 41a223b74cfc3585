// Package config handles YAML configuration parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"loadsim/internal/collector"
	"loadsim/internal/core"

	"gopkg.in/yaml.v3"
)

const (
	DefaultReportInterval = time.Second
	DefaultRedisAddr      = "localhost:6379"
	DefaultKeyPrefix      = "loadsim:"
)

// Supported workload operations.
const (
	OpInsert = "insert"
	OpFind   = "find"
	OpUpdate = "update"
)

var (
	ErrNoWorkloads       = errors.New("no workloads configured")
	ErrDuplicateWorkload = errors.New("duplicate workload name")
	ErrUnknownOp         = errors.New("unknown workload op")
	ErrUnnamedWorkload   = errors.New("workload without a name")
)

// Config is the root configuration structure.
type Config struct {
	ReportInterval time.Duration         `yaml:"reportInterval"`
	MedianMode     string                `yaml:"medianMode,omitempty"`
	MetricsAddr    string                `yaml:"metricsAddr,omitempty"`
	Redis          RedisConfig           `yaml:"redis"`
	Thresholds     *collector.Thresholds `yaml:"thresholds,omitempty"`
	Workloads      []Workload            `yaml:"workloads"`
}

// RedisConfig describes the target database.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password,omitempty"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// Workload is one named workload: a target operation repeated by Threads
// workers.
type Workload struct {
	Name      string            `yaml:"name"`
	Op        string            `yaml:"op"`
	Threads   int               `yaml:"threads"`
	Pace      time.Duration     `yaml:"pace"`
	Batch     int               `yaml:"batch"`
	StopAfter int64             `yaml:"stopAfter"`
	Duration  time.Duration     `yaml:"duration"`
	RateLimit int               `yaml:"rateLimit"` // ops/s across all threads, 0 = unlimited
	Drop      bool              `yaml:"drop"`
	Key       string            `yaml:"key,omitempty"`
	Variables map[string]string `yaml:"variables,omitempty"`
	Template  map[string]string `yaml:"template,omitempty"`
}

// RunnerConfig returns the per-worker execution settings of w.
func (w Workload) RunnerConfig() core.RunnerConfig {
	return core.RunnerConfig{
		Workload:    w.Name,
		StopAfter:   w.StopAfter,
		MaxDuration: w.Duration,
		Pace:        w.Pace,
		Variables:   w.Variables,
	}
}

// LoadConfig reads, parses and normalizes a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and normalizes YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize fills defaults, clamps negative values and validates the
// workload list.
func (c *Config) Normalize() error {
	if c.ReportInterval <= 0 {
		c.ReportInterval = DefaultReportInterval
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = DefaultRedisAddr
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = DefaultKeyPrefix
	}
	if _, err := collector.ParseMedianMode(c.MedianMode); err != nil {
		return err
	}

	if len(c.Workloads) == 0 {
		return ErrNoWorkloads
	}
	seen := make(map[string]struct{}, len(c.Workloads))
	for i := range c.Workloads {
		w := &c.Workloads[i]
		if w.Name == "" {
			return fmt.Errorf("workload %d: %w", i, ErrUnnamedWorkload)
		}
		if _, dup := seen[w.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateWorkload, w.Name)
		}
		seen[w.Name] = struct{}{}
		if err := w.normalize(); err != nil {
			return fmt.Errorf("workload %q: %w", w.Name, err)
		}
	}
	return nil
}

func (w *Workload) normalize() error {
	switch w.Op {
	case "":
		w.Op = OpInsert
	case OpInsert, OpFind, OpUpdate:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, w.Op)
	}
	w.Threads = max(w.Threads, 1)
	w.Batch = max(w.Batch, 1)
	w.Pace = max(w.Pace, 0)
	w.StopAfter = max(w.StopAfter, 0)
	w.Duration = max(w.Duration, 0)
	w.RateLimit = max(w.RateLimit, 0)
	return nil
}

// MedianModeValue returns the parsed median mode. Normalize has already
// rejected invalid values.
func (c *Config) MedianModeValue() collector.MedianMode {
	m, _ := collector.ParseMedianMode(c.MedianMode)
	return m
}
