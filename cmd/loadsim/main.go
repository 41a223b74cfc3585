package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"loadsim/internal/collector"
	"loadsim/internal/config"
	"loadsim/internal/coordinator"
	"loadsim/internal/core"
	"loadsim/internal/metrics"
	"loadsim/internal/progress"
	"loadsim/internal/target"
)

const (
	ExitSuccess         = 0
	ExitThresholdFailed = 1
	ExitError           = 2
)

const (
	pingTimeout     = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

var errThresholdFailed = errors.New("threshold check failed")

type options struct {
	configPath   string
	output       string
	quiet        bool
	logLevel     string
	logFormat    string
	metricsAddr  string
	redisAddr    string
	interval     time.Duration
	legacyMedian bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err, os.Stderr))
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "loadsim",
		Short: "Generate paced load against Redis and report throughput and latency",
		Long: `loadsim runs every configured workload on its own pool of workers,
aggregates per-iteration samples into periodic reports and prints a run
summary, optionally checked against thresholds.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file (required)")
	f.StringVarP(&opts.output, "output", "o", "text", "output format: text, json")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress live report lines")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", "text", "log format: text, json")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.StringVar(&opts.redisAddr, "redis-addr", "", "override the Redis address from the config file")
	f.DurationVar(&opts.interval, "interval", 0, "override the report interval from the config file")
	f.BoolVar(&opts.legacyMedian, "legacy-median", false, "use the legacy median and p95 ranks")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// exitCode maps the command result to the process exit status.
func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errThresholdFailed):
		fmt.Fprintln(stderr, "\nThreshold check failed!")
		return ExitThresholdFailed
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}
}

func run(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	if opts.output != "text" && opts.output != "json" {
		return fmt.Errorf("--output must be 'text' or 'json', got %q", opts.output)
	}

	logger, err := newLogger(stderr, opts.logLevel, opts.logFormat)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg, opts)

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err = client.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
	}

	agg := collector.NewAggregator(
		collector.WithLogger(logger),
		collector.WithMedianMode(cfg.MedianModeValue()),
	)
	defer agg.Close()

	works := make([]core.UnitOfWork, len(cfg.Workloads))
	for i, w := range cfg.Workloads {
		if works[i], err = target.New(client, w, cfg.Redis.KeyPrefix); err != nil {
			return fmt.Errorf("workload %q: %w", w.Name, err)
		}
		if w.Drop {
			pattern := target.KeyPrefix(cfg.Redis.KeyPrefix, w.Name) + "*"
			n, err := target.Drop(ctx, client, pattern)
			if err != nil {
				return fmt.Errorf("dropping workload %q: %w", w.Name, err)
			}
			agg.ReportInit(fmt.Sprintf("dropped %d keys matching %s", n, pattern))
		}
	}

	runErr := execute(ctx, cfg, agg, works, logger, opts.quiet, stderr)

	<-agg.ComputeReport()
	agg.Close()

	reports := slices.Collect(agg.AllReports())
	summaries := agg.Summary()
	var thresholds *collector.ThresholdResults
	if cfg.Thresholds != nil {
		thresholds = cfg.Thresholds.Check(summaries)
	}

	if opts.output == "json" {
		collector.FormatJSON(stdout, reports, summaries, thresholds)
	} else {
		collector.FormatText(stdout, summaries, len(reports), thresholds)
	}

	switch {
	case runErr != nil:
		return runErr
	case ctx.Err() != nil:
		// Interrupted runs report what they have and exit cleanly.
		return nil
	case thresholds != nil && !thresholds.Passed:
		return errThresholdFailed
	}
	return nil
}

func applyOverrides(cfg *config.Config, opts *options) {
	if opts.redisAddr != "" {
		cfg.Redis.Addr = opts.redisAddr
	}
	if opts.interval > 0 {
		cfg.ReportInterval = opts.interval
	}
	if opts.legacyMedian {
		cfg.MedianMode = collector.MedianLegacy.String()
	}
	if opts.metricsAddr != "" {
		cfg.MetricsAddr = opts.metricsAddr
	}
}

// execute runs every workload to completion next to the optional metrics
// server. A metrics server failure stops the workloads.
func execute(ctx context.Context, cfg *config.Config, agg *collector.Aggregator, works []core.UnitOfWork, logger *slog.Logger, quiet bool, stderr io.Writer) error {
	coord := coordinator.NewCoordinator(agg, coordinator.WithLogger(logger))
	prog := progress.NewProgress(agg, cfg.ReportInterval, quiet)
	prog.SetOutput(stderr)

	g, gctx := errgroup.WithContext(ctx)
	runDone := make(chan struct{})

	g.Go(func() error {
		defer close(runDone)
		prog.Printf("loadsim starting: %d workloads against %s, reporting every %v",
			len(cfg.Workloads), cfg.Redis.Addr, cfg.ReportInterval)
		prog.Start()
		for i, w := range cfg.Workloads {
			coord.Spawn(gctx, w, works[i])
		}
		coord.Wait()
		prog.Stop()
		return nil
	})

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("serving metrics", slog.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-runDone:
			case <-gctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
