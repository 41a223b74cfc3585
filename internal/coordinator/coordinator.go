// Package coordinator supervises the workers of every workload: it starts
// one Runner per thread, shares the workload's rate limit between them and
// tracks how many are still running.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"loadsim/internal/config"
	"loadsim/internal/core"
	"loadsim/internal/metrics"
	"loadsim/internal/ratelimit"
)

// Registrar is implemented by recorders that want to know about a workload
// before its first sample.
type Registrar interface {
	Register(workload string)
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRunnerOptions applies opts to every Runner the Coordinator creates.
func WithRunnerOptions(opts ...core.RunnerOption) Option {
	return func(c *Coordinator) { c.runnerOpts = append(c.runnerOpts, opts...) }
}

type Coordinator struct {
	recorder   core.Recorder
	logger     *slog.Logger
	runnerOpts []core.RunnerOption

	nextID      atomic.Int64
	wg          sync.WaitGroup
	activeCount atomic.Int32

	mu      sync.Mutex
	cancels []context.CancelFunc
}

func NewCoordinator(recorder core.Recorder, opts ...Option) *Coordinator {
	if recorder == nil {
		recorder = core.NullRecorder
	}
	c := &Coordinator{
		recorder: recorder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Spawn starts w.Threads workers repeating work and returns immediately.
// The workers stop on their own stop conditions, on ctx cancellation or on
// Stop.
func (c *Coordinator) Spawn(ctx context.Context, w config.Workload, work core.UnitOfWork) {
	if r, ok := c.recorder.(Registrar); ok {
		r.Register(w.Name)
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancels = append(c.cancels, cancel)
	c.mu.Unlock()

	opts := append(slices.Clone(c.runnerOpts), core.WithLogger(c.logger))
	if limiter := ratelimit.ForWorkload(w.RateLimit); limiter != nil {
		opts = append(opts, core.WithThrottle(limiter))
	}

	threads := max(w.Threads, 1)
	var workload sync.WaitGroup
	for i := 0; i < threads; i++ {
		id := int(c.nextID.Add(1))
		runner := core.NewRunner(work, c.recorder, id, w.RunnerConfig(), opts...)

		c.wg.Add(1)
		workload.Add(1)
		c.activeCount.Add(1)
		metrics.ActiveWorkers.WithLabelValues(w.Name).Inc()
		go func() {
			defer func() {
				metrics.ActiveWorkers.WithLabelValues(w.Name).Dec()
				c.activeCount.Add(-1)
				workload.Done()
				c.wg.Done()
			}()
			defer c.recoverPanic(w.Name, id)
			runner.Run(ctx)
		}()
	}

	c.logger.Info("workload started",
		slog.String("workload", w.Name),
		slog.String("op", w.Op),
		slog.Int("threads", threads))

	go func() {
		workload.Wait()
		cancel()
		c.logger.Info("workload finished", slog.String("workload", w.Name))
	}()
}

// Wait blocks until every spawned worker has stopped.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Stop asks every worker to stop after its current iteration.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
}

// ActiveWorkers returns the number of workers still running.
func (c *Coordinator) ActiveWorkers() int {
	return int(c.activeCount.Load())
}

// recoverPanic keeps a worker failure outside an iteration from taking the
// process down.
func (c *Coordinator) recoverPanic(workload string, workerID int) {
	if r := recover(); r != nil {
		c.logger.Error("worker crashed",
			slog.String("workload", workload),
			slog.Int("worker", workerID),
			slog.Any("error", fmt.Errorf("panic: %v", r)))
	}
}
