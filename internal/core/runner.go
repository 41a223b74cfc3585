package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"loadsim/internal/metrics"
)

// State is the lifecycle state of a Runner.
type State int32

const (
	StateRunning State = iota
	StateSleeping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// RunnerConfig controls execution behavior of one worker.
type RunnerConfig struct {
	Workload    string
	StopAfter   int64         // 0 = unlimited iterations
	MaxDuration time.Duration // 0 = unlimited wall-clock time
	Pace        time.Duration // 0 = unpaced
	Variables   map[string]string
}

func (c RunnerConfig) normalize() RunnerConfig {
	if c.StopAfter < 0 {
		c.StopAfter = 0
	}
	if c.MaxDuration < 0 {
		c.MaxDuration = 0
	}
	if c.Pace < 0 {
		c.Pace = 0
	}
	return c
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Throttle gates the start of each iteration, e.g. a shared rate limiter.
type Throttle interface {
	Wait(ctx context.Context) error
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

func WithClock(clock Clock) RunnerOption {
	return func(r *Runner) { r.clock = clock }
}

func WithSleep(sleep SleepFunc) RunnerOption {
	return func(r *Runner) { r.sleep = sleep }
}

// WithThrottle makes the Runner wait on t before every iteration. The wait
// is not part of the measured duration.
func WithThrottle(t Throttle) RunnerOption {
	return func(r *Runner) { r.throttle = t }
}

func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner drives one worker: it repeats a unit of work, forwards each
// iteration's sample to a Recorder, paces iterations to a fixed period and
// stops on iteration count, wall-clock duration or context cancellation.
// A Runner is NOT safe for concurrent use; each worker goroutine must have its own Runner.
type Runner struct {
	work     UnitOfWork
	recorder Recorder
	workerID int
	config   RunnerConfig
	clock    Clock
	sleep    SleepFunc
	throttle Throttle
	logger   *slog.Logger
	vars     *MapVariables

	iteration    int64
	startTime    time.Time
	lastDuration time.Duration
	state        atomic.Int32
}

// NewRunner creates a Runner for a single worker.
func NewRunner(work UnitOfWork, recorder Recorder, workerID int, config RunnerConfig, opts ...RunnerOption) *Runner {
	if recorder == nil {
		recorder = NullRecorder
	}
	r := &Runner{
		work:     work,
		recorder: recorder,
		workerID: workerID,
		config:   config.normalize(),
		clock:    RealClock{},
		sleep:    Sleep,
		logger:   slog.Default(),
		vars:     NewVariables(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(slog.String("workload", r.config.Workload), slog.Int("worker", workerID))
	return r
}

// Run executes iterations until a stop condition holds. Iteration failures
// are logged and never end the loop.
func (r *Runner) Run(ctx context.Context) {
	r.state.Store(int32(StateRunning))
	defer r.state.Store(int32(StateStopped))

	ctx = ContextWithWorkerID(ctx, r.workerID)
	r.startTime = r.clock.Now()

	for ctx.Err() == nil {
		if r.throttle != nil {
			if err := r.throttle.Wait(ctx); err != nil {
				if ctx.Err() == nil {
					r.logger.Error("throttle wait failed", slog.Any("error", err))
				}
				return
			}
		}

		_ = r.RunIteration(ctx)

		if r.shouldStop(ctx) {
			r.logger.Info("workload stopping", slog.Int64("iterations", r.iteration))
			return
		}

		if err := r.pace(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("pacing failed", slog.Any("error", err))
		}
	}
}

// RunIteration executes one iteration: bind the iteration context, run the
// unit of work, forward the sample and clear the bindings. The returned
// error is informational; the iteration counter advances either way.
func (r *Runner) RunIteration(ctx context.Context) error {
	if r.startTime.IsZero() {
		r.startTime = r.clock.Now()
	}

	r.vars.SetAll(r.config.Variables)
	r.vars.Set(VarWorkload, r.config.Workload)
	r.vars.Set(VarIteration, r.iteration)
	defer r.vars.Clear()
	defer func() { r.iteration++ }()

	start := r.clock.Now()
	records, err := r.do(ctx)
	r.lastDuration = r.clock.Since(start)

	if err != nil {
		metrics.Iterations.WithLabelValues(r.config.Workload, "error").Inc()
		r.logger.Error("error caught in execution",
			slog.Int64("iteration", r.iteration),
			slog.Duration("duration", r.lastDuration),
			slog.Any("error", err))
		return err
	}

	metrics.Iterations.WithLabelValues(r.config.Workload, "ok").Inc()
	s := Sample{Records: records, DurationMillis: Millis(r.lastDuration)}.Normalize()
	r.recorder.Record(r.config.Workload, s.Records, s.DurationMillis)
	return nil
}

func (r *Runner) do(ctx context.Context) (records int64, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return r.work.Do(ctx, r.vars)
}

func (r *Runner) shouldStop(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	if r.config.StopAfter > 0 && r.iteration >= r.config.StopAfter {
		return true
	}
	if r.config.MaxDuration > 0 && r.clock.Since(r.startTime) >= r.config.MaxDuration {
		return true
	}
	return false
}

// pace sleeps for the remainder of the pacing period. Iterations longer
// than the period are not compensated.
func (r *Runner) pace(ctx context.Context) (err error) {
	if r.config.Pace <= 0 {
		return nil
	}
	wait := r.config.Pace - r.lastDuration
	if wait <= 0 {
		return nil
	}

	r.state.Store(int32(StateSleeping))
	defer r.state.Store(int32(StateRunning))
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return r.sleep(ctx, wait)
}

// Iteration returns the number of completed iterations.
func (r *Runner) Iteration() int64 {
	return r.iteration
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// LastDuration returns the duration of the most recent iteration.
func (r *Runner) LastDuration() time.Duration {
	return r.lastDuration
}
