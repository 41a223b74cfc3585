package collector

import (
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"loadsim/internal/core"
	"loadsim/internal/metrics"
	"loadsim/internal/report"
)

type opKind int

const (
	opSample opKind = iota
	opRegister
	opCompute
)

// op is one entry of the aggregator mailbox.
type op struct {
	kind     opKind
	workload string
	sample   core.Sample
	result   chan report.Report
}

// Option configures an Aggregator.
type Option func(*Aggregator)

func WithClock(clock core.Clock) Option {
	return func(a *Aggregator) { a.clock = clock }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithMedianMode(mode MedianMode) Option {
	return func(a *Aggregator) { a.mode = mode }
}

// Aggregator collects samples from any number of workers and turns them into
// periodic reports. Every sink mutation, sample ingestion and swap alike,
// runs on a single goroutine fed by an unbounded mailbox, so producers never
// wait for a computation and never lose track of the current sink.
type Aggregator struct {
	clock  core.Clock
	logger *slog.Logger
	mode   MedianMode

	mu     sync.Mutex
	queue  []op
	closed bool
	wake   chan struct{}
	done   chan struct{}

	history *report.History

	// Owned by the aggregation goroutine.
	sinks       map[string]*Sink
	registered  map[string]struct{}
	lastCompute time.Time
	lastStamp   time.Time

	totalsMu sync.RWMutex
	totals   map[string]*runTotals
	started  time.Time
	elapsed  time.Duration
}

// NewAggregator creates an Aggregator and starts its aggregation goroutine.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		clock:      core.RealClock{},
		logger:     slog.Default(),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		history:    report.NewHistory(),
		sinks:      make(map[string]*Sink),
		registered: make(map[string]struct{}),
		totals:     make(map[string]*runTotals),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.started = a.clock.Now()
	a.lastCompute = a.started
	go a.loop()
	return a
}

// ReportInit logs an initialisation message.
func (a *Aggregator) ReportInit(message string) {
	a.logger.Info("init", slog.String("message", message))
}

// Register creates the workload's sink so it appears in every report, with
// zero statistics when idle.
func (a *Aggregator) Register(workload string) {
	if workload == "" {
		return
	}
	a.enqueue(op{kind: opRegister, workload: workload})
}

// Record queues one sample. It never blocks on report computation. Negative
// values are recorded as zero; samples without a workload name are ignored.
func (a *Aggregator) Record(workload string, records, durationMillis int64) {
	if workload == "" {
		return
	}
	sample := core.Sample{Records: records, DurationMillis: durationMillis}.Normalize()
	if !a.enqueue(op{kind: opSample, workload: workload, sample: sample}) {
		metrics.SamplesDropped.Inc()
		return
	}
	metrics.SamplesRecorded.WithLabelValues(workload).Inc()
}

// ComputeReport queues one aggregation cycle. The returned channel receives
// the new report once it has been appended to the history; callers are free
// to ignore it. After Close the channel is closed without a value.
func (a *Aggregator) ComputeReport() <-chan report.Report {
	result := make(chan report.Report, 1)
	if !a.enqueue(op{kind: opCompute, result: result}) {
		close(result)
	}
	return result
}

// AllReports yields every report in ascending timestamp order.
func (a *Aggregator) AllReports() iter.Seq[report.Report] {
	return a.history.All()
}

// ReportsSince yields the reports strictly after t.
func (a *Aggregator) ReportsSince(t time.Time) iter.Seq[report.Report] {
	return a.history.Since(t)
}

// History returns the report history.
func (a *Aggregator) History() *report.History {
	return a.history
}

// Backlog returns the number of queued operations.
func (a *Aggregator) Backlog() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// Summary returns run-level statistics per workload, covering every sample
// included in a computed report so far.
func (a *Aggregator) Summary() map[string]Summary {
	a.totalsMu.RLock()
	defer a.totalsMu.RUnlock()
	out := make(map[string]Summary, len(a.totals))
	for name, t := range a.totals {
		out[name] = t.summary(name, a.elapsed)
	}
	return out
}

// Close processes every queued operation and stops the aggregation
// goroutine. Samples recorded afterwards are dropped.
func (a *Aggregator) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.signal()
	<-a.done
}

func (a *Aggregator) enqueue(o op) bool {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false
	}
	a.queue = append(a.queue, o)
	backlog := len(a.queue)
	a.mu.Unlock()

	metrics.AggregatorBacklog.Set(float64(backlog))
	a.signal()
	return true
}

func (a *Aggregator) signal() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *Aggregator) loop() {
	defer close(a.done)

	var batch []op
	for {
		a.mu.Lock()
		batch, a.queue = a.queue, batch[:0]
		closed := a.closed
		a.mu.Unlock()
		metrics.AggregatorBacklog.Set(0)

		for i := range batch {
			a.apply(batch[i])
			batch[i] = op{}
		}

		if len(batch) == 0 {
			if closed {
				return
			}
			<-a.wake
		}
	}
}

func (a *Aggregator) apply(o op) {
	switch o.kind {
	case opSample:
		a.sink(o.workload).Add(o.sample)
	case opRegister:
		a.registered[o.workload] = struct{}{}
		a.sink(o.workload)
	case opCompute:
		r := a.compute()
		o.result <- r
		close(o.result)
	}
}

func (a *Aggregator) sink(workload string) *Sink {
	s, ok := a.sinks[workload]
	if !ok {
		s = newSink()
		a.sinks[workload] = s
	}
	return s
}

// compute swaps out every sink, derives a report from the captured sinks
// and appends it to the history.
func (a *Aggregator) compute() report.Report {
	start := time.Now()
	now := a.clock.Now()
	interval := now.Sub(a.lastCompute)
	a.lastCompute = now

	captured := a.sinks
	a.sinks = make(map[string]*Sink, len(a.registered))
	for name := range a.registered {
		a.sinks[name] = newSink()
	}

	stamp := now
	if !stamp.After(a.lastStamp) {
		stamp = a.lastStamp.Add(time.Nanosecond)
	}
	a.lastStamp = stamp

	stats := make(map[string]report.Statistics, len(captured))
	for name, s := range captured {
		stats[name] = a.computeSink(name, s, interval)
	}
	a.accumulate(captured, now)

	r := report.New(stamp, stats)
	if err := a.history.Append(r); err != nil {
		a.logger.Error("appending report", slog.Any("error", err))
	}

	metrics.ReportsComputed.Inc()
	metrics.ReportComputeDuration.Observe(time.Since(start).Seconds())
	a.logger.Info("report computed", slog.Any("report", r))
	return r
}

// computeSink isolates one workload's computation: a failure yields an empty
// document rather than aborting the cycle.
func (a *Aggregator) computeSink(name string, s *Sink, interval time.Duration) (stats report.Statistics) {
	defer func() {
		if p := recover(); p != nil {
			a.logger.Error("computing statistics",
				slog.String("workload", name),
				slog.Any("error", fmt.Errorf("panic: %v", p)))
			stats = report.Statistics{}
		}
	}()
	return s.Compute(interval, a.mode, a.clock)
}

func (a *Aggregator) accumulate(captured map[string]*Sink, now time.Time) {
	a.totalsMu.Lock()
	defer a.totalsMu.Unlock()
	for name, s := range captured {
		t, ok := a.totals[name]
		if !ok {
			t = newRunTotals()
			a.totals[name] = t
		}
		t.add(s)
	}
	a.elapsed = now.Sub(a.started)
}

