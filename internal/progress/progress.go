// Package progress triggers report computation on a fixed interval and
// prints each report as it is produced.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"loadsim/internal/collector"
	"loadsim/internal/report"
)

// ReportSource computes a report on demand.
type ReportSource interface {
	ComputeReport() <-chan report.Report
}

type Progress struct {
	source   ReportSource
	interval time.Duration
	quiet    bool

	startTime time.Time
	ticker    *time.Ticker
	stopCh    chan struct{}
	done      chan struct{}
	started   atomic.Bool
	stopped   atomic.Bool

	mu     sync.Mutex
	output io.Writer
}

// NewProgress creates a Progress ticking every interval. In quiet mode
// reports are still computed but nothing is printed.
func NewProgress(source ReportSource, interval time.Duration, quiet bool) *Progress {
	if interval <= 0 {
		interval = time.Second
	}
	return &Progress{
		source:   source,
		interval: interval,
		quiet:    quiet,
		output:   os.Stderr,
	}
}

func (p *Progress) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = w
}

func (p *Progress) Start() {
	if p.started.Swap(true) {
		return
	}
	p.startTime = time.Now()
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	p.ticker = time.NewTicker(p.interval)
	go p.run()
}

func (p *Progress) run() {
	defer close(p.done)
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.ticker.C:
			r, ok := <-p.source.ComputeReport()
			if !ok {
				return
			}
			p.printReport(r)
		}
	}
}

func (p *Progress) printReport(r report.Report) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	collector.FormatReportLine(p.output, time.Since(p.startTime), r)
}

// Stop ends the ticker and waits for an in-flight report to be printed.
func (p *Progress) Stop() {
	if !p.started.Load() || p.stopped.Swap(true) {
		return
	}
	p.ticker.Stop()
	close(p.stopCh)
	<-p.done
}

func (p *Progress) Printf(format string, args ...any) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.output, format+"\n", args...)
}
