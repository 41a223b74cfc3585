// Package core defines the fundamental interfaces and types for loadsim:
// the unit of work a worker repeats, the sample it produces, and the paced
// Runner that drives it.
package core

import "context"

// Sample is the measured outcome of one iteration.
type Sample struct {
	Records        int64
	DurationMillis int64
}

// Normalize clamps negative values to zero.
func (s Sample) Normalize() Sample {
	if s.Records < 0 {
		s.Records = 0
	}
	if s.DurationMillis < 0 {
		s.DurationMillis = 0
	}
	return s
}

// UnitOfWork is the timed operation a worker repeats. It returns the number
// of records the iteration touched. Implementations must be safe for use by
// every worker of a workload; they are not assumed to be idempotent.
type UnitOfWork interface {
	Do(ctx context.Context, vars Variables) (int64, error)
}

// UnitOfWorkFunc adapts a function to UnitOfWork.
type UnitOfWorkFunc func(ctx context.Context, vars Variables) (int64, error)

func (f UnitOfWorkFunc) Do(ctx context.Context, vars Variables) (int64, error) {
	return f(ctx, vars)
}

// Recorder receives samples from workers. Record must not block on
// report computation.
type Recorder interface {
	Record(workload string, records, durationMillis int64)
}

// NullRecorder discards all samples.
var NullRecorder Recorder = nullRecorder{}

type nullRecorder struct{}

func (nullRecorder) Record(string, int64, int64) {}
