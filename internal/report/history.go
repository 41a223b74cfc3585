package report

import (
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/igrmk/treemap/v2"
)

// ErrOutOfOrder is returned when a report is not strictly newer than the
// last one appended.
var ErrOutOfOrder = errors.New("report timestamp not after last report")

// History is an append-only, time-ordered collection of reports. It has a
// single writer (the aggregator) and any number of concurrent readers.
type History struct {
	mu   sync.RWMutex
	tree *treemap.TreeMap[time.Time, Report]
	last time.Time
}

func NewHistory() *History {
	return &History{
		tree: treemap.NewWithKeyCompare[time.Time, Report](func(a, b time.Time) bool {
			return a.Before(b)
		}),
	}
}

// Append adds r to the history.
func (h *History) Append(r Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tree.Len() > 0 && !r.Timestamp().After(h.last) {
		return fmt.Errorf("%w: %s <= %s", ErrOutOfOrder,
			r.Timestamp().Format(time.RFC3339Nano), h.last.Format(time.RFC3339Nano))
	}
	h.tree.Set(r.Timestamp(), r)
	h.last = r.Timestamp()
	return nil
}

// Len returns the number of reports.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tree.Len()
}

// Last returns the newest report.
func (h *History) Last() (Report, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.tree.Len() == 0 {
		return Report{}, false
	}
	return h.tree.Get(h.last)
}

// All yields every report in ascending timestamp order. Each range over the
// sequence sees a consistent snapshot taken when iteration starts.
func (h *History) All() iter.Seq[Report] {
	return h.seq(func() []Report {
		out := make([]Report, 0, h.tree.Len())
		for it := h.tree.Iterator(); it.Valid(); it.Next() {
			out = append(out, it.Value())
		}
		return out
	})
}

// Since yields the reports strictly after t in ascending timestamp order.
func (h *History) Since(t time.Time) iter.Seq[Report] {
	return h.seq(func() []Report {
		var out []Report
		for it := h.tree.LowerBound(t); it.Valid(); it.Next() {
			if !it.Key().After(t) {
				continue
			}
			out = append(out, it.Value())
		}
		return out
	})
}

func (h *History) seq(snapshot func() []Report) iter.Seq[Report] {
	return func(yield func(Report) bool) {
		h.mu.RLock()
		reports := snapshot()
		h.mu.RUnlock()
		for _, r := range reports {
			if !yield(r) {
				return
			}
		}
	}
}
