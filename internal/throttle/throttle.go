// Package throttle paces outbound AI calls against a shared per-minute budget.
//
// The budget is a sliding 60-second window across all call categories plus a
// per-category minimum spacing measured against the most recent call of any
// category. Acquire blocks until both constraints allow a call, then records
// it. State belongs to one client instance; access is single-threaded by the
// pipeline's design, the mutex only guards against accidental sharing.
package throttle

import (
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/docgen/internal/logfields"
)

// Window is the trailing interval bounding total call volume.
const Window = 60 * time.Second

// Category identifies a class of outbound call with independent spacing rules.
type Category string

const (
	CategoryPlan       Category = "plan"
	CategorySection    Category = "section"
	CategoryScreenshot Category = "screenshot"
	CategoryDiagram    Category = "diagram"
)

// Throttle enforces the sliding window budget and per-category spacing.
type Throttle struct {
	maxPerWindow int
	minDelay     map[Category]time.Duration
	records      []time.Time

	now   func() time.Time
	sleep func(time.Duration)

	mu sync.Mutex
}

// Option configures throttle construction.
type Option func(*Throttle)

// WithClock injects the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(t *Throttle) { t.now = now }
}

// WithSleeper injects the sleep function (tests).
func WithSleeper(sleep func(time.Duration)) Option {
	return func(t *Throttle) { t.sleep = sleep }
}

// New creates a throttle. maxPerWindow <= 0 disables the window constraint;
// categories absent from minDelay have no spacing requirement.
func New(maxPerWindow int, minDelay map[Category]time.Duration, opts ...Option) *Throttle {
	t := &Throttle{
		maxPerWindow: maxPerWindow,
		minDelay:     minDelay,
		now:          time.Now,
		sleep:        time.Sleep,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Acquire blocks until a call of the given category may proceed, then records
// it. The required wait is the maximum of the window and spacing constraints,
// not their sum. Always returns; there is no error path.
func (t *Throttle) Acquire(category Category) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.prune(now)

	wait := t.requiredWait(category, now)
	if wait > 0 {
		slog.Debug("Throttling outbound call",
			logfields.Category(string(category)),
			slog.Duration("wait", wait),
			slog.Int("window_count", len(t.records)))
		t.sleep(wait)
		now = t.now()
		t.prune(now)
	}

	t.records = append(t.records, now)
}

// WindowCount returns the number of calls recorded in the trailing window.
func (t *Throttle) WindowCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(t.now())
	return len(t.records)
}

// requiredWait computes the wait as max(window constraint, spacing constraint).
func (t *Throttle) requiredWait(category Category, now time.Time) time.Duration {
	var wait time.Duration

	if t.maxPerWindow > 0 && len(t.records) >= t.maxPerWindow {
		// Wait until the oldest in-window record expires.
		oldest := t.records[len(t.records)-t.maxPerWindow]
		if w := oldest.Add(Window).Sub(now); w > wait {
			wait = w
		}
	}

	if delay := t.minDelay[category]; delay > 0 && len(t.records) > 0 {
		last := t.records[len(t.records)-1]
		if w := last.Add(delay).Sub(now); w > wait {
			wait = w
		}
	}

	return wait
}

// prune drops records older than the window. Records stay ordered oldest first.
func (t *Throttle) prune(now time.Time) {
	cutoff := now.Add(-Window)
	i := 0
	for i < len(t.records) && !t.records[i].After(cutoff) {
		i++
	}
	if i > 0 {
		t.records = append(t.records[:0], t.records[i:]...)
	}
}
