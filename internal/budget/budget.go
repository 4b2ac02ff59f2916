// Package budget tracks elapsed wall-clock time against the global deadline
// the hosting platform imposes on a single invocation.
package budget

import "time"

// Tracker measures from a single start timestamp captured at pipeline entry.
type Tracker struct {
	start   time.Time
	ceiling time.Duration
	now     func() time.Time
}

// New starts a tracker with the given ceiling.
func New(ceiling time.Duration) *Tracker {
	return NewWithClock(ceiling, time.Now)
}

// NewWithClock starts a tracker with an injectable clock.
func NewWithClock(ceiling time.Duration, now func() time.Time) *Tracker {
	return &Tracker{start: now(), ceiling: ceiling, now: now}
}

// Elapsed is the time spent since pipeline entry.
func (t *Tracker) Elapsed() time.Duration {
	return t.now().Sub(t.start)
}

// Remaining is the time left before the ceiling. Can go negative.
func (t *Tracker) Remaining() time.Duration {
	return t.ceiling - t.Elapsed()
}

// Phase derives a sub-budget: at most phaseCap, and never eating into the
// reserve needed by later phases. A non-positive result means the phase must
// be skipped.
func (t *Tracker) Phase(phaseCap, reserve time.Duration) time.Duration {
	b := t.Remaining() - reserve
	if phaseCap < b {
		return phaseCap
	}
	return b
}
