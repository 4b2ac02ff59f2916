// Package ratelimit caps publish actions with a sliding 60-second window.
package ratelimit

import (
	"sync"
	"time"
)

const window = 60 * time.Second

// Limiter tracks recent publish timestamps. Query CanPost immediately before
// each attempt and RecordPost immediately after a successful one, so the
// window stays accurate across a loop with variable per-item latency.
type Limiter struct {
	mu     sync.Mutex
	max    int
	stamps []time.Time
	now    func() time.Time
}

// New creates a limiter allowing at most maxPerMinute posts.
func New(maxPerMinute int) *Limiter {
	return NewWithClock(maxPerMinute, time.Now)
}

// NewWithClock creates a limiter with an injectable clock.
func NewWithClock(maxPerMinute int, now func() time.Time) *Limiter {
	return &Limiter{max: maxPerMinute, now: now}
}

func (l *Limiter) prune(now time.Time) {
	keep := l.stamps[:0]
	for _, t := range l.stamps {
		if now.Sub(t) < window {
			keep = append(keep, t)
		}
	}
	l.stamps = keep
}

// CanPost reports whether another post fits in the trailing window.
func (l *Limiter) CanPost() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())
	return len(l.stamps) < l.max
}

// RecordPost registers a successful publish action.
func (l *Limiter) RecordPost() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stamps = append(l.stamps, l.now())
}

// Remaining is the number of posts still allowed in the current window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())
	if r := l.max - len(l.stamps); r > 0 {
		return r
	}
	return 0
}
