package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Metrics collects per-run observability counters. It is returned with the
// run summary instead of living in a package-global accumulator.
type Metrics struct {
	FuzzyMatchCount int                `json:"fuzzy_match_count"`
	HashCollisions  int                `json:"hash_collisions"`
	PostRetries     int                `json:"post_retries"`
	PostFallbacks   int                `json:"post_fallbacks"`
	FeedLatenciesMS map[string]float64 `json:"feed_latencies_ms"`
}

// Logger is a run-scoped logging handle. Components receive it at
// construction; nothing in this module logs through a global.
type Logger struct {
	slog *slog.Logger

	mu      sync.Mutex
	metrics Metrics
}

// New creates a logger writing text lines to stdout.
// DEBUG=true lowers the level to debug.
func New() *Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		level = slog.LevelDebug
	}

	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return NewWithHandler(h)
}

// NewWithHandler creates a logger over an arbitrary slog handler.
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{
		slog:    slog.New(h),
		metrics: Metrics{FeedLatenciesMS: make(map[string]float64)},
	}
}

func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

// Item logs one compact per-article line.
func (l *Logger) Item(action, source, title string, score int, tier string, candidates, topics []string) {
	if r := []rune(title); len(r) > 55 {
		title = string(r[:55])
	}
	args := []any{"score", score, "tier", tier, "source", source, "title", title}
	if len(candidates) > 0 {
		args = append(args, "candidates", strings.Join(cap2(candidates), ","))
	}
	if len(topics) > 0 {
		args = append(args, "topics", strings.Join(cap2(topics), ","))
	}
	l.slog.Info(action, args...)
}

func cap2(s []string) []string {
	if len(s) > 2 {
		return s[:2]
	}
	return s
}

// FeedLatency records one feed attempt latency in milliseconds.
func (l *Logger) FeedLatency(source string, ms float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metrics.FeedLatenciesMS[source] = ms
}

func (l *Logger) RecordFuzzyMatch() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metrics.FuzzyMatchCount++
}

func (l *Logger) RecordHashCollision() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metrics.HashCollisions++
}

func (l *Logger) RecordPostRetry() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metrics.PostRetries++
}

func (l *Logger) RecordPostFallback() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metrics.PostFallbacks++
}

// Metrics returns a copy of the accumulated counters.
func (l *Logger) Metrics() Metrics {
	l.mu.Lock()
	defer l.mu.Unlock()

	m := l.metrics
	m.FeedLatenciesMS = make(map[string]float64, len(l.metrics.FeedLatenciesMS))
	for k, v := range l.metrics.FeedLatenciesMS {
		m.FeedLatenciesMS[k] = v
	}
	return m
}
