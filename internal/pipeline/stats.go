package pipeline

import "github.com/candidatory/electionbot/internal/logger"

// Stats is the run summary emitted as the process output. Counters cover
// every article's fate so a skimmed log still accounts for the whole round.
type Stats struct {
	Status string `json:"status"`

	FeedsOK     int `json:"feeds_ok"`
	FeedsFailed int `json:"feeds_failed"`
	FeedRetries int `json:"feed_retries"`

	EntriesTotal int `json:"entries_total"`

	SkippedTime      int `json:"skipped_time"`
	SkippedTopic     int `json:"skipped_topic"`
	SkippedDuplicate int `json:"skipped_duplicate"`

	QueuedHigh   int `json:"queued_high"`
	QueuedMedium int `json:"queued_medium"`
	QueuedLow    int `json:"queued_low"`

	Posted   map[string]int `json:"posted"`
	Errors   int            `json:"errors"`
	Overflow int            `json:"overflow"`

	HistoryDegraded bool `json:"history_degraded"`

	ElapsedSeconds float64        `json:"elapsed_seconds"`
	Metrics        logger.Metrics `json:"metrics"`
}

func newStats() *Stats {
	return &Stats{Posted: make(map[string]int)}
}
