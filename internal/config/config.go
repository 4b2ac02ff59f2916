package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full environment-driven configuration. Everything has a
// default except the Telegram channel and history-store credentials, whose
// absence aborts the run before any network activity.
type Config struct {
	// Telegram (required)
	TelegramToken  string
	TelegramChatID string

	// Bale (optional; absent means Telegram-only mode)
	BaleToken  string
	BaleChatID string

	// History store
	HistoryEndpoint     string
	HistoryProjectID    string
	HistoryAPIKey       string
	HistoryDatabaseID   string
	HistoryCollectionID string

	// Feeds
	FeedsConfigPath string

	// Timing
	GlobalDeadline     time.Duration
	FeedFetchTimeout   time.Duration
	FeedsTotalTimeout  time.Duration
	HistoryTimeout     time.Duration
	ImageScrapeTimeout time.Duration
	PlatformTimeout    time.Duration
	InterPostDelay     time.Duration

	// Retry
	FeedMaxRetries int
	FeedRetryBase  time.Duration
	PostMaxRetries int

	// Batch + limits
	PublishBatchSize   int
	MaxImages          int
	MaxDescChars       int
	CaptionMax         int
	HoursThreshold     int
	FuzzyThreshold     float64
	RateLimitPerMinute int
	HistoryLoadLimit   int

	// Score thresholds
	ScoreHigh   int
	ScoreMedium int

	// Caption
	ChannelHandle string

	Debug bool
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID: os.Getenv("TELEGRAM_CHANNEL_ID"),
		BaleToken:      os.Getenv("BLE_TOKEN"),
		BaleChatID:     os.Getenv("BLE_CHANNEL_ID"),

		HistoryEndpoint:     getEnvOrDefault("APPWRITE_ENDPOINT", "https://cloud.appwrite.io/v1"),
		HistoryProjectID:    os.Getenv("APPWRITE_PROJECT_ID"),
		HistoryAPIKey:       os.Getenv("APPWRITE_API_KEY"),
		HistoryDatabaseID:   os.Getenv("APPWRITE_DATABASE_ID"),
		HistoryCollectionID: getEnvOrDefault("APPWRITE_COLLECTION_ID", "history"),

		FeedsConfigPath: getEnvOrDefault("FEEDS_CONFIG_PATH", "configs/feeds.yaml"),

		GlobalDeadline:     getEnvSecondsOrDefault("BOT_DEADLINE_SEC", 27*time.Second),
		FeedFetchTimeout:   getEnvSecondsOrDefault("FEED_FETCH_TIMEOUT", 4*time.Second),
		FeedsTotalTimeout:  getEnvSecondsOrDefault("FEEDS_TOTAL_TIMEOUT", 10*time.Second),
		HistoryTimeout:     getEnvSecondsOrDefault("DB_TIMEOUT", 5*time.Second),
		ImageScrapeTimeout: getEnvSecondsOrDefault("IMAGE_SCRAPE_TIMEOUT", 3*time.Second),
		PlatformTimeout:    getEnvSecondsOrDefault("TELEGRAM_TIMEOUT", 5*time.Second),
		InterPostDelay:     getEnvFloatSecondsOrDefault("INTER_POST_DELAY", time.Second),

		FeedMaxRetries: getEnvIntOrDefault("FEED_MAX_RETRIES", 3),
		FeedRetryBase:  getEnvFloatSecondsOrDefault("FEED_RETRY_BASE", 300*time.Millisecond),
		PostMaxRetries: getEnvIntOrDefault("TG_POST_RETRIES", 2),

		PublishBatchSize:   getEnvIntOrDefault("PUBLISH_BATCH_SIZE", 4),
		MaxImages:          getEnvIntOrDefault("MAX_IMAGES", 5),
		MaxDescChars:       getEnvIntOrDefault("MAX_DESC_CHARS", 500),
		CaptionMax:         getEnvIntOrDefault("CAPTION_MAX", 1024),
		HoursThreshold:     getEnvIntOrDefault("HOURS_THRESHOLD", 24),
		FuzzyThreshold:     getEnvFloatOrDefault("FUZZY_THRESHOLD", 0.55),
		RateLimitPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MIN", 8),
		HistoryLoadLimit:   getEnvIntOrDefault("HISTORY_LOAD_LIMIT", 500),

		ScoreHigh:   getEnvIntOrDefault("SCORE_HIGH", 6),
		ScoreMedium: getEnvIntOrDefault("SCORE_MEDIUM", 3),

		ChannelHandle: getEnvOrDefault("CHANNEL_HANDLE", "@candidatoryiran"),
	}

	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

// BaleEnabled reports whether the optional Bale channel is configured.
func (c *Config) BaleEnabled() bool {
	return c.BaleToken != "" && c.BaleChatID != ""
}

// Validate checks the required credentials. Bale is optional.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.TelegramChatID == "" {
		return fmt.Errorf("TELEGRAM_CHANNEL_ID is required")
	}
	if c.HistoryProjectID == "" {
		return fmt.Errorf("APPWRITE_PROJECT_ID is required")
	}
	if c.HistoryAPIKey == "" {
		return fmt.Errorf("APPWRITE_API_KEY is required")
	}
	if c.HistoryDatabaseID == "" {
		return fmt.Errorf("APPWRITE_DATABASE_ID is required")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return time.Duration(intValue) * time.Second
		}
	}
	return defaultValue
}

func getEnvFloatSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f >= 0 {
			return time.Duration(f * float64(time.Second))
		}
	}
	return defaultValue
}
