// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string

	JobsAPIEndpoint string
	SuggestEndpoint string
	SuggestAPIKey   string
	SuggestModel    string

	// Adaptive learning parameters.
	TopK              int
	MaxManualKeywords int
	Decay             float64
	LikeBoost         float64
	DislikePenalty    float64
	NegativePromoteAt float64
	NewPositiveQuota  int
	NewNegativeQuota  int
	ExcludeRecentDays int

	// Search and delivery.
	MaxKeywordRetries int
	RealtimeMax       int
	DailyCount        int
	RateLimitMax      int
	RateLimitWindow   time.Duration

	// Digest schedule defaults.
	DefaultNotificationTime string
	DefaultTimezone         string
	DigestTickInterval      time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	cfg := &Config{
		TelegramBotToken: token,
		DatabasePath:     envString("DATABASE_PATH", "./data/bot.db"),
		LogLevel:         envString("LOG_LEVEL", "info"),
		JobsAPIEndpoint:  envString("JOBS_API_ENDPOINT", "https://www.findsgjobs.com/api/jobs"),
		SuggestEndpoint:  envString("SUGGEST_API_ENDPOINT", "https://api.openai.com/v1"),
		SuggestAPIKey:    os.Getenv("SUGGEST_API_KEY"),
		SuggestModel:     envString("SUGGEST_MODEL", "gpt-4o-mini"),

		DefaultNotificationTime: envString("DEFAULT_NOTIFICATION_TIME", "09:00"),
		DefaultTimezone:         envString("DEFAULT_TIMEZONE", "Asia/Singapore"),
	}

	var err error
	if cfg.TopK, err = envInt("TOP_K", 8); err != nil {
		return nil, err
	}
	if cfg.MaxManualKeywords, err = envInt("MAX_MANUAL_KEYWORDS", 4); err != nil {
		return nil, err
	}
	if cfg.Decay, err = envFloat("DECAY", 0.98); err != nil {
		return nil, err
	}
	if cfg.LikeBoost, err = envFloat("LIKE_BOOST", 1.0); err != nil {
		return nil, err
	}
	if cfg.DislikePenalty, err = envFloat("DISLIKE_PENALTY", -1.0); err != nil {
		return nil, err
	}
	if cfg.NegativePromoteAt, err = envFloat("NEGATIVE_PROMOTE_AT", -2.0); err != nil {
		return nil, err
	}
	if cfg.NewPositiveQuota, err = envInt("NEW_POSITIVE_QUOTA", 3); err != nil {
		return nil, err
	}
	if cfg.NewNegativeQuota, err = envInt("NEW_NEGATIVE_QUOTA", 2); err != nil {
		return nil, err
	}
	if cfg.ExcludeRecentDays, err = envInt("EXCLUDE_RECENT_DAYS", 7); err != nil {
		return nil, err
	}
	if cfg.MaxKeywordRetries, err = envInt("MAX_KEYWORD_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.RealtimeMax, err = envInt("REALTIME_MAX", 3); err != nil {
		return nil, err
	}
	if cfg.DailyCount, err = envInt("DAILY_COUNT", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitMax, err = envInt("RATE_LIMIT_MAX", 60); err != nil {
		return nil, err
	}

	windowSec, err := envInt("RATE_LIMIT_WINDOW_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.RateLimitWindow = time.Duration(windowSec) * time.Second

	tickMin, err := envInt("DIGEST_TICK_MINUTES", 1)
	if err != nil {
		return nil, err
	}
	cfg.DigestTickInterval = time.Duration(tickMin) * time.Minute

	if cfg.DislikePenalty >= 0 {
		return nil, fmt.Errorf("DISLIKE_PENALTY must be negative, got %v", cfg.DislikePenalty)
	}
	if cfg.NegativePromoteAt >= 0 {
		return nil, fmt.Errorf("NEGATIVE_PROMOTE_AT must be negative, got %v", cfg.NegativePromoteAt)
	}
	if cfg.Decay <= 0 || cfg.Decay > 1 {
		return nil, fmt.Errorf("DECAY must be in (0, 1], got %v", cfg.Decay)
	}
	if cfg.MaxManualKeywords > cfg.TopK {
		return nil, fmt.Errorf("MAX_MANUAL_KEYWORDS (%d) cannot exceed TOP_K (%d)", cfg.MaxManualKeywords, cfg.TopK)
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}
