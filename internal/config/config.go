// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is malformed, Load returns an error and
// the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the monitoring tunables. None of these values is known to be
// optimal; they are starting points, overridable per deployment.
const (
	DefaultTotalBudget      = 120 * time.Second
	DefaultPerCompanyBudget = 15 * time.Second
	DefaultPause            = 2 * time.Second
	DefaultMaxRedirects     = 5
	DefaultSimilarity       = 0.90
	DefaultLadderMin        = 5
	DefaultIntervalHours    = 6
)

// Config holds all runtime configuration for the monitor service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string // optional; empty disables the alert cooldown cache

	TelegramToken  string // optional; empty disables Telegram alerts
	TelegramChatID int64

	IntervalHours int // how often the cron job fires

	// Monitoring-run tunables.
	TotalBudget         time.Duration
	PerCompanyBudget    time.Duration
	InterCompanyPause   time.Duration
	MaxRedirects        int
	SimilarityThreshold float64
	LadderMinCandidates int
}

// Load reads .env (when present) and environment variables, returning a
// validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg := &Config{
		Port:                getEnv("MONITOR_PORT", "8082"),
		DatabaseURL:         dbURL,
		RedisURL:            os.Getenv("REDIS_URL"),
		TelegramToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		IntervalHours:       DefaultIntervalHours,
		TotalBudget:         DefaultTotalBudget,
		PerCompanyBudget:    DefaultPerCompanyBudget,
		InterCompanyPause:   DefaultPause,
		MaxRedirects:        DefaultMaxRedirects,
		SimilarityThreshold: DefaultSimilarity,
		LadderMinCandidates: DefaultLadderMin,
	}

	if s := os.Getenv("TELEGRAM_CHAT_ID"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be an integer, got %q", s)
		}
		cfg.TelegramChatID = id
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	var err error
	if cfg.IntervalHours, err = intEnv("MONITOR_INTERVAL_HOURS", cfg.IntervalHours, 1); err != nil {
		return nil, err
	}
	if cfg.TotalBudget, err = secondsEnv("TOTAL_BUDGET_SECONDS", cfg.TotalBudget); err != nil {
		return nil, err
	}
	if cfg.PerCompanyBudget, err = secondsEnv("PER_COMPANY_BUDGET_SECONDS", cfg.PerCompanyBudget); err != nil {
		return nil, err
	}
	if cfg.InterCompanyPause, err = secondsEnv("INTER_COMPANY_PAUSE_SECONDS", cfg.InterCompanyPause); err != nil {
		return nil, err
	}
	if cfg.MaxRedirects, err = intEnv("MAX_REDIRECTS", cfg.MaxRedirects, 1); err != nil {
		return nil, err
	}
	if cfg.LadderMinCandidates, err = intEnv("LADDER_MIN_CANDIDATES", cfg.LadderMinCandidates, 1); err != nil {
		return nil, err
	}

	if s := os.Getenv("DEDUP_SIMILARITY_THRESHOLD"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 || v > 1 {
			return nil, fmt.Errorf("DEDUP_SIMILARITY_THRESHOLD must be in (0, 1], got %q", s)
		}
		cfg.SimilarityThreshold = v
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback, min int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < min {
		return 0, fmt.Errorf("%s must be an integer >= %d, got %q", key, min, s)
	}
	return v, nil
}

func secondsEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, s)
	}
	return time.Duration(v) * time.Second, nil
}
