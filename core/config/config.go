// Package config loads bot configuration from a YAML file with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coredatabase "github.com/m3rciful/woltwatch/core/database"
)

// TelegramConfig holds Telegram bot transport settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

// AccessConfig restricts the bot to a static set of chats.
type AccessConfig struct {
	AllowedChats []int64 `yaml:"allowed_chats" envconfig:"ALLOWED_CHATS"`
}

// LocationConfig is the delivery coordinate used for search and status calls.
type LocationConfig struct {
	Lat float64 `yaml:"lat" envconfig:"WOLT_LAT"`
	Lon float64 `yaml:"lon" envconfig:"WOLT_LON"`
}

// WoltConfig holds Wolt API settings.
type WoltConfig struct {
	Location LocationConfig `yaml:"location"`
	// SearchBaseURL and VenueBaseURL may be overridden for testing;
	// empty values select the production endpoints.
	SearchBaseURL string `yaml:"search_base_url" envconfig:"WOLT_SEARCH_BASE_URL"`
	VenueBaseURL  string `yaml:"venue_base_url" envconfig:"WOLT_VENUE_BASE_URL"`
	PageSize      int    `yaml:"page_size" envconfig:"WOLT_PAGE_SIZE"`
}

// RateLimitConfig holds settings for per-user rate limiting; a zero interval
// disables it.
type RateLimitConfig struct {
	IntervalMS int `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
}

// WatchConfig controls the availability watcher.
type WatchConfig struct {
	IntervalSeconds int `yaml:"interval_seconds" envconfig:"WATCH_INTERVAL_SECONDS"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// DefaultPageSize is how many venues a single prompt page shows.
	DefaultPageSize = 10
	// DefaultWatchIntervalSeconds is the pause between venue status checks.
	DefaultWatchIntervalSeconds = 60
)

// Config aggregates the full application configuration.
type Config struct {
	Telegram  TelegramConfig      `yaml:"telegram"`
	Webhook   WebhookConfig       `yaml:"webhook"`
	Logging   LoggingConfig       `yaml:"logging"`
	Access    AccessConfig        `yaml:"access"`
	RateLimit RateLimitConfig     `yaml:"rate_limit"`
	Wolt      WoltConfig          `yaml:"wolt"`
	Watch     WatchConfig         `yaml:"watch"`
	Database  coredatabase.Config `yaml:"database"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if len(cfg.Access.AllowedChats) == 0 {
		return fmt.Errorf("access.allowed_chats must list at least one chat id")
	}

	if cfg.RateLimit.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}

	if cfg.Wolt.PageSize < 0 {
		return fmt.Errorf("wolt.page_size must be >= 0")
	}
	if cfg.Wolt.PageSize == 0 {
		cfg.Wolt.PageSize = DefaultPageSize
	}

	if cfg.Watch.IntervalSeconds < 0 {
		return fmt.Errorf("watch.interval_seconds must be >= 0")
	}
	if cfg.Watch.IntervalSeconds == 0 {
		cfg.Watch.IntervalSeconds = DefaultWatchIntervalSeconds
	}

	return nil
}
