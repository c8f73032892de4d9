// Package config loads bot configuration from a YAML file with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
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

// FoursquareConfig holds venue search provider credentials.
type FoursquareConfig struct {
	ClientID     string `yaml:"client_id" envconfig:"FOURSQUARE_ID"`
	ClientSecret string `yaml:"client_secret" envconfig:"FOURSQUARE_SECRET"`
	// BaseURL overrides the API endpoint; empty means production.
	BaseURL string `yaml:"base_url" envconfig:"FOURSQUARE_BASE_URL"`
}

// MapsConfig holds the static maps collaborator settings.
type MapsConfig struct {
	APIKey string `yaml:"api_key" envconfig:"GOOGLE_MAPS_API_KEY"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// RateLimitConfig holds settings for per-user rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "message": standard text/location messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates all bot configuration.
type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Foursquare FoursquareConfig `yaml:"foursquare"`
	Maps       MapsConfig       `yaml:"maps"`
	Logging    LoggingConfig    `yaml:"logging"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
}

// Load reads configuration from a YAML file, applies environment variable
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml config: %w", err)
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}
	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize validates required fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := validateCredentials(cfg); err != nil {
		return err
	}
	if err := normalizeRunMode(cfg); err != nil {
		return err
	}
	return normalizeRateLimit(&cfg.RateLimit)
}

func validateCredentials(cfg *Config) error {
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is required")
	}
	if strings.TrimSpace(cfg.Foursquare.ClientID) == "" || strings.TrimSpace(cfg.Foursquare.ClientSecret) == "" {
		return fmt.Errorf("foursquare client_id and client_secret are required")
	}
	return nil
}

func normalizeRunMode(cfg *Config) error {
	mode := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	switch mode {
	case "":
		mode = RunModeLongpoll
	case "polling": // accept alias
		mode = RunModeLongpoll
	}

	switch mode {
	case RunModeWebhook:
		if err := validateWebhook(&cfg.Webhook); err != nil {
			return err
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}

	cfg.Telegram.RunMode = mode
	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if strings.TrimSpace(wh.URL) == "" {
		return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
	}
	if strings.TrimSpace(wh.Listen) == "" {
		return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
	}
	if wh.Port <= 0 {
		return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
	}
	return nil
}

func normalizeRateLimit(rl *RateLimitConfig) error {
	allowed := map[string]struct{}{
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	kept := rl.ExcludeUpdates[:0]
	for _, raw := range rl.ExcludeUpdates {
		kind := strings.ToLower(strings.TrimSpace(raw))
		if kind == "" {
			continue
		}
		if _, ok := allowed[kind]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: message, inline_query", raw)
		}
		kept = append(kept, kind)
	}
	rl.ExcludeUpdates = kept
	return nil
}
