package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pricewatch/internal/model"
)

// Config holds all application configuration. Values come from defaults,
// then an optional YAML file, then environment variables.
type Config struct {
	// Tracker
	HistoryMax   int           `yaml:"history_max"`
	TickInterval time.Duration `yaml:"tick_interval"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	Watchlist    string        `yaml:"watchlist"`
	Seed         int64         `yaml:"seed"`
	Source       string        `yaml:"source"`    // synthetic | replay
	ReplayDB     string        `yaml:"replay_db"` // SQLite file replayed when Source is replay
	Incremental  bool          `yaml:"incremental"`
	AutoStart    bool          `yaml:"auto_start"`

	// Infrastructure (empty address disables the sink)
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	SQLitePath    string `yaml:"sqlite_path"`
	HTTPAddr      string `yaml:"http_addr"`
	MetricsAddr   string `yaml:"metrics_addr"`

	// Notifications
	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   string `yaml:"telegram_chat_id"`
	WebhookURL       string `yaml:"webhook_url"`

	// Admin endpoints require a TOTP code when set.
	AdminTOTPSecret string `yaml:"admin_totp_secret"`

	LogLevel string `yaml:"log_level"`
}

// Price sources.
const (
	SourceSynthetic = "synthetic"
	SourceReplay    = "replay"
)

// WatchSpec is one parsed WATCHLIST item.
type WatchSpec struct {
	Symbol     string
	AlertPrice *float64
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HistoryMax:   200,
		TickInterval: 5 * time.Second,
		FetchTimeout: 2 * time.Second,
		Watchlist:    "AAPL:190,MSFT,GOOGL",
		Seed:         time.Now().UnixNano(),
		Source:       SourceSynthetic,
		Incremental:  true,
		AutoStart:    true,
		HTTPAddr:     ":8080",
		MetricsAddr:  ":9090",
		LogLevel:     "info",
	}
}

// Load builds the configuration. path may be empty or point to a missing
// file, in which case only defaults and the environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error

	c.HistoryMax = envInt("HISTORY_MAX", c.HistoryMax, &errs)
	c.TickInterval = envDuration("TICK_INTERVAL", c.TickInterval, &errs)
	c.FetchTimeout = envDuration("FETCH_TIMEOUT", c.FetchTimeout, &errs)
	c.Watchlist = getEnv("WATCHLIST", c.Watchlist)
	c.Seed = int64(envInt("SEED", int(c.Seed), &errs))
	c.Source = getEnv("PRICE_SOURCE", c.Source)
	c.ReplayDB = getEnv("REPLAY_DB", c.ReplayDB)
	c.Incremental = envBool("INCREMENTAL", c.Incremental, &errs)
	c.AutoStart = envBool("AUTO_START", c.AutoStart, &errs)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)

	c.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", c.TelegramBotToken)
	c.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", c.TelegramChatID)
	c.WebhookURL = getEnv("WEBHOOK_URL", c.WebhookURL)
	c.AdminTOTPSecret = getEnv("ADMIN_TOTP_SECRET", c.AdminTOTPSecret)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	return errors.Join(errs...)
}

// Validate rejects values the tracker cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.HistoryMax < 1 {
		errs = append(errs, fmt.Errorf("history_max must be at least 1, got %d", c.HistoryMax))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch_timeout must be positive, got %s", c.FetchTimeout))
	}
	if _, err := c.ParseWatchlist(); err != nil {
		errs = append(errs, err)
	}
	switch c.Source {
	case SourceSynthetic:
	case SourceReplay:
		if c.ReplayDB == "" {
			errs = append(errs, errors.New("replay_db is required when source is replay"))
		}
	default:
		errs = append(errs, fmt.Errorf("source must be %q or %q, got %q", SourceSynthetic, SourceReplay, c.Source))
	}
	if (c.TelegramBotToken == "") != (c.TelegramChatID == "") {
		errs = append(errs, errors.New("telegram_bot_token and telegram_chat_id must be set together"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("[config] invalid: %w", err)
	}
	return nil
}

// ParseWatchlist parses the Watchlist string: comma-separated SYMBOL or
// SYMBOL:ALERT_PRICE items, e.g. "AAPL:190,MSFT".
func (c *Config) ParseWatchlist() ([]WatchSpec, error) {
	var specs []WatchSpec
	for _, item := range strings.Split(c.Watchlist, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		sym, price, hasPrice := strings.Cut(item, ":")
		spec := WatchSpec{Symbol: model.NormalizeSymbol(sym)}
		if spec.Symbol == "" {
			return nil, fmt.Errorf("watchlist item %q: empty symbol", item)
		}
		if hasPrice {
			p, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
			if err != nil || !(p > 0) {
				return nil, fmt.Errorf("watchlist item %q: alert price must be a positive number", item)
			}
			spec.AlertPrice = &p
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func envBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}
