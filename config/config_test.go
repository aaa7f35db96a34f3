package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.HistoryMax)
	assert.Equal(t, 5*time.Second, cfg.TickInterval)
	assert.Equal(t, 2*time.Second, cfg.FetchTimeout)
	assert.True(t, cfg.Incremental)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
history_max: 50
tick_interval: 1s
watchlist: "tsla:250, nvda"
redis_addr: "localhost:6379"
`), 0o644))

	t.Setenv("HISTORY_MAX", "75")
	t.Setenv("SQLITE_PATH", "data/pricewatch.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 75, cfg.HistoryMax, "env wins over file")
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "data/pricewatch.db", cfg.SQLitePath)

	specs, err := cfg.ParseWatchlist()
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "TSLA", specs[0].Symbol)
	require.NotNil(t, specs[0].AlertPrice)
	assert.Equal(t, 250.0, *specs[0].AlertPrice)
	assert.Equal(t, "NVDA", specs[1].Symbol)
	assert.Nil(t, specs[1].AlertPrice)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
}

func TestLoad_BadValues(t *testing.T) {
	cases := map[string]string{
		"HISTORY_MAX":   "zero",
		"TICK_INTERVAL": "soon",
		"INCREMENTAL":   "maybe",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"history", func(c *Config) { c.HistoryMax = 0 }},
		{"interval", func(c *Config) { c.TickInterval = 0 }},
		{"timeout", func(c *Config) { c.FetchTimeout = -time.Second }},
		{"alert price", func(c *Config) { c.Watchlist = "AAPL:-5" }},
		{"empty symbol", func(c *Config) { c.Watchlist = ":10" }},
		{"telegram half set", func(c *Config) { c.TelegramBotToken = "token" }},
		{"unknown source", func(c *Config) { c.Source = "feed" }},
		{"replay without db", func(c *Config) { c.Source = SourceReplay }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestValidate_ReplaySource(t *testing.T) {
	cfg := Default()
	cfg.Source = SourceReplay
	cfg.ReplayDB = "data/recorded.db"
	assert.NoError(t, cfg.Validate())
}
