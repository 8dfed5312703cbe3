package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "Mozilla/5.0 (compatible; WishlistBot/1.0)", cfg.Scraper.UserAgent)
	assert.Equal(t, 20*time.Second, cfg.Scraper.Timeout)
	assert.Zero(t, cfg.Scraper.BatchPause)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.StaleAfter)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 100, cfg.Relay.BatchSize)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("SCRAPER_RELAY_URL", "https://api.allorigins.win/raw?url=")
	t.Setenv("SCRAPER_TIMEOUT", "5s")
	t.Setenv("SCRAPER_BATCH_PAUSE", "2s")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("SCHEDULER_BATCH_SIZE", "not-a-number")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/wishlist")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://api.allorigins.win/raw?url=", cfg.Scraper.RelayURL)
	assert.Equal(t, 5*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Scraper.BatchPause)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 50, cfg.Scheduler.BatchSize, "unparseable values fall back to the default")
	assert.Equal(t, "postgres://u:p@db:5432/wishlist", cfg.Database.URL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"zero timeout", func(c *Config) { c.Scraper.Timeout = 0 }, "SCRAPER_TIMEOUT"},
		{"negative pause", func(c *Config) { c.Scraper.BatchPause = -time.Second }, "SCRAPER_BATCH_PAUSE"},
		{"pause above max", func(c *Config) {
			c.Scraper.BatchPause = 5 * time.Second
			c.Scraper.BatchPauseMax = time.Second
		}, "SCRAPER_BATCH_PAUSE_MAX"},
		{"zero interval", func(c *Config) { c.Scheduler.Interval = 0 }, "SCHEDULER_INTERVAL"},
		{"zero batch", func(c *Config) { c.Scheduler.BatchSize = 0 }, "SCHEDULER_BATCH_SIZE"},
		{"zero relay batch", func(c *Config) { c.Relay.BatchSize = 0 }, "RELAY_BATCH_SIZE"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
