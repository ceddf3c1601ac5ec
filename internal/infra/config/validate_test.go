package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad level", func(c *Config) { c.Logger.Level = "loud" }, `logger.level "loud" is invalid`},
		{"bad format", func(c *Config) { c.Logger.Format = "xml" }, `logger.format "xml" is invalid`},
		{"bad exporter", func(c *Config) { c.Tracer.Enabled, c.Tracer.Exporter = true, "zipkin" }, `tracer.exporter "zipkin"`},
		{"bad ratio", func(c *Config) { c.Tracer.Enabled, c.Tracer.SampleRatio = true, 2 }, "tracer.sample_ratio"},
		{"bad addr", func(c *Config) { c.Gateway.Enabled, c.Gateway.Addr = true, "8420" }, "gateway.addr"},
		{"burst required", func(c *Config) { c.Gateway.Enabled, c.Gateway.RateLimit.Burst = true, 0 }, "burst must be > 0"},
		{"short token", func(c *Config) {
			c.Gateway.Enabled = true
			c.Gateway.Auth.Tokens = []TokenConfig{{Token: "short"}}
		}, "at least 16 characters"},
		{"duplicate token", func(c *Config) {
			c.Gateway.Enabled = true
			c.Gateway.Auth.Tokens = []TokenConfig{{Token: "0123456789abcdef"}, {Token: "0123456789abcdef"}}
		}, "duplicates another token"},
		{"empty dsn", func(c *Config) { c.Catalog.DSN = "" }, "catalog.dsn"},
		{"unknown provider", func(c *Config) { c.Research.Provider = "bing" }, `research.provider "bing"`},
		{"searxng without url", func(c *Config) { c.Research.Provider = "searxng" }, "searxng_url is required"},
		{"searxng bad url", func(c *Config) {
			c.Research.Provider, c.Research.SearXNGURL = "searxng", "ftp://searx"
		}, "must be an http(s) URL"},
		{"zero ttl", func(c *Config) { c.Market.CacheTTL = 0 }, "market.cache_ttl"},
		{"negative delay", func(c *Config) { c.Agents.ApplyDelay = -time.Second }, "agents.apply_delay"},
		{"unknown task agent", func(c *Config) {
			c.Scheduler.Enabled = true
			c.Scheduler.Tasks = []ScheduledTaskConfig{{Name: "t", Schedule: "1h", Agent: "ghost", Operation: "x"}}
		}, `agent "ghost" is unknown`},
		{"bad schedule", func(c *Config) {
			c.Scheduler.Enabled = true
			c.Scheduler.Tasks = []ScheduledTaskConfig{{Name: "t", Schedule: "whenever", Agent: "audit-agent", Operation: "security"}}
		}, "neither a cron expression nor a duration"},
		{"duplicate task", func(c *Config) {
			c.Scheduler.Enabled = true
			task := ScheduledTaskConfig{Name: "t", Schedule: "@daily", Agent: "audit-agent", Operation: "security"}
			c.Scheduler.Tasks = []ScheduledTaskConfig{task, task}
		}, `name "t" is duplicated`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Logger.Level = "loud"
	cfg.Catalog.DSN = ""
	cfg.Market.CacheTTL = 0

	var ve *ValidationError
	require.ErrorAs(t, Validate(cfg), &ve)
	assert.Len(t, ve.Errors, 3)
}

func TestValidateAcceptsScheduledTasks(t *testing.T) {
	cfg := Defaults()
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.Tasks = []ScheduledTaskConfig{
		{Name: "nightly", Schedule: "0 2 * * *", Agent: "backup-agent", Operation: "safety_backup", Priority: "high"},
		{Name: "hourly-audit", Schedule: "1h", Agent: "audit-agent", Operation: "performance"},
	}
	assert.NoError(t, Validate(cfg))
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"512", 512},
		{"64B", 64},
		{"10kb", 10 << 10},
		{" 5MB ", 5 << 20},
		{"1GB", 1 << 30},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"MB", "ten", "-1KB"} {
		_, err := ParseSize(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateAccessLog(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Enabled = true
	cfg.Gateway.AccessLog = AccessLogConfig{Path: "access.jsonl", MaxAge: -time.Hour, MaxSize: "lots"}

	var ve *ValidationError
	require.ErrorAs(t, Validate(cfg), &ve)
	assert.Len(t, ve.Errors, 2)
}
