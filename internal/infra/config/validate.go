package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg and returns a *ValidationError listing every problem.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateGateway(cfg, ve)
	validateCatalog(cfg, ve)
	validateResearch(cfg, ve)
	validateMarket(cfg, ve)
	validateAgents(cfg, ve)
	validateScheduler(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

var (
	validLevels    = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validFormats   = map[string]bool{"text": true, "json": true}
	validExporters = map[string]bool{"": true, "noop": true, "stdout": true}
	validProviders = map[string]bool{"static": true, "searxng": true}
	validPriority  = map[string]bool{"": true, "low": true, "medium": true, "high": true, "critical": true}
	validAgents    = map[string]bool{
		"backup-agent":                     true,
		"audit-agent":                      true,
		"prospect-qualification-optimizer": true,
		"deal-value-optimizer":             true,
		"sales-materials-optimizer":        true,
	}
)

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (debug, info, warn, error)", cfg.Logger.Level)
	}
	if cfg.Logger.Format != "" && !validFormats[strings.ToLower(cfg.Logger.Format)] {
		ve.Add("logger.format %q is invalid (text, json)", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	if !validExporters[cfg.Tracer.Exporter] {
		ve.Add("tracer.exporter %q is invalid (noop, stdout)", cfg.Tracer.Exporter)
	}
	if cfg.Tracer.SampleRatio < 0 || cfg.Tracer.SampleRatio > 1 {
		ve.Add("tracer.sample_ratio must be within [0, 1]")
	}
}

func validateGateway(cfg *Config, ve *ValidationError) {
	g := cfg.Gateway
	if !g.Enabled {
		return
	}
	if _, _, err := net.SplitHostPort(g.Addr); err != nil {
		ve.Add("gateway.addr %q is not host:port: %v", g.Addr, err)
	}
	if g.RequestTimeout <= 0 {
		ve.Add("gateway.request_timeout must be > 0")
	}
	if g.RateLimit.RequestsPerMin < 0 || g.RateLimit.Burst < 0 {
		ve.Add("gateway.rate_limit values must be >= 0")
	}
	if g.RateLimit.RequestsPerMin > 0 && g.RateLimit.Burst == 0 {
		ve.Add("gateway.rate_limit.burst must be > 0 when requests_per_min is set")
	}
	if g.AccessLog.MaxAge < 0 {
		ve.Add("gateway.access_log.max_age must be >= 0")
	}
	if _, err := ParseSize(g.AccessLog.MaxSize); err != nil {
		ve.Add("gateway.access_log.max_size: %v", err)
	}
	seen := map[string]bool{}
	for i, tok := range g.Auth.Tokens {
		if tok.Token == "" {
			ve.Add("gateway.auth.tokens[%d].token must not be empty", i)
		}
		if len(tok.Token) < 16 && !strings.HasPrefix(tok.Token, "enc:") && tok.Token != "" {
			ve.Add("gateway.auth.tokens[%d].token must be at least 16 characters", i)
		}
		if seen[tok.Token] {
			ve.Add("gateway.auth.tokens[%d] duplicates another token", i)
		}
		seen[tok.Token] = true
	}
}

func validateCatalog(cfg *Config, ve *ValidationError) {
	if cfg.Catalog.DSN == "" {
		ve.Add("catalog.dsn must not be empty")
	}
}

func validateResearch(cfg *Config, ve *ValidationError) {
	r := cfg.Research
	if !validProviders[r.Provider] {
		ve.Add("research.provider %q is invalid (static, searxng)", r.Provider)
	}
	if r.Provider == "searxng" {
		if r.SearXNGURL == "" {
			ve.Add("research.searxng_url is required for the searxng provider")
		} else if !strings.HasPrefix(r.SearXNGURL, "enc:") {
			if u, err := url.Parse(r.SearXNGURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				ve.Add("research.searxng_url %q must be an http(s) URL", r.SearXNGURL)
			}
		}
	}
	if r.Timeout < 0 {
		ve.Add("research.timeout must be >= 0")
	}
	if r.RequestsPerMin < 0 || r.Burst < 0 {
		ve.Add("research rate limit values must be >= 0")
	}
}

func validateMarket(cfg *Config, ve *ValidationError) {
	if cfg.Market.CacheTTL <= 0 {
		ve.Add("market.cache_ttl must be > 0")
	}
}

func validateAgents(cfg *Config, ve *ValidationError) {
	if cfg.Agents.ApplyDelay < 0 {
		ve.Add("agents.apply_delay must be >= 0")
	}
}

func validateScheduler(cfg *Config, ve *ValidationError) {
	if !cfg.Scheduler.Enabled {
		return
	}
	names := map[string]bool{}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for i, t := range cfg.Scheduler.Tasks {
		if t.Name == "" {
			ve.Add("scheduler.tasks[%d].name must not be empty", i)
		} else if names[t.Name] {
			ve.Add("scheduler.tasks[%d].name %q is duplicated", i, t.Name)
		}
		names[t.Name] = true

		if !validAgents[t.Agent] {
			ve.Add("scheduler.tasks[%d].agent %q is unknown", i, t.Agent)
		}
		if t.Operation == "" {
			ve.Add("scheduler.tasks[%d].operation must not be empty", i)
		}
		if !validPriority[t.Priority] {
			ve.Add("scheduler.tasks[%d].priority %q is invalid", i, t.Priority)
		}
		if t.Schedule == "" {
			ve.Add("scheduler.tasks[%d].schedule must not be empty", i)
		} else if _, err := parser.Parse(t.Schedule); err != nil && !isDuration(t.Schedule) {
			ve.Add("scheduler.tasks[%d].schedule %q is neither a cron expression nor a duration", i, t.Schedule)
		}
	}
}

func isDuration(s string) bool {
	d, err := time.ParseDuration(s)
	return err == nil && d > 0
}

// ParseSize parses a byte size such as "512KB", "10MB" or "1GB". Empty is 0.
func ParseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1}} {
		if strings.HasSuffix(s, unit.suffix) {
			multiplier = unit.mult
			s = strings.TrimSuffix(s, unit.suffix)
			break
		}
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * multiplier, nil
}
