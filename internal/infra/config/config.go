// Package config loads salesintel's YAML configuration, applies
// SALESINTEL_* environment overrides and decrypts "enc:" secrets.
package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"

	"salesintel/internal/domain"
)

// Config is the top-level application configuration.
type Config struct {
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Research  ResearchConfig  `yaml:"research"`
	Market    MarketConfig    `yaml:"market"`
	Agents    AgentsConfig    `yaml:"agents"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Includes  []string        `yaml:"includes,omitempty"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"` // text or json
	Output    string `yaml:"output"` // stdout, stderr, discard or a file path
	Service   string `yaml:"service"`
	AddSource bool   `yaml:"add_source"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"` // stdout or noop
	SampleRatio float64 `yaml:"sample_ratio"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// GatewayConfig holds HTTP API settings.
type GatewayConfig struct {
	Enabled        bool            `yaml:"enabled"`
	Addr           string          `yaml:"addr"`
	RequestTimeout time.Duration   `yaml:"request_timeout"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	Auth           AuthConfig      `yaml:"auth"`
	AccessLog      AccessLogConfig `yaml:"access_log"`
}

// AccessLogConfig enables the JSONL trail of API actions. An empty Path
// disables it.
type AccessLogConfig struct {
	Path    string        `yaml:"path"`
	MaxAge  time.Duration `yaml:"max_age"`
	MaxSize string        `yaml:"max_size"` // e.g. "10MB"
}

// RateLimitConfig is the per-client request budget. RequestsPerMin 0
// disables limiting.
type RateLimitConfig struct {
	RequestsPerMin int      `yaml:"requests_per_min"`
	Burst          int      `yaml:"burst"`
	TrustedProxies []string `yaml:"trusted_proxies,omitempty"`
}

// AuthConfig lists API tokens. No tokens leaves the API open.
type AuthConfig struct {
	Tokens []TokenConfig `yaml:"tokens,omitempty"`
}

// TokenConfig holds a single API token.
type TokenConfig struct {
	Token string   `yaml:"token"`
	Name  string   `yaml:"name"`
	Roles []string `yaml:"roles"`
}

// CatalogConfig points at the application database.
type CatalogConfig struct {
	DSN        string `yaml:"dsn"`
	Schema     string `yaml:"schema"`
	Bootstrap  bool   `yaml:"bootstrap"`   // create the application tables if missing
	RunArchive bool   `yaml:"run_archive"` // keep agent run history in the same database
}

// ResearchConfig selects and protects the research provider.
type ResearchConfig struct {
	Provider       string        `yaml:"provider"` // static or searxng
	SearXNGURL     string        `yaml:"searxng_url"`
	Timeout        time.Duration `yaml:"timeout"`
	RequestsPerMin int           `yaml:"requests_per_min"`
	Burst          int           `yaml:"burst"`
	Breaker        BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the research circuit breaker.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// MarketConfig holds pipeline settings.
type MarketConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// AgentsConfig holds settings shared by every agent.
type AgentsConfig struct {
	// ApplyDelay is the simulated time per effort unit when applying.
	ApplyDelay time.Duration `yaml:"apply_delay"`
	// Seed makes stochastic output reproducible. 0 seeds from the clock.
	Seed uint64 `yaml:"seed"`
}

// SchedulerConfig holds recurring agent runs.
type SchedulerConfig struct {
	Enabled bool                  `yaml:"enabled"`
	Tasks   []ScheduledTaskConfig `yaml:"tasks"`
}

// ScheduledTaskConfig defines one recurring agent run.
type ScheduledTaskConfig struct {
	Name      string        `yaml:"name"`
	Schedule  string        `yaml:"schedule"` // cron expression or duration
	Agent     string        `yaml:"agent"`
	Operation string        `yaml:"operation"`
	Priority  string        `yaml:"priority,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// defaultDataDir returns $HOME/.salesintel, or ./data without a home.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".salesintel")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr", Service: "salesintel"},
		Tracer: TracerConfig{Exporter: "noop", SampleRatio: 1},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Gateway: GatewayConfig{
			Addr:           "127.0.0.1:8420",
			RequestTimeout: 60 * time.Second,
			RateLimit:      RateLimitConfig{RequestsPerMin: 120, Burst: 20},
		},
		Catalog: CatalogConfig{
			DSN:        filepath.Join(defaultDataDir(), "salesintel.db"),
			Schema:     "public",
			Bootstrap:  true,
			RunArchive: true,
		},
		Research: ResearchConfig{
			Provider:       "static",
			Timeout:        15 * time.Second,
			RequestsPerMin: 60,
			Burst:          5,
			Breaker:        BreakerConfig{MaxFailures: 5, Timeout: 30 * time.Second, Interval: 60 * time.Second},
		},
		Market: MarketConfig{CacheTTL: time.Hour},
		Agents: AgentsConfig{ApplyDelay: 100 * time.Millisecond},
	}
}

// Load reads path (a missing file means defaults), merges includes,
// applies env overrides, decrypts secrets and validates.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: read config: %v", domain.ErrConfigLoad, err)
		}
		data = nil
	}

	if data != nil {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		if err := validatePermissions(absPath); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config: %v", domain.ErrConfigLoad, err)
		}
		if len(cfg.Includes) > 0 {
			visited := map[string]bool{absPath: true}
			if err := processIncludes(cfg, filepath.Dir(absPath), visited, 0); err != nil {
				return nil, err
			}
			// The main file wins over its includes.
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: parse config (second pass): %v", domain.ErrConfigLoad, err)
			}
			cfg.Includes = nil
		}
	}

	ApplyEnvOverrides(cfg)

	if passphrase := os.Getenv("SALESINTEL_CONFIG_KEY"); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	} else if hasEncrypted(cfg) {
		return nil, fmt.Errorf("%w: config has enc: values but SALESINTEL_CONFIG_KEY is not set", domain.ErrDecryption)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps SALESINTEL_* env vars onto cfg.
func ApplyEnvOverrides(cfg *Config) {
	setString := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	setBool := func(env string, dst *bool) {
		if v, err := strconv.ParseBool(os.Getenv(env)); err == nil {
			*dst = v
		}
	}
	setDuration := func(env string, dst *time.Duration) {
		if d, err := time.ParseDuration(os.Getenv(env)); err == nil {
			*dst = d
		}
	}

	setString("SALESINTEL_LOGGER_LEVEL", &cfg.Logger.Level)
	setString("SALESINTEL_LOGGER_FORMAT", &cfg.Logger.Format)
	setString("SALESINTEL_LOGGER_OUTPUT", &cfg.Logger.Output)
	setBool("SALESINTEL_TRACER_ENABLED", &cfg.Tracer.Enabled)
	setString("SALESINTEL_TRACER_EXPORTER", &cfg.Tracer.Exporter)
	setBool("SALESINTEL_METRICS_ENABLED", &cfg.Metrics.Enabled)
	setBool("SALESINTEL_GATEWAY_ENABLED", &cfg.Gateway.Enabled)
	setString("SALESINTEL_GATEWAY_ADDR", &cfg.Gateway.Addr)
	setString("SALESINTEL_CATALOG_DSN", &cfg.Catalog.DSN)
	setString("SALESINTEL_CATALOG_SCHEMA", &cfg.Catalog.Schema)
	setString("SALESINTEL_RESEARCH_PROVIDER", &cfg.Research.Provider)
	setString("SALESINTEL_RESEARCH_SEARXNG_URL", &cfg.Research.SearXNGURL)
	setDuration("SALESINTEL_MARKET_CACHE_TTL", &cfg.Market.CacheTTL)
	setDuration("SALESINTEL_AGENTS_APPLY_DELAY", &cfg.Agents.ApplyDelay)

	if v := os.Getenv("SALESINTEL_AGENTS_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Agents.Seed = seed
		}
	}
	if v := os.Getenv("SALESINTEL_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Auth.Tokens = append(cfg.Gateway.Auth.Tokens, TokenConfig{Token: v, Name: "env", Roles: []string{"admin"}})
	}
	if v := os.Getenv("SALESINTEL_GATEWAY_TRUSTED_PROXIES"); v != "" {
		cfg.Gateway.RateLimit.TrustedProxies = splitAndTrim(v, ",")
	}
	if v := os.Getenv("SALESINTEL_GATEWAY_ACCESS_LOG"); v != "" {
		cfg.Gateway.AccessLog.Path = v
	}
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// secretFields lists every value that may hold an "enc:" secret.
func secretFields(cfg *Config) map[string]*string {
	fields := map[string]*string{
		"catalog.dsn":          &cfg.Catalog.DSN,
		"research.searxng_url": &cfg.Research.SearXNGURL,
	}
	for i := range cfg.Gateway.Auth.Tokens {
		fields[fmt.Sprintf("gateway.auth.tokens[%d]", i)] = &cfg.Gateway.Auth.Tokens[i].Token
	}
	return fields
}

func hasEncrypted(cfg *Config) bool {
	for _, fp := range secretFields(cfg) {
		if strings.HasPrefix(*fp, "enc:") {
			return true
		}
	}
	return false
}

func decryptSecrets(cfg *Config, passphrase string) error {
	for name, fp := range secretFields(cfg) {
		if !strings.HasPrefix(*fp, "enc:") {
			continue
		}
		plain, err := DecryptValue(strings.TrimPrefix(*fp, "enc:"), passphrase)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*fp = plain
	}
	return nil
}

// EncryptValue seals plaintext with AES-256-GCM under a passphrase-derived
// key. The result is hex(salt) ":" hex(nonce+ciphertext).
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(sealed), nil
}

// DecryptValue reverses EncryptValue. Failures wrap domain.ErrDecryption.
func DecryptValue(encrypted, passphrase string) (string, error) {
	saltHex, dataHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		return "", fmt.Errorf("%w: invalid encrypted format", domain.ErrDecryption)
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("%w: decode salt: %v", domain.ErrDecryption, err)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", domain.ErrDecryption, err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", domain.ErrDecryption)
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}
	return string(plaintext), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions rejects config files writable by group or others.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o022 != 0 {
		return fmt.Errorf("%w: config file %s has insecure permissions %o (want 0600 or 0644)",
			domain.ErrConfigLoad, path, mode)
	}
	return nil
}
