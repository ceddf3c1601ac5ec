package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesintel/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	require.NoError(t, os.Chmod(path, mode))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, time.Hour, cfg.Market.CacheTTL)
	assert.Equal(t, "static", cfg.Research.Provider)
	assert.Equal(t, "public", cfg.Catalog.Schema)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Gateway.Addr, cfg.Gateway.Addr)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "salesintel.yaml", `
logger:
  level: debug
  format: json
research:
  provider: searxng
  searxng_url: http://searx.local:8080
  breaker:
    max_failures: 3
market:
  cache_ttl: 15m
scheduler:
  enabled: true
  tasks:
    - name: nightly-safety
      schedule: "0 2 * * *"
      agent: backup-agent
      operation: safety_backup
      priority: high
`, 0o600)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "searxng", cfg.Research.Provider)
	assert.Equal(t, uint32(3), cfg.Research.Breaker.MaxFailures)
	assert.Equal(t, 30*time.Second, cfg.Research.Breaker.Timeout, "unset fields keep defaults")
	assert.Equal(t, 15*time.Minute, cfg.Market.CacheTTL)
	require.Len(t, cfg.Scheduler.Tasks, 1)
	assert.Equal(t, "safety_backup", cfg.Scheduler.Tasks[0].Operation)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "logger: [", 0o600)
	_, err := Load(path)
	require.ErrorIs(t, err, domain.ErrConfigLoad)
}

func TestLoadRejectsWritablePermissions(t *testing.T) {
	path := writeFile(t, t.TempDir(), "open.yaml", "logger:\n  level: info\n", 0o666)
	_, err := Load(path)
	require.ErrorIs(t, err, domain.ErrConfigLoad)
	assert.Contains(t, err.Error(), "insecure permissions")
}

func TestLoadValidationFailure(t *testing.T) {
	path := writeFile(t, t.TempDir(), "invalid.yaml", "market:\n  cache_ttl: -1s\n", 0o644)
	_, err := Load(path)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Errors, "market.cache_ttl must be > 0")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SALESINTEL_LOGGER_LEVEL", "warn")
	t.Setenv("SALESINTEL_TRACER_ENABLED", "true")
	t.Setenv("SALESINTEL_GATEWAY_ADDR", "0.0.0.0:9000")
	t.Setenv("SALESINTEL_GATEWAY_TOKEN", "token-from-the-environment")
	t.Setenv("SALESINTEL_GATEWAY_TRUSTED_PROXIES", "10.0.0.1, 10.0.0.2,")
	t.Setenv("SALESINTEL_MARKET_CACHE_TTL", "5m")
	t.Setenv("SALESINTEL_AGENTS_SEED", "42")
	t.Setenv("SALESINTEL_METRICS_ENABLED", "not-a-bool")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.True(t, cfg.Tracer.Enabled)
	assert.Equal(t, "0.0.0.0:9000", cfg.Gateway.Addr)
	require.Len(t, cfg.Gateway.Auth.Tokens, 1)
	assert.Equal(t, "token-from-the-environment", cfg.Gateway.Auth.Tokens[0].Token)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Gateway.RateLimit.TrustedProxies)
	assert.Equal(t, 5*time.Minute, cfg.Market.CacheTTL)
	assert.Equal(t, uint64(42), cfg.Agents.Seed)
	assert.True(t, cfg.Metrics.Enabled, "unparseable bools are ignored")
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := EncryptValue("super-secret-api-token", "passphrase")
	require.NoError(t, err)
	assert.NotContains(t, enc, "super-secret")

	plain, err := DecryptValue(enc, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "super-secret-api-token", plain)

	_, err = DecryptValue(enc, "wrong")
	require.ErrorIs(t, err, domain.ErrDecryption)

	for _, bad := range []string{"nocolon", "zz:00", "00:zz", "00:00"} {
		_, err = DecryptValue(bad, "passphrase")
		assert.ErrorIs(t, err, domain.ErrDecryption, bad)
	}
}

func TestLoadDecryptsSecrets(t *testing.T) {
	enc, err := EncryptValue("gateway-token-0123456789", "k3y")
	require.NoError(t, err)
	path := writeFile(t, t.TempDir(), "secrets.yaml", `
gateway:
  enabled: true
  auth:
    tokens:
      - name: ci
        token: "enc:`+enc+`"
`, 0o600)

	_, err = Load(path)
	require.ErrorIs(t, err, domain.ErrDecryption, "enc: values need a key")

	t.Setenv("SALESINTEL_CONFIG_KEY", "k3y")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gateway-token-0123456789", cfg.Gateway.Auth.Tokens[0].Token)

	t.Setenv("SALESINTEL_CONFIG_KEY", "other")
	_, err = Load(path)
	require.ErrorIs(t, err, domain.ErrDecryption)
}

func TestIncludesMergeAndMainWins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "conf.d"), 0o755))
	writeFile(t, dir, "conf.d/research.yaml", "research:\n  requests_per_min: 10\n  burst: 2\nlogger:\n  level: error\n", 0o600)
	path := writeFile(t, dir, "main.yaml", "includes:\n  - conf.d/*.yaml\nlogger:\n  level: debug\n", 0o600)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Research.RequestsPerMin)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Empty(t, cfg.Includes)
}

func TestIncludesErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "includes: [b.yaml]\n", 0o600)
	writeFile(t, dir, "b.yaml", "includes: [a.yaml]\n", 0o600)
	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular")

	writeFile(t, dir, "escape.yaml", "includes: [../outside.yaml]\n", 0o600)
	_, err = Load(filepath.Join(dir, "escape.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")

	writeFile(t, dir, "missing.yaml", "includes: [nope.yaml]\n", 0o600)
	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")

	writeFile(t, dir, "glob.yaml", "includes: [\"extra/*.yaml\"]\n", 0o600)
	_, err = Load(filepath.Join(dir, "glob.yaml"))
	require.NoError(t, err, "an empty glob is not an error")
}
