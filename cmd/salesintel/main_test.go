package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesintel/internal/domain"
	"salesintel/internal/infra/config"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "salesintel.yaml")
	cfg := `
logger:
  output: discard
metrics:
  enabled: true
catalog:
  dsn: ` + filepath.Join(dir, "data", "app.db") + `
  bootstrap: true
  run_archive: true
research:
  provider: static
agents:
  apply_delay: 0s
  seed: 42
`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func TestContextFlag(t *testing.T) {
	kv := contextFlag{}
	require.NoError(t, kv.Set("business_case_minutes=420"))
	require.NoError(t, kv.Set("segment = enterprise"))
	require.NoError(t, kv.Set("pilot=true"))

	assert.Equal(t, 420.0, kv["business_case_minutes"])
	assert.Equal(t, "enterprise", kv["segment"])
	assert.Equal(t, true, kv["pilot"])

	assert.Error(t, kv.Set("novalue"))
	assert.Error(t, kv.Set("=x"))
}

func TestRunAgentJSON(t *testing.T) {
	path := writeTestConfig(t)
	var out bytes.Buffer
	err := runAgent([]string{"--config", path, "--json", "--priority", "high",
		"--context", "icp_match_rate=0.9", "prospect-qualification-optimizer"}, &out)
	require.NoError(t, err)

	var result domain.AgentResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &struct {
		*domain.AgentResult
		Analysis json.RawMessage `json:"analysis"`
	}{AgentResult: &result}))
	assert.Equal(t, domain.AgentProspectQualification, result.AgentType)
	assert.Equal(t, domain.StatusOptimizationComplete, result.Status)
	assert.NotEmpty(t, result.RunID)
}

func TestRunAgentBackupRendersSummary(t *testing.T) {
	path := writeTestConfig(t)
	var out bytes.Buffer
	require.NoError(t, runAgent([]string{"--config", path, "backup-agent", "safety_backup"}, &out))
	assert.Contains(t, out.String(), "backup-agent")
	assert.Contains(t, out.String(), "safety_backup")
}

func TestRunAgentErrors(t *testing.T) {
	path := writeTestConfig(t)
	var out bytes.Buffer
	assert.Error(t, runAgent([]string{"--config", path}, &out))

	err := runAgent([]string{"--config", path, "nope-agent"}, &out)
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
}

func TestStatusListsArchivedRuns(t *testing.T) {
	path := writeTestConfig(t)
	require.NoError(t, runAgent([]string{"--config", path, "--json", "audit-agent", "security_audit"}, &bytes.Buffer{}))

	var out bytes.Buffer
	require.NoError(t, runStatus([]string{"--config", path, "--json"}, &out))

	type archived struct {
		AgentType string `json:"agentType"`
	}
	var status struct {
		Agents     []domain.AgentStatus          `json:"agents"`
		Operations map[domain.AgentType][]string `json:"operations"`
		Runs       []archived                    `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &status))
	assert.Len(t, status.Agents, 5)
	assert.Contains(t, status.Operations[domain.AgentBackup], "safety_backup")
	require.Len(t, status.Runs, 1)
	assert.Equal(t, "audit-agent", status.Runs[0].AgentType)
}

func TestMarketCommand(t *testing.T) {
	path := writeTestConfig(t)
	var out bytes.Buffer
	require.NoError(t, runMarket([]string{"--config", path, "--json", "--industry", "fintech", "--product", "Ledger"}, &out))

	var report domain.MarketIntelligenceReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "fintech", report.Request.Industry)
	require.NotNil(t, report.IndustryContext)
	assert.Equal(t, "$310B", report.IndustryContext.MarketSize)

	assert.Error(t, runMarket([]string{"--config", path}, &out))
}

func TestEncryptRequiresKey(t *testing.T) {
	t.Setenv("SALESINTEL_CONFIG_KEY", "")
	assert.Error(t, runEncrypt([]string{"secret"}, &bytes.Buffer{}))

	t.Setenv("SALESINTEL_CONFIG_KEY", "passphrase")
	var out bytes.Buffer
	require.NoError(t, runEncrypt([]string{"secret"}, &out))
	assert.Contains(t, out.String(), "enc:")
}

func TestOpenAccessLogTrims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.jsonl")
	old := `{"timestamp":"2020-01-01T00:00:00Z","actor":"crm","resource":"market","action":"analyze","outcome":"success"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(old), 0o600))

	access, err := openAccessLog(context.Background(), config.AccessLogConfig{Path: path, MaxAge: 24 * time.Hour})
	require.NoError(t, err)
	require.NoError(t, access.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = openAccessLog(context.Background(), config.AccessLogConfig{Path: path, MaxSize: "huge"})
	assert.Error(t, err)
}
