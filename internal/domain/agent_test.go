package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityRankAndBonus(t *testing.T) {
	tests := []struct {
		p     Priority
		rank  int
		bonus float64
	}{
		{PriorityCritical, 3, 0.1},
		{PriorityHigh, 2, 0.05},
		{PriorityMedium, 1, 0},
		{PriorityLow, 0, 0},
		{Priority("urgent"), 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.rank, tt.p.Rank(), tt.p)
		assert.InDelta(t, tt.bonus, tt.p.Bonus(), 1e-9, tt.p)
	}
}

func TestLevelWeight(t *testing.T) {
	assert.Equal(t, 1, LevelLow.Weight())
	assert.Equal(t, 2, LevelMedium.Weight())
	assert.Equal(t, 3, LevelHigh.Weight())
	assert.Equal(t, 2, Level("extreme").Weight())
}

func TestAnalysisKinds(t *testing.T) {
	variants := map[AgentType]Analysis{
		AgentProspectQualification: &ICPPerformanceAnalysis{},
		AgentDealValue:             &DealValuePerformanceAnalysis{},
		AgentSalesMaterials:        &SalesMaterialsPerformanceAnalysis{},
		AgentBackup:                &BackupAnalysis{},
		AgentAudit:                 &AuditReport{},
	}
	for want, a := range variants {
		assert.Equal(t, want, a.Kind())
		a.Base().Bottlenecks = append(a.Base().Bottlenecks, "x")
		assert.Len(t, a.Base().Bottlenecks, 1)
	}
}

func TestNewEventMarshalsPayload(t *testing.T) {
	ev := NewEvent(EventAgentRunCompleted, "audit-agent", AgentRunPayload{RunID: "r1", AgentType: AgentAudit, Applied: 2})
	assert.Equal(t, EventAgentRunCompleted, ev.Type)
	assert.False(t, ev.Timestamp.IsZero())

	var p AgentRunPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	assert.Equal(t, "r1", p.RunID)
	assert.Equal(t, 2, p.Applied)

	assert.Nil(t, NewEvent(EventScheduledRunFired, "scheduler", nil).Payload)
}
