package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRecencyWeightedAverage(t *testing.T) {
	m := NewMetrics()

	m.RecordSuccess(100 * time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, m.Snapshot().AverageExecutionTime)

	m.RecordSuccess(300 * time.Millisecond)
	assert.Equal(t, 200*time.Millisecond, m.Snapshot().AverageExecutionTime)

	// Third sample halves toward the newest value, not the cumulative mean (~233ms).
	m.RecordSuccess(400 * time.Millisecond)
	assert.Equal(t, 300*time.Millisecond, m.Snapshot().AverageExecutionTime)
}

func TestMetricsSuccessRate(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, 100.0, m.Snapshot().SuccessRate, "defaults to 100 with no operations")

	m.RecordSuccess(time.Millisecond)
	m.RecordSuccess(time.Millisecond)
	m.RecordSuccess(time.Millisecond)
	m.RecordFailure()

	snap := m.Snapshot()
	assert.InDelta(t, 75.0, snap.SuccessRate, 1e-9)
	assert.Equal(t, 4, snap.TotalOperations)
	assert.Equal(t, 3, snap.SuccessCount)
	assert.Equal(t, 1, snap.ErrorCount)
}

func TestMetricsLastActivityOnlyOnSuccess(t *testing.T) {
	m := NewMetrics()
	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return stamp }

	m.RecordFailure()
	assert.True(t, m.Snapshot().LastActivity.IsZero())

	m.RecordSuccess(time.Second)
	assert.Equal(t, stamp, m.Snapshot().LastActivity)
}
