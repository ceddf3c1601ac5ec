package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesintel/internal/domain"
)

func TestSimulatorSuccessProbability(t *testing.T) {
	s := Simulator{BroadTargetFactor: 0.85}
	tests := []struct {
		opt  domain.Optimization
		want float64
	}{
		{domain.Optimization{Effort: domain.LevelLow, Target: "sales-team"}, 0.9},
		{domain.Optimization{Effort: domain.LevelMedium, Target: "sales-team"}, 0.8},
		{domain.Optimization{Effort: domain.LevelHigh, Target: "sales-team"}, 0.7},
		{domain.Optimization{Effort: domain.LevelLow, Target: domain.TargetAll}, 0.9 * 0.85},
		{domain.Optimization{Effort: domain.LevelHigh, Target: domain.TargetAll}, 0.7 * 0.85},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, s.SuccessProbability(tt.opt), 1e-9)
	}
	assert.InDelta(t, 0.8, Simulator{}.SuccessProbability(domain.Optimization{Target: domain.TargetAll}), 1e-9)
}

func TestSimulatorApplyTallies(t *testing.T) {
	// 0.1 succeeds against any probability, 0.95 fails against all of them.
	rng := &fixedRandom{floats: []float64{0.1, 0.95, 0.1}}
	s := Simulator{Random: rng, BroadTargetFactor: 0.9}
	opts := []domain.Optimization{
		{ID: "one", Impact: domain.LevelHigh, Effort: domain.LevelLow, Target: "sales-team"},
		{ID: "two", Impact: domain.LevelMedium, Effort: domain.LevelMedium, Target: "sales-team"},
		{ID: "three", Impact: domain.LevelMedium, Effort: domain.LevelHigh},
	}

	res, err := s.Apply(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, map[string]int{"sales-team": 3, domain.TargetAll: 2}, res.ImpactByTarget)
	require.Len(t, res.Details, 3)
	assert.False(t, res.Details[1].Success)
	assert.Equal(t, domain.TargetAll, res.Details[2].Target)
}

func TestSimulatorApplyCancelled(t *testing.T) {
	s := Simulator{Random: NewRandom(1), BaseDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Apply(ctx, []domain.Optimization{{ID: "slow", Effort: domain.LevelHigh}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSimulatorApplyEmpty(t *testing.T) {
	res, err := Simulator{Random: NewRandom(1)}.Apply(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Applied)
	assert.NotNil(t, res.ImpactByTarget)
}
