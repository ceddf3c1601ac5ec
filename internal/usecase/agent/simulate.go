package agent

import (
	"context"
	"fmt"
	"time"

	"salesintel/internal/domain"
)

// Simulator performs the apply phase. Nothing is actually changed: each
// recommendation sleeps for a scaled delay and then succeeds with a
// probability derived from its effort and target breadth.
type Simulator struct {
	// BaseDelay is multiplied by the effort weight (1, 2, 3) per recommendation.
	BaseDelay time.Duration
	// BroadTargetFactor scales the success probability of "all"-target
	// recommendations. Zero means 1.0.
	BroadTargetFactor float64
	Random            Random
}

// SuccessProbability returns the chance that opt applies successfully.
func (s Simulator) SuccessProbability(opt domain.Optimization) float64 {
	p := effortProbability(opt.Effort)
	if opt.Target == domain.TargetAll && s.BroadTargetFactor > 0 {
		p *= s.BroadTargetFactor
	}
	return p
}

// Apply simulates every optimization in order and tallies the outcome.
func (s Simulator) Apply(ctx context.Context, opts []domain.Optimization) (*domain.ApplyResults, error) {
	results := &domain.ApplyResults{
		ImpactByTarget: make(map[string]int),
		Details:        make([]domain.AppliedOptimization, 0, len(opts)),
	}
	for _, opt := range opts {
		if err := sleepCtx(ctx, s.BaseDelay*time.Duration(opt.Effort.Weight())); err != nil {
			return nil, fmt.Errorf("apply %s: %w", opt.ID, err)
		}

		ok := s.Random.Float64() < s.SuccessProbability(opt)
		target := opt.Target
		if target == "" {
			target = domain.TargetAll
		}
		if ok {
			results.Applied++
			results.ImpactByTarget[target] += opt.Impact.Weight()
		} else {
			results.Failed++
		}
		results.Details = append(results.Details, domain.AppliedOptimization{
			ID:      opt.ID,
			Target:  target,
			Success: ok,
		})
	}
	return results, nil
}

func effortProbability(effort domain.Level) float64 {
	switch effort {
	case domain.LevelLow:
		return 0.9
	case domain.LevelHigh:
		return 0.7
	default:
		return 0.8
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
