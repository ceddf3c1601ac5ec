// Package optimizer implements the prospect-qualification, deal-value and
// sales-materials optimization agents. All three share one shape: synthetic
// metrics from a baseline plus priority bonus plus jitter, threshold rules
// that emit at most one recommendation per metric, one generic
// recommendation per sampled bottleneck, and a simulated apply phase.
package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"salesintel/internal/domain"
	"salesintel/internal/usecase/agent"
)

// DefaultOperation is the operation Activate runs.
const DefaultOperation = "optimize"

// Options are shared by the three optimizer constructors.
type Options struct {
	Random     agent.Random
	ApplyDelay time.Duration // per effort unit; zero disables sleeping
	Events     domain.EventPublisher
	Logger     *slog.Logger
}

func (o Options) random() agent.Random {
	if o.Random == nil {
		return agent.NewTimeSeededRandom()
	}
	return o.Random
}

// rule emits opt when cond holds for the analysis.
type rule[A domain.Analysis] struct {
	cond func(A) bool
	opt  func(A) domain.Optimization
}

// applyRules evaluates rules in order, then appends one recommendation per bottleneck.
func applyRules[A domain.Analysis](a A, rules []rule[A]) []domain.Optimization {
	opts := make([]domain.Optimization, 0, len(rules)+len(a.Base().Bottlenecks))
	for _, r := range rules {
		if r.cond(a) {
			opts = append(opts, r.opt(a))
		}
	}
	return append(opts, agent.BottleneckOptimizations(a)...)
}

// observed returns a caller-supplied measurement for key when the context
// carries one, so real telemetry can replace the synthetic value.
func observed(actx domain.AgentContext, key string) (float64, bool) {
	v, ok := actx.Context[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// metric returns the observed value for key or samples spec with bonus.
func metric(r agent.Random, actx domain.AgentContext, key string, spec agent.MetricSpec, bonus float64) float64 {
	if v, ok := observed(actx, key); ok {
		return agent.Clamp(v, spec.Min, spec.Max)
	}
	return spec.Sample(r, bonus)
}

// simulatedApply adapts agent.Simulator to the Phases.Apply signature.
type simulatedApply struct {
	sim agent.Simulator
}

func (s simulatedApply) Apply(ctx context.Context, _ string, _ domain.Analysis, opts []domain.Optimization) (*domain.ApplyResults, error) {
	return s.sim.Apply(ctx, opts)
}

func newRunner(t domain.AgentType, phases agent.Phases, o Options) *agent.Runner {
	return agent.NewRunner(agent.Config{
		Type:             t,
		DefaultOperation: DefaultOperation,
		Phases:           phases,
		Events:           o.Events,
		Logger:           o.Logger,
	})
}

func castAnalysis[A domain.Analysis](a domain.Analysis) (A, error) {
	typed, ok := a.(A)
	if !ok {
		var zero A
		return zero, fmt.Errorf("unexpected analysis %T", a)
	}
	return typed, nil
}
