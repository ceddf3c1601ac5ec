package agent

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"salesintel/internal/domain"
	"salesintel/internal/infra/tracer"
)

// Phases is the domain-specific half of the execution contract.
type Phases interface {
	// Analyze builds the analysis report from the invocation context.
	Analyze(ctx context.Context, operation string, actx domain.AgentContext) (domain.Analysis, error)
	// Generate derives recommendations from an analysis. It must be deterministic.
	Generate(ctx context.Context, operation string, analysis domain.Analysis) ([]domain.Optimization, error)
	// Apply carries out (or simulates) the recommendations.
	Apply(ctx context.Context, operation string, analysis domain.Analysis, opts []domain.Optimization) (*domain.ApplyResults, error)
}

// Config configures a Runner.
type Config struct {
	Type             domain.AgentType
	DefaultOperation string
	// Operations lists the accepted operation names. Empty accepts anything.
	Operations []string
	Phases     Phases
	Events     domain.EventPublisher // optional
	Logger     *slog.Logger
}

// Runner drives the analyze, generate and apply phases for one agent
// instance and owns its metrics. Invocations on one Runner are serialized.
type Runner struct {
	agentType  domain.AgentType
	defaultOp  string
	operations []string
	phases     Phases
	events     domain.EventPublisher
	logger     *slog.Logger

	sem     chan struct{}
	active  atomic.Bool
	metrics *Metrics
	now     func() time.Time

	mu                sync.RWMutex
	lastAnalysis      domain.Analysis
	lastOptimizations []domain.Optimization
}

// NewRunner creates a Runner.
func NewRunner(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		agentType:  cfg.Type,
		defaultOp:  cfg.DefaultOperation,
		operations: slices.Clone(cfg.Operations),
		phases:     cfg.Phases,
		events:     cfg.Events,
		logger:     logger.With("agent", string(cfg.Type)),
		sem:        make(chan struct{}, 1),
		metrics:    NewMetrics(),
		now:        time.Now,
	}
}

// Type implements domain.Agent.
func (r *Runner) Type() domain.AgentType { return r.agentType }

// Operations implements domain.Agent.
func (r *Runner) Operations() []string { return slices.Clone(r.operations) }

// Activate runs the default operation.
func (r *Runner) Activate(ctx context.Context, actx domain.AgentContext) (*domain.AgentResult, error) {
	return r.Execute(ctx, r.defaultOp, actx)
}

// Execute runs one invocation. A concurrent call waits for the running one
// to finish or for ctx to be done.
func (r *Runner) Execute(ctx context.Context, operation string, actx domain.AgentContext) (*domain.AgentResult, error) {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		r.metrics.RecordFailure()
		return r.failed("", operation, time.Now(), ctx.Err()), ctx.Err()
	}
	defer func() { <-r.sem }()

	r.active.Store(true)
	defer r.active.Store(false)

	start := r.now()
	runID := newRunID(start)

	ctx, span := tracer.StartSpan(ctx, "agent.execute",
		tracer.StringAttr("agent.type", string(r.agentType)),
		tracer.StringAttr("agent.operation", operation),
		tracer.StringAttr("agent.run_id", runID),
		tracer.StringAttr("agent.priority", string(actx.Priority)),
	)
	defer span.End()

	r.publish(ctx, domain.EventAgentRunStarted, domain.AgentRunPayload{
		RunID: runID, AgentType: r.agentType, Operation: operation, Priority: actx.Priority,
	})
	r.logger.Debug("agent run started", "run_id", runID, "operation", operation, "priority", actx.Priority)

	result, err := r.run(ctx, operation, actx)
	elapsed := r.now().Sub(start)

	if err != nil {
		r.metrics.RecordFailure()
		tracer.RecordError(span, err)
		r.logger.Warn("agent run failed", "run_id", runID, "operation", operation, "error", err, "duration", elapsed)
		r.publish(ctx, domain.EventAgentRunFailed, domain.AgentRunPayload{
			RunID: runID, AgentType: r.agentType, Operation: operation, Duration: elapsed, Error: err.Error(),
		})
		return r.failed(runID, operation, start, err), err
	}

	r.metrics.RecordSuccess(elapsed)
	perf := r.metrics.Snapshot()

	result.RunID = runID
	result.AgentType = r.agentType
	result.Operation = operation
	result.Status = domain.StatusOptimizationComplete
	result.Performance = &perf
	result.StartedAt = start
	result.CompletedAt = start.Add(elapsed)

	tracer.SetOK(span)
	r.logger.Info("agent run completed",
		"run_id", runID,
		"operation", operation,
		"optimizations", len(result.Optimizations),
		"applied", result.Results.Applied,
		"failed", result.Results.Failed,
		"duration", elapsed,
	)
	r.publish(ctx, domain.EventAgentRunCompleted, domain.AgentRunPayload{
		RunID:         runID,
		AgentType:     r.agentType,
		Operation:     operation,
		Priority:      actx.Priority,
		Duration:      elapsed,
		Optimizations: len(result.Optimizations),
		Applied:       result.Results.Applied,
		Failed:        result.Results.Failed,
	})
	return result, nil
}

func (r *Runner) run(ctx context.Context, operation string, actx domain.AgentContext) (*domain.AgentResult, error) {
	if len(r.operations) > 0 && !slices.Contains(r.operations, operation) {
		return nil, domain.NewSubSystemError(subsystemOf(r.agentType), "Runner.Execute",
			domain.ErrUnknownOperation, fmt.Sprintf("operation %q", operation))
	}

	analyzeCtx, span := tracer.StartSpan(ctx, "agent.analyze")
	analysis, err := r.phases.Analyze(analyzeCtx, operation, actx)
	endPhase(span, err)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	r.mu.Lock()
	r.lastAnalysis = analysis
	r.mu.Unlock()

	genCtx, span := tracer.StartSpan(ctx, "agent.generate")
	opts, err := r.phases.Generate(genCtx, operation, analysis)
	endPhase(span, err)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	r.mu.Lock()
	r.lastOptimizations = opts
	r.mu.Unlock()

	applyCtx, span := tracer.StartSpan(ctx, "agent.apply", tracer.IntAttr("agent.optimizations", len(opts)))
	applied, err := r.phases.Apply(applyCtx, operation, analysis, opts)
	endPhase(span, err)
	if err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}
	if applied == nil {
		applied = &domain.ApplyResults{ImpactByTarget: map[string]int{}}
	}

	return &domain.AgentResult{
		Analysis:      analysis,
		Optimizations: opts,
		Results:       applied,
	}, nil
}

func (r *Runner) failed(runID, operation string, start time.Time, err error) *domain.AgentResult {
	return &domain.AgentResult{
		RunID:       runID,
		AgentType:   r.agentType,
		Operation:   operation,
		Status:      domain.StatusFailed,
		Error:       err.Error(),
		StartedAt:   start,
		CompletedAt: r.now(),
	}
}

// Status implements domain.Agent. It never blocks on a running invocation.
func (r *Runner) Status() domain.AgentStatus {
	perf := r.metrics.Snapshot()
	return domain.AgentStatus{
		AgentType:    r.agentType,
		IsActive:     r.active.Load(),
		IsReady:      r.phases != nil,
		LastActivity: perf.LastActivity,
		Performance:  perf,
		ErrorCount:   perf.ErrorCount,
		SuccessCount: perf.SuccessCount,
	}
}

// LastAnalysis returns the analysis of the most recent invocation, or nil.
func (r *Runner) LastAnalysis() domain.Analysis {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastAnalysis
}

// LastOptimizations returns the recommendations of the most recent invocation.
func (r *Runner) LastOptimizations() []domain.Optimization {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.lastOptimizations)
}

func (r *Runner) publish(ctx context.Context, eventType domain.EventType, payload domain.AgentRunPayload) {
	if r.events == nil {
		return
	}
	r.events.Publish(ctx, domain.NewEvent(eventType, string(r.agentType), payload))
}

func endPhase(span trace.Span, err error) {
	if err != nil {
		tracer.RecordError(span, err)
	}
	span.End()
}

func subsystemOf(t domain.AgentType) string {
	switch t {
	case domain.AgentBackup:
		return "backup"
	case domain.AgentAudit:
		return "audit"
	default:
		return "optimizer"
	}
}

// newRunID returns a ULID for the run started at t.
func newRunID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
