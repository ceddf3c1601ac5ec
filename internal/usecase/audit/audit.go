// Package audit implements the database audit agent. Query statistics,
// integrity findings and security posture are fixed samples; the integrity
// scoring and the finding-to-recommendation rules are real.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"salesintel/internal/domain"
	"salesintel/internal/infra/tracer"
	"salesintel/internal/usecase/agent"
)

// Supported operations.
const (
	OpPerformance   = "performance_audit"
	OpIntegrity     = "data_integrity_audit"
	OpSecurity      = "security_audit"
	OpComprehensive = "comprehensive_audit"
)

// IntegrityTarget is the score below which integrity becomes a bottleneck.
const IntegrityTarget = 80

// Options configures the audit agent.
type Options struct {
	Catalog    domain.Catalog
	Schema     string
	Random     agent.Random
	ApplyDelay time.Duration
	Events     domain.EventPublisher
	Logger     *slog.Logger
}

type phases struct {
	catalog domain.Catalog
	schema  string
	sim     agent.Simulator
}

// New creates the audit agent.
func New(o Options) *agent.Runner {
	rng := o.Random
	if rng == nil {
		rng = agent.NewTimeSeededRandom()
	}
	schema := o.Schema
	if schema == "" {
		schema = "public"
	}
	return agent.NewRunner(agent.Config{
		Type:             domain.AgentAudit,
		DefaultOperation: OpComprehensive,
		Operations:       []string{OpPerformance, OpIntegrity, OpSecurity, OpComprehensive},
		Phases: &phases{
			catalog: o.Catalog,
			schema:  schema,
			sim:     agent.Simulator{BaseDelay: o.ApplyDelay, Random: rng},
		},
		Events: o.Events,
		Logger: o.Logger,
	})
}

func (p *phases) Analyze(ctx context.Context, operation string, _ domain.AgentContext) (domain.Analysis, error) {
	report := &domain.AuditReport{}
	var err error
	switch operation {
	case OpPerformance:
		report.Performance, err = p.performance(ctx)
	case OpIntegrity:
		report.Integrity, err = integrity(ctx)
	case OpSecurity:
		report.Security, err = security(ctx)
	case OpComprehensive:
		err = p.comprehensive(ctx, report)
	default:
		return nil, domain.NewSubSystemError("audit", "audit.Analyze", domain.ErrUnknownOperation, operation)
	}
	if err != nil {
		return nil, err
	}
	summarize(report)
	return report, nil
}

// comprehensive runs the three sub-audits concurrently. The first failure
// cancels the others and fails the whole audit.
func (p *phases) comprehensive(ctx context.Context, report *domain.AuditReport) error {
	ctx, span := tracer.StartSpan(ctx, "audit.comprehensive")
	defer span.End()

	var (
		perf  *domain.PerformanceAudit
		integ *domain.IntegrityAudit
		sec   *domain.SecurityAudit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		perf, err = p.performance(gctx)
		return err
	})
	g.Go(func() (err error) {
		integ, err = integrity(gctx)
		return err
	})
	g.Go(func() (err error) {
		sec, err = security(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		tracer.RecordError(span, err)
		return err
	}
	report.Performance, report.Integrity, report.Security = perf, integ, sec
	tracer.SetOK(span)
	return nil
}

func (p *phases) performance(ctx context.Context) (*domain.PerformanceAudit, error) {
	if p.catalog == nil {
		return nil, domain.NewSubSystemError("audit", "audit.performance", domain.ErrCatalog, "no catalog configured")
	}
	tables, err := p.catalog.ListTables(ctx, p.schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return &domain.PerformanceAudit{
		Tables:               tables,
		QueryPerformance:     append([]domain.QueryStat(nil), sampleQueryStats...),
		SlowQueries:          append([]domain.SlowQuery(nil), sampleSlowQueries...),
		IndexRecommendations: append([]domain.IndexRecommendation(nil), sampleIndexRecommendations...),
	}, nil
}

func integrity(ctx context.Context) (*domain.IntegrityAudit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	issues := append([]domain.AuditIssue(nil), sampleIntegrityIssues...)
	return &domain.IntegrityAudit{
		Issues:         issues,
		IntegrityScore: domain.IntegrityScore(issues),
	}, nil
}

func security(ctx context.Context) (*domain.SecurityAudit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rls := make(map[string]bool, len(sampleRLSStatus))
	for k, v := range sampleRLSStatus {
		rls[k] = v
	}
	return &domain.SecurityAudit{
		RLSStatus:   rls,
		PolicyCount: samplePolicyCount,
		Issues:      append([]domain.SecurityIssue(nil), sampleSecurityIssues...),
	}, nil
}

// summarize derives bottlenecks and opportunities from the findings.
func summarize(r *domain.AuditReport) {
	if r.Performance != nil {
		for _, q := range r.Performance.SlowQueries {
			r.Bottlenecks = append(r.Bottlenecks, fmt.Sprintf("slow queries on %s", q.Table))
		}
		if len(r.Performance.IndexRecommendations) > 0 {
			r.Opportunities = append(r.Opportunities, "targeted indexing")
		}
	}
	if r.Integrity != nil && r.Integrity.IntegrityScore < IntegrityTarget {
		r.Bottlenecks = append(r.Bottlenecks, fmt.Sprintf("data integrity score %d", r.Integrity.IntegrityScore))
		r.Opportunities = append(r.Opportunities, "constraint enforcement")
	}
	if r.Security != nil {
		for _, table := range slices.Sorted(maps.Keys(r.Security.RLSStatus)) {
			if !r.Security.RLSStatus[table] {
				r.Bottlenecks = append(r.Bottlenecks, "row level security disabled on "+table)
			}
		}
	}
}

func (p *phases) Generate(_ context.Context, _ string, analysis domain.Analysis) ([]domain.Optimization, error) {
	r, ok := analysis.(*domain.AuditReport)
	if !ok {
		return nil, fmt.Errorf("unexpected analysis %T", analysis)
	}
	var opts []domain.Optimization
	if r.Performance != nil {
		for _, rec := range r.Performance.IndexRecommendations {
			opts = append(opts, domain.Optimization{
				ID:             fmt.Sprintf("index-%s-%s", rec.Table, strings.Join(rec.Columns, "-")),
				Type:           domain.OptimizationIndex,
				Title:          fmt.Sprintf("Add index on %s(%s)", rec.Table, strings.Join(rec.Columns, ", ")),
				Description:    rec.Reason,
				Impact:         rec.Impact,
				Effort:         domain.LevelLow,
				Implementation: []string{fmt.Sprintf("CREATE INDEX CONCURRENTLY ON %s (%s)", rec.Table, strings.Join(rec.Columns, ", "))},
				Target:         rec.Table,
			})
		}
	}
	if r.Integrity != nil {
		for _, issue := range r.Integrity.Issues {
			if issue.Severity != domain.SeverityHigh && issue.Severity != domain.SeverityCritical {
				continue
			}
			opts = append(opts, domain.Optimization{
				ID:             "integrity-" + issue.ID,
				Type:           domain.OptimizationDataQuality,
				Title:          "Fix " + issue.Type + " in " + issue.Table,
				Description:    issue.Description,
				Impact:         domain.LevelHigh,
				Effort:         domain.LevelMedium,
				Implementation: []string{issue.Recommendation},
				Target:         issue.Table,
			})
		}
	}
	if r.Security != nil {
		for _, issue := range r.Security.Issues {
			opts = append(opts, domain.Optimization{
				ID:             "security-" + issue.ID,
				Type:           domain.OptimizationSecurity,
				Title:          "Resolve " + issue.Type,
				Description:    issue.Description,
				Impact:         severityImpact(issue.Severity),
				Effort:         domain.LevelLow,
				Implementation: []string{issue.Recommendation},
				Target:         issue.Table,
			})
		}
	}
	return append(opts, agent.BottleneckOptimizations(r)...), nil
}

func (p *phases) Apply(ctx context.Context, _ string, _ domain.Analysis, opts []domain.Optimization) (*domain.ApplyResults, error) {
	return p.sim.Apply(ctx, opts)
}

func severityImpact(s domain.Severity) domain.Level {
	switch s {
	case domain.SeverityCritical, domain.SeverityHigh:
		return domain.LevelHigh
	case domain.SeverityLow:
		return domain.LevelLow
	default:
		return domain.LevelMedium
	}
}
