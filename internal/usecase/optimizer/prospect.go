package optimizer

import (
	"context"
	"fmt"

	"salesintel/internal/domain"
	"salesintel/internal/usecase/agent"
)

var (
	qualificationAccuracySpec = agent.MetricSpec{Base: 0.72, Spread: 0.1, Min: 0.5, Max: 1.0}
	leadScoringPrecisionSpec  = agent.MetricSpec{Base: 0.68, Spread: 0.1, Min: 0.5, Max: 1.0}
	icpMatchRateSpec          = agent.MetricSpec{Base: 0.65, Spread: 0.12, Min: 0.5, Max: 1.0}
	conversionRateSpec        = agent.MetricSpec{Base: 0.58, Spread: 0.08, Min: 0.5, Max: 1.0}
	qualificationTimeSpec     = agent.MetricSpec{Base: 35, Spread: 20, Min: 5, Max: 120}
)

var prospectBottlenecks = []string{
	"manual lead research",
	"incomplete firmographic data",
	"stale ICP definition",
	"inconsistent scoring criteria",
	"slow SDR handoff",
	"missing intent signals",
}

var prospectOpportunities = []string{
	"intent data enrichment",
	"automated lead scoring",
	"lookalike account modeling",
	"closed-loop feedback from sales",
	"segment-specific messaging",
}

var prospectRules = []rule[*domain.ICPPerformanceAnalysis]{
	{
		cond: func(a *domain.ICPPerformanceAnalysis) bool { return a.QualificationAccuracy < 0.8 },
		opt: func(a *domain.ICPPerformanceAnalysis) domain.Optimization {
			return domain.Optimization{
				ID:          "qualification-accuracy-1",
				Type:        domain.OptimizationScoringModel,
				Title:       "Recalibrate qualification criteria",
				Description: fmt.Sprintf("Qualification accuracy is %.0f%%; retrain criteria on closed-won accounts.", a.QualificationAccuracy*100),
				Impact:      domain.LevelHigh,
				Effort:      domain.LevelMedium,
				Implementation: []string{
					"Export the last two quarters of closed-won and closed-lost deals",
					"Compare qualification answers against outcomes",
					"Drop criteria with no predictive value",
				},
				Target: "sdr-team",
			}
		},
	},
	{
		cond: func(a *domain.ICPPerformanceAnalysis) bool { return a.LeadScoringPrecision < 0.75 },
		opt: func(a *domain.ICPPerformanceAnalysis) domain.Optimization {
			return domain.Optimization{
				ID:          "lead-scoring-1",
				Type:        domain.OptimizationScoringModel,
				Title:       "Rebuild the lead scoring model",
				Description: fmt.Sprintf("Lead scoring precision is %.0f%%.", a.LeadScoringPrecision*100),
				Impact:      domain.LevelHigh,
				Effort:      domain.LevelHigh,
				Implementation: []string{
					"Add behavioral signals to the scoring inputs",
					"Weight firmographic fit against ICP tiers",
					"Backtest the model before switching over",
				},
				Target: "revops",
			}
		},
	},
	{
		cond: func(a *domain.ICPPerformanceAnalysis) bool { return a.ICPMatchRate < 0.7 },
		opt: func(a *domain.ICPPerformanceAnalysis) domain.Optimization {
			return domain.Optimization{
				ID:          "icp-alignment-1",
				Type:        domain.OptimizationAlignment,
				Title:       "Realign teams on the ICP",
				Description: fmt.Sprintf("Only %.0f%% of worked leads match the ICP.", a.ICPMatchRate*100),
				Impact:      domain.LevelHigh,
				Effort:      domain.LevelMedium,
				Implementation: []string{
					"Publish the current ICP with disqualifiers",
					"Review it jointly with marketing and sales leadership",
					"Tag inbound sources by ICP fit",
				},
				Target: domain.TargetAll,
			}
		},
	},
	{
		cond: func(a *domain.ICPPerformanceAnalysis) bool { return a.ConversionRate < 0.6 },
		opt: func(a *domain.ICPPerformanceAnalysis) domain.Optimization {
			return domain.Optimization{
				ID:          "conversion-uplift-1",
				Type:        domain.OptimizationProcess,
				Title:       "Tighten the qualified-to-opportunity handoff",
				Description: fmt.Sprintf("Conversion from qualified lead is %.0f%%.", a.ConversionRate*100),
				Impact:      domain.LevelMedium,
				Effort:      domain.LevelMedium,
				Implementation: []string{
					"Define handoff SLAs between SDRs and AEs",
					"Share qualification notes in the CRM record",
				},
				Target: "account-executives",
			}
		},
	},
	{
		cond: func(a *domain.ICPPerformanceAnalysis) bool { return a.QualificationTime > 30 },
		opt: func(a *domain.ICPPerformanceAnalysis) domain.Optimization {
			return domain.Optimization{
				ID:          "qualification-speed-1",
				Type:        domain.OptimizationAutomation,
				Title:       "Automate prospect enrichment",
				Description: fmt.Sprintf("Qualifying a prospect takes %.0f minutes.", a.QualificationTime),
				Impact:      domain.LevelMedium,
				Effort:      domain.LevelLow,
				Implementation: []string{
					"Enrich new leads automatically on creation",
					"Pre-fill qualification fields from enrichment data",
				},
				Target: "sdr-team",
			}
		},
	},
}

type prospectPhases struct {
	simulatedApply
	rng agent.Random
}

// NewProspectQualification creates the prospect-qualification optimizer.
func NewProspectQualification(o Options) *agent.Runner {
	rng := o.random()
	return newRunner(domain.AgentProspectQualification, &prospectPhases{
		simulatedApply: simulatedApply{sim: agent.Simulator{BaseDelay: o.ApplyDelay, BroadTargetFactor: 0.9, Random: rng}},
		rng:            rng,
	}, o)
}

func (p *prospectPhases) Analyze(_ context.Context, _ string, actx domain.AgentContext) (domain.Analysis, error) {
	bonus := actx.Priority.Bonus()
	return &domain.ICPPerformanceAnalysis{
		QualificationAccuracy: metric(p.rng, actx, "qualificationAccuracy", qualificationAccuracySpec, bonus),
		LeadScoringPrecision:  metric(p.rng, actx, "leadScoringPrecision", leadScoringPrecisionSpec, bonus),
		ICPMatchRate:          metric(p.rng, actx, "icpMatchRate", icpMatchRateSpec, bonus),
		ConversionRate:        metric(p.rng, actx, "conversionRate", conversionRateSpec, bonus),
		QualificationTime:     metric(p.rng, actx, "qualificationTime", qualificationTimeSpec, 0),
		AnalysisBase: domain.AnalysisBase{
			Bottlenecks:   agent.Sample(p.rng, prospectBottlenecks, 1, 3),
			Opportunities: agent.Sample(p.rng, prospectOpportunities, 1, 3),
		},
	}, nil
}

func (p *prospectPhases) Generate(_ context.Context, _ string, analysis domain.Analysis) ([]domain.Optimization, error) {
	a, err := castAnalysis[*domain.ICPPerformanceAnalysis](analysis)
	if err != nil {
		return nil, err
	}
	return applyRules(a, prospectRules), nil
}
