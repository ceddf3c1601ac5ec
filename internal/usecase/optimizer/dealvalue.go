package optimizer

import (
	"context"
	"fmt"

	"salesintel/internal/domain"
	"salesintel/internal/usecase/agent"
)

// BusinessCaseSlowThreshold is the generation time, in seconds, at which a
// business case counts as slow.
const BusinessCaseSlowThreshold = 300.0

var (
	valueRealizationSpec     = agent.MetricSpec{Base: 0.7, Spread: 0.1, Min: 0.5, Max: 1.0}
	roiConfidenceSpec        = agent.MetricSpec{Base: 0.66, Spread: 0.12, Min: 0.5, Max: 1.0}
	stakeholderAlignmentSpec = agent.MetricSpec{Base: 0.62, Spread: 0.1, Min: 0.5, Max: 1.0}
	businessCaseTimeSpec     = agent.MetricSpec{Base: 240, Spread: 90, Min: 60, Max: 600}
)

var dealValueBottlenecks = []string{
	"manual ROI modeling",
	"missing baseline metrics",
	"late economic buyer involvement",
	"generic value propositions",
	"spreadsheet-based business cases",
	"unclear success criteria",
	"slow legal review",
}

var dealValueOpportunities = []string{
	"value engineering templates",
	"customer outcome benchmarks",
	"mutual action plans",
	"executive sponsor programs",
	"post-sale value reviews",
}

var dealValueRules = []rule[*domain.DealValuePerformanceAnalysis]{
	{
		cond: func(a *domain.DealValuePerformanceAnalysis) bool { return a.ValueRealizationRate < 0.75 },
		opt: func(a *domain.DealValuePerformanceAnalysis) domain.Optimization {
			return domain.Optimization{
				ID:          "value-realization-1",
				Type:        domain.OptimizationProcess,
				Title:       "Track value realization after close",
				Description: fmt.Sprintf("Only %.0f%% of promised value is realized.", a.ValueRealizationRate*100),
				Impact:      domain.LevelHigh,
				Effort:      domain.LevelMedium,
				Implementation: []string{
					"Record committed outcomes on every closed deal",
					"Review outcomes at 90 days with customer success",
				},
				Target: "customer-success",
			}
		},
	},
	{
		cond: func(a *domain.DealValuePerformanceAnalysis) bool { return a.ROIConfidence < 0.7 },
		opt: func(a *domain.DealValuePerformanceAnalysis) domain.Optimization {
			return domain.Optimization{
				ID:          "roi-model-1",
				Type:        domain.OptimizationScoringModel,
				Title:       "Standardize the ROI model",
				Description: fmt.Sprintf("ROI confidence is %.0f%%.", a.ROIConfidence*100),
				Impact:      domain.LevelHigh,
				Effort:      domain.LevelHigh,
				Implementation: []string{
					"Replace ad-hoc spreadsheets with one shared model",
					"Source default inputs from industry benchmarks",
					"Have finance sign off on the assumptions",
				},
				Target: "account-executives",
			}
		},
	},
	{
		cond: func(a *domain.DealValuePerformanceAnalysis) bool { return a.StakeholderAlignment < 0.7 },
		opt: func(a *domain.DealValuePerformanceAnalysis) domain.Optimization {
			return domain.Optimization{
				ID:          "stakeholder-alignment-1",
				Type:        domain.OptimizationAlignment,
				Title:       "Map and align buying committee stakeholders",
				Description: fmt.Sprintf("Stakeholder alignment is %.0f%%.", a.StakeholderAlignment*100),
				Impact:      domain.LevelMedium,
				Effort:      domain.LevelMedium,
				Implementation: []string{
					"Build a stakeholder map per opportunity",
					"Tailor the value narrative to each role",
				},
				Target: domain.TargetAll,
			}
		},
	},
	{
		cond: func(a *domain.DealValuePerformanceAnalysis) bool {
			return a.BusinessCaseGenerationTime >= BusinessCaseSlowThreshold
		},
		opt: func(a *domain.DealValuePerformanceAnalysis) domain.Optimization {
			return domain.Optimization{
				ID:          "business-case-speed-1",
				Type:        domain.OptimizationAutomation,
				Title:       "Automate business case generation",
				Description: fmt.Sprintf("Business cases take %.0f seconds to produce.", a.BusinessCaseGenerationTime),
				Impact:      domain.LevelHigh,
				Effort:      domain.LevelMedium,
				Implementation: []string{
					"Generate the first draft from CRM opportunity data",
					"Cache benchmark lookups per industry",
					"Let reps edit only the customer-specific inputs",
				},
				Target: "account-executives",
			}
		},
	},
}

type dealValuePhases struct {
	simulatedApply
	rng agent.Random
}

// NewDealValue creates the deal-value optimizer.
func NewDealValue(o Options) *agent.Runner {
	rng := o.random()
	return newRunner(domain.AgentDealValue, &dealValuePhases{
		simulatedApply: simulatedApply{sim: agent.Simulator{BaseDelay: o.ApplyDelay, BroadTargetFactor: 0.85, Random: rng}},
		rng:            rng,
	}, o)
}

func (p *dealValuePhases) Analyze(_ context.Context, _ string, actx domain.AgentContext) (domain.Analysis, error) {
	bonus := actx.Priority.Bonus()
	return &domain.DealValuePerformanceAnalysis{
		ValueRealizationRate:       metric(p.rng, actx, "valueRealizationRate", valueRealizationSpec, bonus),
		ROIConfidence:              metric(p.rng, actx, "roiConfidence", roiConfidenceSpec, bonus),
		StakeholderAlignment:       metric(p.rng, actx, "stakeholderAlignment", stakeholderAlignmentSpec, bonus),
		BusinessCaseGenerationTime: metric(p.rng, actx, "businessCaseGenerationTime", businessCaseTimeSpec, 0),
		AnalysisBase: domain.AnalysisBase{
			Bottlenecks:   agent.Sample(p.rng, dealValueBottlenecks, 1, 3),
			Opportunities: agent.Sample(p.rng, dealValueOpportunities, 1, 3),
		},
	}, nil
}

func (p *dealValuePhases) Generate(_ context.Context, _ string, analysis domain.Analysis) ([]domain.Optimization, error) {
	a, err := castAnalysis[*domain.DealValuePerformanceAnalysis](analysis)
	if err != nil {
		return nil, err
	}
	return applyRules(a, dealValueRules), nil
}
