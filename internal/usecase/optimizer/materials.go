package optimizer

import (
	"context"
	"fmt"

	"salesintel/internal/domain"
	"salesintel/internal/usecase/agent"
)

// Material formats used as optimization targets.
const (
	FormatOnePager  = "one-pager"
	FormatDeck      = "deck"
	FormatCaseStudy = "case-study"
	FormatEmail     = "email"
)

var (
	contentEngagementSpec     = agent.MetricSpec{Base: 0.64, Spread: 0.12, Min: 0.5, Max: 1.0}
	personalizationScoreSpec  = agent.MetricSpec{Base: 0.6, Spread: 0.1, Min: 0.5, Max: 1.0}
	materialEffectivenessSpec = agent.MetricSpec{Base: 0.7, Spread: 0.1, Min: 0.5, Max: 1.0}
	creationTimeSpec          = agent.MetricSpec{Base: 90, Spread: 40, Min: 20, Max: 240}
)

var materialsBottlenecks = []string{
	"outdated case studies",
	"manual deck assembly",
	"no persona-specific variants",
	"scattered asset library",
	"slow brand review",
	"missing competitive battlecards",
	"untracked content usage",
	"inconsistent messaging",
}

var materialsOpportunities = []string{
	"template-driven personalization",
	"content engagement analytics",
	"dynamic case study matching",
	"reusable slide modules",
	"AI-assisted first drafts",
}

var materialsRules = []rule[*domain.SalesMaterialsPerformanceAnalysis]{
	{
		cond: func(a *domain.SalesMaterialsPerformanceAnalysis) bool { return a.ContentEngagement < 0.7 },
		opt: func(a *domain.SalesMaterialsPerformanceAnalysis) domain.Optimization {
			return domain.Optimization{
				ID:          "content-engagement-1",
				Type:        domain.OptimizationContent,
				Title:       "Refresh low-engagement case studies",
				Description: fmt.Sprintf("Content engagement is %.0f%%.", a.ContentEngagement*100),
				Impact:      domain.LevelMedium,
				Effort:      domain.LevelMedium,
				Implementation: []string{
					"Rank case studies by view-through rate",
					"Rewrite the bottom quartile around quantified outcomes",
				},
				Target: FormatCaseStudy,
			}
		},
	},
	{
		cond: func(a *domain.SalesMaterialsPerformanceAnalysis) bool { return a.PersonalizationScore < 0.7 },
		opt: func(a *domain.SalesMaterialsPerformanceAnalysis) domain.Optimization {
			return domain.Optimization{
				ID:          "personalization-1",
				Type:        domain.OptimizationPersonalization,
				Title:       "Personalize materials by persona and industry",
				Description: fmt.Sprintf("Personalization score is %.0f%%.", a.PersonalizationScore*100),
				Impact:      domain.LevelHigh,
				Effort:      domain.LevelMedium,
				Implementation: []string{
					"Add persona and industry variables to every template",
					"Fill variables from the CRM account record",
				},
				Target: domain.TargetAll,
			}
		},
	},
	{
		cond: func(a *domain.SalesMaterialsPerformanceAnalysis) bool { return a.MaterialEffectiveness < 0.75 },
		opt: func(a *domain.SalesMaterialsPerformanceAnalysis) domain.Optimization {
			return domain.Optimization{
				ID:          "deck-effectiveness-1",
				Type:        domain.OptimizationContent,
				Title:       "Restructure the core pitch deck",
				Description: fmt.Sprintf("Material effectiveness is %.0f%%.", a.MaterialEffectiveness*100),
				Impact:      domain.LevelHigh,
				Effort:      domain.LevelHigh,
				Implementation: []string{
					"Lead with the customer problem instead of the product",
					"Cut the deck to ten slides plus appendix",
					"A/B test the new flow with two teams",
				},
				Target: FormatDeck,
			}
		},
	},
	{
		cond: func(a *domain.SalesMaterialsPerformanceAnalysis) bool { return a.CreationTime > 120 },
		opt: func(a *domain.SalesMaterialsPerformanceAnalysis) domain.Optimization {
			return domain.Optimization{
				ID:          "materials-speed-1",
				Type:        domain.OptimizationAutomation,
				Title:       "Assemble one-pagers from modular blocks",
				Description: fmt.Sprintf("Creating a piece of collateral takes %.0f minutes.", a.CreationTime),
				Impact:      domain.LevelMedium,
				Effort:      domain.LevelLow,
				Implementation: []string{
					"Split approved copy into reusable blocks",
					"Generate one-pagers and follow-up emails from the blocks",
				},
				Target: FormatOnePager,
			}
		},
	},
}

type materialsPhases struct {
	simulatedApply
	rng agent.Random
}

// NewSalesMaterials creates the sales-materials optimizer.
func NewSalesMaterials(o Options) *agent.Runner {
	rng := o.random()
	return newRunner(domain.AgentSalesMaterials, &materialsPhases{
		simulatedApply: simulatedApply{sim: agent.Simulator{BaseDelay: o.ApplyDelay, BroadTargetFactor: 0.9, Random: rng}},
		rng:            rng,
	}, o)
}

func (p *materialsPhases) Analyze(_ context.Context, _ string, actx domain.AgentContext) (domain.Analysis, error) {
	bonus := actx.Priority.Bonus()
	return &domain.SalesMaterialsPerformanceAnalysis{
		ContentEngagement:     metric(p.rng, actx, "contentEngagement", contentEngagementSpec, bonus),
		PersonalizationScore:  metric(p.rng, actx, "personalizationScore", personalizationScoreSpec, bonus),
		MaterialEffectiveness: metric(p.rng, actx, "materialEffectiveness", materialEffectivenessSpec, bonus),
		CreationTime:          metric(p.rng, actx, "creationTime", creationTimeSpec, 0),
		AnalysisBase: domain.AnalysisBase{
			Bottlenecks:   agent.Sample(p.rng, materialsBottlenecks, 1, 3),
			Opportunities: agent.Sample(p.rng, materialsOpportunities, 1, 3),
		},
	}, nil
}

func (p *materialsPhases) Generate(_ context.Context, _ string, analysis domain.Analysis) ([]domain.Optimization, error) {
	a, err := castAnalysis[*domain.SalesMaterialsPerformanceAnalysis](analysis)
	if err != nil {
		return nil, err
	}
	return applyRules(a, materialsRules), nil
}
