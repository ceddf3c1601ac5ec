package market

import (
	"time"

	"salesintel/internal/domain"
)

// Fallback builds the degraded-mode report served when research fails.
// Its content is fixed apart from the request echo.
func Fallback(req domain.MarketRequest, now time.Time) *domain.MarketIntelligenceReport {
	r := &domain.MarketIntelligenceReport{
		Timestamp: now,
		Request:   req,
		IndustryContext: &domain.IndustryContext{
			Industry:    req.Industry,
			Description: "Research unavailable; industry context not assessed.",
			MarketSize:  "unknown",
			Maturity:    domain.MaturityGrowing,
		},
		Conditions: []domain.MarketCondition{{
			Type:     "limited-data",
			Severity: domain.SeverityMedium,
			Impact:   "Market signals could not be gathered",
		}},
		Trends: []domain.IndustryTrend{{
			Name:      "digital transformation",
			Velocity:  0.5,
			Relevance: 0.5,
			Timeframe: "ongoing",
		}},
		Competitors: []domain.CompetitorIntelligence{{
			Name:         "Unidentified competitors",
			Position:     "unassessed",
			PricingModel: "unknown",
		}},
		Opportunities: []domain.MarketOpportunity{{
			Title:       "Validate demand directly",
			Description: "Run discovery calls with target accounts while research is unavailable.",
			Potential:   domain.LevelMedium,
		}},
		Risks: []domain.MarketRisk{{
			Title:       "Incomplete market picture",
			Description: "Decisions made on this report rest on defaults, not research.",
			Severity:    domain.SeverityMedium,
			Mitigation:  "Re-run the analysis once research is available",
		}},
		Confidence: FallbackConfidence,
		Fallback:   true,
	}
	r.Validation = Validate(r)
	return r
}
