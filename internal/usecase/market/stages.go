package market

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"salesintel/internal/domain"
)

var (
	uncertaintyTerms = []string{"uncertain", "volatil", "recession", "downturn", "slowdown"}
	fundingTerms     = []string{"funding", "investment", "venture", "raised", "series a", "series b"}
	aiPattern        = regexp.MustCompile(`\bai\b|artificial intelligence|machine learning`)

	emergingTerms = []string{"emerging", "early stage", "nascent", "early-stage"}
	matureTerms   = []string{"mature", "established", "consolidat", "saturated"}

	driverTerms = []string{"digital transformation", "automation", "regulation", "cost reduction", "remote work", "data-driven"}
)

// trendVocabulary is the fixed set of trends the trend stage looks for.
var trendVocabulary = []string{
	"automation",
	"artificial intelligence",
	"personalization",
	"data privacy",
	"remote selling",
	"product-led growth",
	"consolidation",
	"integration",
	"analytics",
	"sustainability",
}

var (
	defaultCompetitors = []string{"Established incumbent", "Emerging challenger", "Open-source alternative"}
	positions          = []string{"leader", "challenger", "niche"}
	pricingModels      = []string{"subscription", "usage-based", "freemium"}
)

func (p *Pipeline) lookup(ctx context.Context, query string, depth domain.ResearchDepth) (map[string]any, string, error) {
	if p.research == nil {
		return nil, "", domain.NewSubSystemError("market", "market.research", domain.ErrResearch, "no research provider configured")
	}
	res, err := p.research.ConductProductResearch(ctx, query, depth)
	if err != nil {
		return nil, "", err
	}
	if res == nil || res.Data == nil {
		return nil, "", nil
	}
	return res.Data, strings.ToLower(flatten(res.Data)), nil
}

func (p *Pipeline) industryContext(ctx context.Context, req domain.MarketRequest) (*domain.IndustryContext, error) {
	data, text, err := p.lookup(ctx, fmt.Sprintf("%s industry market size growth %s", req.Industry, req.TargetMarket), domain.DepthMedium)
	if err != nil {
		return nil, err
	}

	ic := &domain.IndustryContext{
		Industry:    req.Industry,
		Description: stringField(data, "description"),
		MarketSize:  stringField(data, "marketSize"),
		Maturity:    domain.MaturityGrowing,
		GrowthRate:  0.12,
	}
	switch {
	case containsAny(text, emergingTerms):
		ic.Maturity, ic.GrowthRate = domain.MaturityEmerging, 0.25
	case containsAny(text, matureTerms):
		ic.Maturity, ic.GrowthRate = domain.MaturityMature, 0.04
	}
	if g, ok := numberField(data, "growthRate"); ok {
		ic.GrowthRate = g
	}
	if ic.Description == "" {
		ic.Description = fmt.Sprintf("%s industry serving %s", req.Industry, req.TargetMarket)
	}
	if ic.MarketSize == "" {
		ic.MarketSize = "unknown"
	}
	for _, d := range driverTerms {
		if strings.Contains(text, d) {
			ic.KeyDrivers = append(ic.KeyDrivers, d)
		}
	}
	return ic, nil
}

func (p *Pipeline) marketConditions(ctx context.Context, req domain.MarketRequest) ([]domain.MarketCondition, error) {
	_, text, err := p.lookup(ctx, fmt.Sprintf("%s market conditions %s", req.Industry, req.TargetMarket), domain.DepthMedium)
	if err != nil {
		return nil, err
	}
	var out []domain.MarketCondition
	if containsAny(text, uncertaintyTerms) {
		out = append(out, domain.MarketCondition{
			Type:     "economic-uncertainty",
			Severity: domain.SeverityMedium,
			Impact:   "Longer sales cycles and more budget scrutiny",
		})
	}
	if containsAny(text, fundingTerms) {
		out = append(out, domain.MarketCondition{
			Type:     "funding-activity",
			Severity: domain.SeverityLow,
			Impact:   "Recently funded buyers are expanding their tooling budgets",
		})
	}
	if aiPattern.MatchString(text) {
		out = append(out, domain.MarketCondition{
			Type:     "ai-adoption",
			Severity: domain.SeverityHigh,
			Impact:   "Buyers expect AI-native capabilities in new purchases",
		})
	}
	return out, nil
}

func (p *Pipeline) industryTrends(ctx context.Context, req domain.MarketRequest) ([]domain.IndustryTrend, error) {
	_, text, err := p.lookup(ctx, fmt.Sprintf("%s industry trends %s", req.Industry, req.Product), domain.DepthMedium)
	if err != nil {
		return nil, err
	}
	var out []domain.IndustryTrend
	for _, term := range trendVocabulary {
		if !strings.Contains(text, term) {
			continue
		}
		out = append(out, domain.IndustryTrend{
			Name:      term,
			Velocity:  round2(0.5 + 0.5*p.rng.Float64()),
			Relevance: round2(0.5 + 0.5*p.rng.Float64()),
			Timeframe: "12-24 months",
		})
	}
	return out, nil
}

func (p *Pipeline) competitors(ctx context.Context, req domain.MarketRequest) ([]domain.CompetitorIntelligence, error) {
	data, _, err := p.lookup(ctx, fmt.Sprintf("%s competitors %s %s", req.Product, req.Industry, req.TargetMarket), domain.DepthDeep)
	if err != nil {
		return nil, err
	}
	names := competitorNames(data)
	if len(names) == 0 {
		names = defaultCompetitors
	}
	out := make([]domain.CompetitorIntelligence, 0, len(names))
	for i, name := range names {
		out = append(out, domain.CompetitorIntelligence{
			Name:         name,
			Position:     positions[i%len(positions)],
			PricingModel: pricingModels[i%len(pricingModels)],
			SWOT: domain.SWOT{
				Strengths:     []string{"Brand recognition in " + req.Industry},
				Weaknesses:    []string{"Limited personalization for " + req.TargetMarket},
				Opportunities: []string{"Expansion into adjacent segments"},
				Threats:       []string{req.Product + " targeting the same buyers"},
			},
		})
	}
	return out, nil
}

// opportunitiesAndRisks is static and does not depend on earlier stages.
func opportunitiesAndRisks(req domain.MarketRequest) ([]domain.MarketOpportunity, []domain.MarketRisk) {
	opportunities := []domain.MarketOpportunity{
		{
			Title:       "Underserved mid-market segment",
			Description: fmt.Sprintf("Mid-market %s buyers lack tooling sized for their teams.", req.Industry),
			Potential:   domain.LevelHigh,
		},
		{
			Title:       "Workflow consolidation",
			Description: "Buyers want fewer point solutions and deeper integration.",
			Potential:   domain.LevelMedium,
		},
	}
	risks := []domain.MarketRisk{
		{
			Title:       "Incumbent bundling",
			Description: "Platform vendors may bundle a comparable feature for free.",
			Severity:    domain.SeverityMedium,
			Mitigation:  "Differentiate on depth and time to value",
		},
		{
			Title:       "Budget compression",
			Description: fmt.Sprintf("%s budgets may tighten in a downturn.", req.TargetMarket),
			Severity:    domain.SeverityLow,
			Mitigation:  "Lead with measurable ROI",
		},
	}
	return opportunities, risks
}

// competitorNames reads data["competitors"] as a list of names or of
// objects with a "name" key.
func competitorNames(data map[string]any) []string {
	raw, ok := data["competitors"].([]any)
	if !ok {
		if ss, ok := data["competitors"].([]string); ok {
			return ss
		}
		return nil
	}
	var names []string
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			if v != "" {
				names = append(names, v)
			}
		case map[string]any:
			if n, ok := v["name"].(string); ok && n != "" {
				names = append(names, n)
			}
		}
	}
	return names
}

// flatten concatenates every string found in v, visiting map keys in order.
func flatten(v any) string {
	var b strings.Builder
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			b.WriteString(t)
			b.WriteByte(' ')
		case []any:
			for _, e := range t {
				walk(e)
			}
		case []string:
			for _, e := range t {
				walk(e)
			}
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(t[k])
			}
		}
	}
	walk(v)
	return b.String()
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return strings.TrimSpace(s)
}

func numberField(data map[string]any, key string) (float64, bool) {
	switch n := data[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
