package research

import (
	"context"
	"strings"

	"salesintel/internal/domain"
)

// Static answers every query from a fixed corpus. It backs offline runs and
// demos where no search instance is reachable.
type Static struct {
	corpus map[string]map[string]any
}

// NewStatic returns a provider over the built-in corpus.
func NewStatic() *Static {
	return &Static{corpus: staticCorpus}
}

func (s *Static) Name() string { return "static" }

// ConductProductResearch returns the corpus entry whose key appears in
// query, or the "default" entry.
func (s *Static) ConductProductResearch(ctx context.Context, query string, _ domain.ResearchDepth) (*domain.ResearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	for key, data := range s.corpus {
		if key != "default" && strings.Contains(q, key) {
			return &domain.ResearchResult{Data: data}, nil
		}
	}
	return &domain.ResearchResult{Data: s.corpus["default"]}, nil
}

var staticCorpus = map[string]map[string]any{
	"saas": {
		"description": "B2B SaaS continues to consolidate around platforms with strong integration ecosystems and usage-based pricing.",
		"marketSize":  "$195B",
		"growthRate":  0.11,
		"text": "Established vendors face pressure from AI-native challengers. Venture funding is concentrating in " +
			"automation and analytics. Buyers cite digital transformation and cost reduction; budgets remain uncertain.",
		"competitors": []any{"Salesforce", "HubSpot", map[string]any{"name": "Pipedrive"}},
	},
	"fintech": {
		"description": "Fintech is an emerging, highly regulated market where compliance automation and data privacy drive purchasing.",
		"marketSize":  "$310B",
		"text": "Emerging players raised Series A and Series B rounds despite recession fears. Regulation and data " +
			"privacy dominate roadmaps; machine learning underpins fraud detection and personalization.",
		"competitors": []any{"Stripe", "Plaid", "Adyen"},
	},
	"default": {
		"description": "A competitive market where buyers favor vendors that prove measurable ROI quickly.",
		"text":        "Automation and integration are recurring themes; analytics maturity varies widely across buyers.",
	},
}

var _ domain.ResearchProvider = (*Static)(nil)
