package domain

import (
	"context"
	"time"
)

// ResearchDepth controls how much research a provider performs.
type ResearchDepth string

const (
	DepthMedium ResearchDepth = "medium"
	DepthDeep   ResearchDepth = "deep"
)

// ResearchResult is what a research provider returns. Data may be nil.
type ResearchResult struct {
	Data map[string]any `json:"data"`
}

// ResearchProvider conducts product/market research.
type ResearchProvider interface {
	ConductProductResearch(ctx context.Context, query string, depth ResearchDepth) (*ResearchResult, error)
	Name() string
}

// MarketRequest identifies one market analysis.
type MarketRequest struct {
	Product         string         `json:"productName"`
	Industry        string         `json:"industry"`
	TargetMarket    string         `json:"targetMarket"`
	CustomerContext map[string]any `json:"customerContext,omitempty"`
}

// Maturity classifies an industry's lifecycle stage.
type Maturity string

const (
	MaturityEmerging Maturity = "emerging"
	MaturityGrowing  Maturity = "growing"
	MaturityMature   Maturity = "mature"
)

// IndustryContext sizes and classifies the industry.
type IndustryContext struct {
	Industry    string   `json:"industry"`
	Description string   `json:"description"`
	MarketSize  string   `json:"marketSize"`
	GrowthRate  float64  `json:"growthRate"`
	Maturity    Maturity `json:"maturity"`
	KeyDrivers  []string `json:"keyDrivers"`
}

// MarketCondition is a detected market signal.
type MarketCondition struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Impact   string   `json:"impact"`
}

// IndustryTrend is a trend found in the research text.
type IndustryTrend struct {
	Name      string  `json:"name"`
	Velocity  float64 `json:"velocity"`
	Relevance float64 `json:"relevance"`
	Timeframe string  `json:"timeframe"`
}

// SWOT is a strengths/weaknesses/opportunities/threats summary.
type SWOT struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

// CompetitorIntelligence describes one competitor.
type CompetitorIntelligence struct {
	Name         string `json:"name"`
	Position     string `json:"position"`
	PricingModel string `json:"pricingModel"`
	SWOT         SWOT   `json:"swot"`
}

// MarketOpportunity is a synthesized opportunity.
type MarketOpportunity struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Potential   Level  `json:"potential"`
}

// MarketRisk is a synthesized risk.
type MarketRisk struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Mitigation  string   `json:"mitigation"`
}

// QualityIssue flags a present but weak report section.
type QualityIssue struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// ReportValidation lists missing sections and quality issues of a report.
type ReportValidation struct {
	Valid         bool           `json:"valid"`
	Missing       []string       `json:"missing,omitempty"`
	QualityIssues []QualityIssue `json:"qualityIssues,omitempty"`
}

// MarketIntelligenceReport is the pipeline output.
// Confidence is a completeness proxy in [0, 0.85]; 0.3 marks a fallback report.
type MarketIntelligenceReport struct {
	Timestamp       time.Time                `json:"timestamp"`
	Request         MarketRequest            `json:"request"`
	IndustryContext *IndustryContext         `json:"industryContext"`
	Conditions      []MarketCondition        `json:"conditions"`
	Trends          []IndustryTrend          `json:"trends"`
	Competitors     []CompetitorIntelligence `json:"competitors"`
	Opportunities   []MarketOpportunity      `json:"opportunities"`
	Risks           []MarketRisk             `json:"risks"`
	Confidence      float64                  `json:"confidence"`
	Fallback        bool                     `json:"fallback,omitempty"`
	Validation      ReportValidation         `json:"validation"`
}
