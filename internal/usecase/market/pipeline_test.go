package market

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesintel/internal/domain"
	"salesintel/internal/usecase/agent"
)

type fakeResearch struct {
	mu    sync.Mutex
	data  map[string]any
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeResearch) Name() string { return "fake" }

func (f *fakeResearch) ConductProductResearch(ctx context.Context, _ string, _ domain.ResearchDepth) (*domain.ResearchResult, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ResearchResult{Data: f.data}, nil
}

func (f *fakeResearch) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.EventType
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev.Type)
}

func richData() map[string]any {
	return map[string]any{
		"description": "Sales enablement software for B2B revenue teams",
		"summary":     "AI adoption is accelerating amid uncertain budgets; recent funding rounds",
		"trends":      []any{"Automation", "analytics platforms"},
		"competitors": []any{"Acme", map[string]any{"name": "Globex"}},
	}
}

var testRequest = domain.MarketRequest{Product: "Pipeline IQ", Industry: "SaaS", TargetMarket: "mid-market"}

func newTestPipeline(r domain.ResearchProvider, ttl time.Duration, events domain.EventPublisher) *Pipeline {
	return New(r, Options{
		TTL:    ttl,
		Random: agent.NewRandom(5),
		Events: events,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "market_analysis_Pipeline IQ_SaaS_mid-market", CacheKey(testRequest))
}

func TestAnalyzeMarketCachesReport(t *testing.T) {
	research := &fakeResearch{data: richData()}
	p := newTestPipeline(research, time.Hour, nil)

	first := p.AnalyzeMarket(context.Background(), testRequest)
	second := p.AnalyzeMarket(context.Background(), testRequest)

	assert.Same(t, first, second)
	assert.Equal(t, int32(4), research.calls.Load(), "stages ran exactly once")
	assert.Equal(t, 1, p.CachedReports())
}

func TestAnalyzeMarketRerunsAfterExpiry(t *testing.T) {
	research := &fakeResearch{data: richData()}
	p := newTestPipeline(research, 20*time.Millisecond, nil)

	first := p.AnalyzeMarket(context.Background(), testRequest)
	time.Sleep(50 * time.Millisecond)
	second := p.AnalyzeMarket(context.Background(), testRequest)

	assert.NotSame(t, first, second)
	assert.Equal(t, int32(8), research.calls.Load())
}

func TestAnalyzeMarketInvalidate(t *testing.T) {
	research := &fakeResearch{data: richData()}
	p := newTestPipeline(research, time.Hour, nil)

	p.AnalyzeMarket(context.Background(), testRequest)
	p.Invalidate(testRequest)
	p.AnalyzeMarket(context.Background(), testRequest)
	assert.Equal(t, int32(8), research.calls.Load())
}

func TestAnalyzeMarketDistinctKeys(t *testing.T) {
	research := &fakeResearch{data: richData()}
	p := newTestPipeline(research, time.Hour, nil)

	a := p.AnalyzeMarket(context.Background(), testRequest)
	other := testRequest
	other.TargetMarket = "enterprise"
	b := p.AnalyzeMarket(context.Background(), other)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, p.CachedReports())
}

func TestAnalyzeMarketFallbackWhenResearchFails(t *testing.T) {
	research := &fakeResearch{err: errors.New("upstream 503")}
	pub := &recordingPublisher{}
	p := newTestPipeline(research, time.Hour, pub)

	for i := 0; i < 3; i++ {
		r := p.AnalyzeMarket(context.Background(), testRequest)
		require.NotNil(t, r)
		assert.Equal(t, FallbackConfidence, r.Confidence)
		assert.True(t, r.Fallback)
		assert.Len(t, r.Opportunities, 1)
		assert.Len(t, r.Risks, 1)
	}
	// Fallbacks are never cached, so every call retried research.
	assert.Equal(t, int32(3), research.calls.Load())
	assert.Zero(t, p.CachedReports())
	assert.Equal(t, []domain.EventType{
		domain.EventMarketAnalysisFallback,
		domain.EventMarketAnalysisFallback,
		domain.EventMarketAnalysisFallback,
	}, pub.events)
}

func TestAnalyzeMarketRecoversAfterFailure(t *testing.T) {
	research := &fakeResearch{data: richData(), err: errors.New("timeout")}
	p := newTestPipeline(research, time.Hour, nil)

	assert.True(t, p.AnalyzeMarket(context.Background(), testRequest).Fallback)
	research.setErr(nil)
	r := p.AnalyzeMarket(context.Background(), testRequest)
	assert.False(t, r.Fallback)
	assert.Equal(t, 0.85, r.Confidence)
}

func TestAnalyzeMarketStageOutputs(t *testing.T) {
	p := newTestPipeline(&fakeResearch{data: richData()}, time.Hour, nil)
	r := p.AnalyzeMarket(context.Background(), testRequest)

	require.NotNil(t, r.IndustryContext)
	assert.Equal(t, "SaaS", r.IndustryContext.Industry)
	assert.Equal(t, domain.MaturityGrowing, r.IndustryContext.Maturity)
	assert.Contains(t, r.IndustryContext.KeyDrivers, "automation")

	var conditions []string
	for _, c := range r.Conditions {
		conditions = append(conditions, c.Type)
	}
	assert.Equal(t, []string{"economic-uncertainty", "funding-activity", "ai-adoption"}, conditions)

	var trends []string
	for _, tr := range r.Trends {
		trends = append(trends, tr.Name)
		assert.GreaterOrEqual(t, tr.Velocity, 0.5)
		assert.LessOrEqual(t, tr.Relevance, 1.0)
	}
	assert.Equal(t, []string{"automation", "analytics"}, trends)

	require.Len(t, r.Competitors, 2)
	assert.Equal(t, "Acme", r.Competitors[0].Name)
	assert.Equal(t, "Globex", r.Competitors[1].Name)
	assert.Equal(t, "leader", r.Competitors[0].Position)

	assert.Equal(t, 0.85, r.Confidence)
	assert.True(t, r.Validation.Valid)
}

func TestAnalyzeMarketToleratesNilData(t *testing.T) {
	p := newTestPipeline(&fakeResearch{}, time.Hour, nil)
	r := p.AnalyzeMarket(context.Background(), testRequest)

	assert.False(t, r.Fallback)
	assert.Empty(t, r.Conditions)
	assert.Empty(t, r.Trends)
	assert.Len(t, r.Competitors, len(defaultCompetitors))
	// industry context, competitors, opportunities/risks
	assert.Equal(t, 0.75, r.Confidence)
	assert.ElementsMatch(t, []string{"conditions", "trends"}, r.Validation.Missing)
}

func TestAnalyzeMarketWithoutProviderFallsBack(t *testing.T) {
	p := newTestPipeline(nil, time.Hour, nil)
	assert.Equal(t, FallbackConfidence, p.AnalyzeMarket(context.Background(), testRequest).Confidence)
}

func TestAnalyzeMarketCollapsesConcurrentMisses(t *testing.T) {
	research := &fakeResearch{data: richData(), delay: 5 * time.Millisecond}
	p := newTestPipeline(research, time.Hour, nil)

	var wg sync.WaitGroup
	reports := make([]*domain.MarketIntelligenceReport, 10)
	for i := range reports {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i] = p.AnalyzeMarket(context.Background(), testRequest)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(4), research.calls.Load())
	for _, r := range reports[1:] {
		assert.Same(t, reports[0], r)
	}
}

func TestAnalyzeMarketEvents(t *testing.T) {
	pub := &recordingPublisher{}
	p := newTestPipeline(&fakeResearch{data: richData()}, time.Hour, pub)

	p.AnalyzeMarket(context.Background(), testRequest)
	p.AnalyzeMarket(context.Background(), testRequest)
	assert.Equal(t, []domain.EventType{domain.EventMarketAnalysisCompleted, domain.EventMarketAnalysisCached}, pub.events)
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name   string
		report domain.MarketIntelligenceReport
		want   float64
	}{
		{"empty", domain.MarketIntelligenceReport{}, 0},
		{"context without industry", domain.MarketIntelligenceReport{IndustryContext: &domain.IndustryContext{}}, 0},
		{"two stages", domain.MarketIntelligenceReport{
			IndustryContext: &domain.IndustryContext{Industry: "SaaS"},
			Risks:           []domain.MarketRisk{{Title: "r"}},
		}, 0.5},
		{"capped", domain.MarketIntelligenceReport{
			IndustryContext: &domain.IndustryContext{Industry: "SaaS"},
			Conditions:      []domain.MarketCondition{{}},
			Trends:          []domain.IndustryTrend{{}},
			Competitors:     []domain.CompetitorIntelligence{{}},
			Opportunities:   []domain.MarketOpportunity{{}},
		}, 0.85},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Confidence(&tt.report), 1e-9)
		})
	}
}
