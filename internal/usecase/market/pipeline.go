// Package market implements the market intelligence pipeline: five
// sequential research stages assembled into a report, cached per request
// key, with a low-confidence fallback report when research fails.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"salesintel/internal/domain"
	"salesintel/internal/infra/tracer"
	"salesintel/internal/usecase/agent"
)

const (
	// DefaultTTL is how long an assembled report is served from cache.
	DefaultTTL = time.Hour

	// FallbackConfidence marks a degraded-mode report.
	FallbackConfidence = 0.3

	confidencePerStage = 0.25
	maxConfidence      = 0.85
)

// Options configures a Pipeline.
type Options struct {
	TTL    time.Duration // default DefaultTTL
	Random agent.Random
	Events domain.EventPublisher
	Logger *slog.Logger
}

// Pipeline runs market analyses. It is safe for concurrent use.
type Pipeline struct {
	research domain.ResearchProvider
	cache    *gocache.Cache
	flights  singleflight.Group
	rng      agent.Random
	events   domain.EventPublisher
	logger   *slog.Logger
	now      func() time.Time
	ttl      time.Duration
}

// New creates a Pipeline backed by research.
func New(research domain.ResearchProvider, o Options) *Pipeline {
	ttl := o.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	rng := o.Random
	if rng == nil {
		rng = agent.NewTimeSeededRandom()
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	// No janitor: expired entries are dropped lazily when read.
	return &Pipeline{
		research: research,
		cache:    gocache.New(ttl, 0),
		rng:      rng,
		events:   o.Events,
		logger:   logger.With("component", "market"),
		now:      time.Now,
		ttl:      ttl,
	}
}

// CacheKey returns the cache key for req.
func CacheKey(req domain.MarketRequest) string {
	return fmt.Sprintf("market_analysis_%s_%s_%s", req.Product, req.Industry, req.TargetMarket)
}

// AnalyzeMarket returns a report for req. It never fails: when a stage
// errors, a fallback report with confidence 0.3 is returned and nothing is
// cached, so the next call retries the research.
func (p *Pipeline) AnalyzeMarket(ctx context.Context, req domain.MarketRequest) *domain.MarketIntelligenceReport {
	key := CacheKey(req)
	if cached, ok := p.cache.Get(key); ok {
		report := cached.(*domain.MarketIntelligenceReport)
		p.logger.Debug("market report served from cache", "key", key)
		p.publish(ctx, domain.EventMarketAnalysisCached, domain.MarketPayload{Key: key, Confidence: report.Confidence})
		return report
	}

	start := p.now()
	ran := false
	v, err, _ := p.flights.Do(key, func() (any, error) {
		// A concurrent flight may have just filled the cache.
		if cached, ok := p.cache.Get(key); ok {
			return cached, nil
		}
		ran = true
		report, err := p.run(ctx, req)
		if err != nil {
			return nil, err
		}
		p.cache.Set(key, report, p.ttl)
		return report, nil
	})
	elapsed := p.now().Sub(start)

	if err != nil {
		p.logger.Warn("market analysis failed, serving fallback", "key", key, "error", err, "duration", elapsed)
		p.publish(ctx, domain.EventMarketAnalysisFallback, domain.MarketPayload{
			Key: key, Confidence: FallbackConfidence, Duration: elapsed, Error: err.Error(),
		})
		return Fallback(req, p.now())
	}

	report := v.(*domain.MarketIntelligenceReport)
	if ran {
		p.logger.Info("market analysis completed", "key", key, "confidence", report.Confidence, "duration", elapsed)
		p.publish(ctx, domain.EventMarketAnalysisCompleted, domain.MarketPayload{
			Key: key, Confidence: report.Confidence, Duration: elapsed,
		})
	}
	return report
}

// Invalidate drops the cached report for req, if any.
func (p *Pipeline) Invalidate(req domain.MarketRequest) {
	p.cache.Delete(CacheKey(req))
}

// CachedReports returns the number of cached entries, including expired
// ones not yet read.
func (p *Pipeline) CachedReports() int {
	return p.cache.ItemCount()
}

func (p *Pipeline) run(ctx context.Context, req domain.MarketRequest) (*domain.MarketIntelligenceReport, error) {
	ctx, span := tracer.StartSpan(ctx, "market.analyze",
		tracer.StringAttr("market.product", req.Product),
		tracer.StringAttr("market.industry", req.Industry),
	)
	defer span.End()

	report := &domain.MarketIntelligenceReport{Timestamp: p.now(), Request: req}
	var err error
	if report.IndustryContext, err = stage(ctx, "industry_context", func(ctx context.Context) (*domain.IndustryContext, error) {
		return p.industryContext(ctx, req)
	}); err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	if report.Conditions, err = stage(ctx, "market_conditions", func(ctx context.Context) ([]domain.MarketCondition, error) {
		return p.marketConditions(ctx, req)
	}); err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	if report.Trends, err = stage(ctx, "industry_trends", func(ctx context.Context) ([]domain.IndustryTrend, error) {
		return p.industryTrends(ctx, req)
	}); err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	if report.Competitors, err = stage(ctx, "competitors", func(ctx context.Context) ([]domain.CompetitorIntelligence, error) {
		return p.competitors(ctx, req)
	}); err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	report.Opportunities, report.Risks = opportunitiesAndRisks(req)

	report.Confidence = Confidence(report)
	report.Validation = Validate(report)
	span.SetAttributes(tracer.Float64Attr("market.confidence", report.Confidence))
	tracer.SetOK(span)
	return report, nil
}

// stage runs fn in its own span and wraps its error with the stage name.
func stage[T any](ctx context.Context, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.StartSpan(ctx, "market.stage."+name)
	defer span.End()
	out, err := fn(ctx)
	if err != nil {
		tracer.RecordError(span, err)
		return out, fmt.Errorf("stage %s: %w", name, err)
	}
	return out, nil
}

// Confidence is 0.25 per non-empty stage result, capped at 0.85.
func Confidence(r *domain.MarketIntelligenceReport) float64 {
	n := 0
	if r.IndustryContext != nil && r.IndustryContext.Industry != "" {
		n++
	}
	if len(r.Conditions) > 0 {
		n++
	}
	if len(r.Trends) > 0 {
		n++
	}
	if len(r.Competitors) > 0 {
		n++
	}
	if len(r.Opportunities) > 0 || len(r.Risks) > 0 {
		n++
	}
	return min(confidencePerStage*float64(n), maxConfidence)
}

func (p *Pipeline) publish(ctx context.Context, t domain.EventType, payload domain.MarketPayload) {
	if p.events == nil {
		return
	}
	p.events.Publish(ctx, domain.NewEvent(t, "market", payload))
}
