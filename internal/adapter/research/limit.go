package research

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"salesintel/internal/domain"
)

// Limited throttles calls to a provider with a token bucket.
type Limited struct {
	inner   domain.ResearchProvider
	limiter *rate.Limiter
}

// NewLimited allows perMinute calls per minute with the given burst.
// perMinute <= 0 disables throttling.
func NewLimited(inner domain.ResearchProvider, perMinute, burst int) *Limited {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60.0)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limited{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

func (l *Limited) Name() string { return l.inner.Name() }

// ConductProductResearch waits for a token, bounded by ctx.
func (l *Limited) ConductProductResearch(ctx context.Context, query string, depth domain.ResearchDepth) (*domain.ResearchResult, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, domain.NewSubSystemError("research", "Limited.ConductProductResearch", domain.ErrRateLimit,
			fmt.Sprintf("provider %q: %v", l.inner.Name(), err))
	}
	return l.inner.ConductProductResearch(ctx, query, depth)
}

var _ domain.ResearchProvider = (*Limited)(nil)
