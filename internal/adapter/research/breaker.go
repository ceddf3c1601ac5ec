package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"salesintel/internal/domain"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before half-opening.
	Timeout time.Duration `yaml:"timeout"`
	// Interval clears failure counts while closed. 0 uses the default.
	Interval time.Duration `yaml:"interval"`
}

// Breaker wraps a provider with circuit breaker protection. While open,
// calls fail fast with domain.ErrResearchOpen and the pipeline serves its
// fallback report.
type Breaker struct {
	inner   domain.ResearchProvider
	breaker *gobreaker.CircuitBreaker[*domain.ResearchResult]
}

// NewBreaker wraps inner. Zero config fields take defaults.
func NewBreaker(inner domain.ResearchProvider, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[*domain.ResearchResult](gobreaker.Settings{
		Name:        "research:" + inner.Name(),
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
		// A caller giving up is not the provider's fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Breaker{inner: inner, breaker: cb}
}

func (b *Breaker) Name() string { return b.inner.Name() }

// ConductProductResearch routes the call through the breaker.
func (b *Breaker) ConductProductResearch(ctx context.Context, query string, depth domain.ResearchDepth) (*domain.ResearchResult, error) {
	res, err := b.breaker.Execute(func() (*domain.ResearchResult, error) {
		return b.inner.ConductProductResearch(ctx, query, depth)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, domain.NewSubSystemError("research", "Breaker.ConductProductResearch", domain.ErrResearchOpen,
			fmt.Sprintf("provider %q: %v", b.inner.Name(), err))
	}
	return res, err
}

// State returns the breaker state for monitoring.
func (b *Breaker) State() gobreaker.State { return b.breaker.State() }

var _ domain.ResearchProvider = (*Breaker)(nil)
