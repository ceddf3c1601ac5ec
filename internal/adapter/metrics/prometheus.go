// Package metrics turns bus events into Prometheus collectors.
package metrics

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"salesintel/internal/domain"
)

const namespace = "salesintel"

// Collectors holds every series the service exports.
type Collectors struct {
	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	applied      *prometheus.CounterVec
	failed       *prometheus.CounterVec
	market       *prometheus.CounterVec
	marketConf   prometheus.Histogram
	scheduled    *prometheus.CounterVec
	droppedEvent prometheus.CounterFunc

	logger *slog.Logger
}

// MustNew registers the collectors with reg and panics on a registration
// conflict, like the promauto helpers. dropped reports the bus drop count;
// it may be nil.
func MustNew(reg prometheus.Registerer, dropped func() uint64, logger *slog.Logger) *Collectors {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if dropped == nil {
		dropped = func() uint64 { return 0 }
	}
	c := &Collectors{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "agent", Name: "runs_total",
			Help: "Agent invocations by agent type and terminal status.",
		}, []string{"agent", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "agent", Name: "run_duration_seconds",
			Help:    "Wall time of agent invocations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"agent"}),
		applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "agent", Name: "optimizations_applied_total",
			Help: "Optimizations applied successfully.",
		}, []string{"agent"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "agent", Name: "optimizations_failed_total",
			Help: "Optimizations whose application failed.",
		}, []string{"agent"}),
		market: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "market", Name: "analyses_total",
			Help: "Market analyses by outcome (completed, cached, fallback).",
		}, []string{"outcome"}),
		marketConf: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "market", Name: "confidence",
			Help:    "Confidence of freshly produced market reports.",
			Buckets: []float64{0.25, 0.3, 0.5, 0.75, 0.85, 1},
		}),
		scheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "fires_total",
			Help: "Scheduled task firings by target agent and operation.",
		}, []string{"agent", "operation"}),
		droppedEvent: prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "eventbus", Name: "dropped_total",
			Help: "Events dropped because a subscriber queue was full.",
		}, func() float64 { return float64(dropped()) }),
		logger: logger,
	}
	reg.MustRegister(c.runs, c.runDuration, c.applied, c.failed, c.market, c.marketConf, c.scheduled, c.droppedEvent)
	return c
}

// Subscribe feeds the collectors from bus. Returns an unsubscribe function.
func (c *Collectors) Subscribe(bus domain.EventBus) func() {
	return bus.SubscribeAll(c.observe)
}

func (c *Collectors) observe(_ context.Context, ev domain.Event) {
	switch ev.Type {
	case domain.EventAgentRunCompleted, domain.EventAgentRunFailed:
		var p domain.AgentRunPayload
		if !c.decode(ev, &p) {
			return
		}
		agent := string(p.AgentType)
		status := string(domain.StatusOptimizationComplete)
		if ev.Type == domain.EventAgentRunFailed {
			status = string(domain.StatusFailed)
		}
		c.runs.WithLabelValues(agent, status).Inc()
		c.runDuration.WithLabelValues(agent).Observe(p.Duration.Seconds())
		c.applied.WithLabelValues(agent).Add(float64(p.Applied))
		c.failed.WithLabelValues(agent).Add(float64(p.Failed))

	case domain.EventMarketAnalysisCompleted:
		var p domain.MarketPayload
		if !c.decode(ev, &p) {
			return
		}
		c.market.WithLabelValues("completed").Inc()
		c.marketConf.Observe(p.Confidence)
	case domain.EventMarketAnalysisCached:
		c.market.WithLabelValues("cached").Inc()
	case domain.EventMarketAnalysisFallback:
		c.market.WithLabelValues("fallback").Inc()

	case domain.EventScheduledRunFired:
		var p domain.AgentRunPayload
		if c.decode(ev, &p) {
			c.scheduled.WithLabelValues(string(p.AgentType), p.Operation).Inc()
		}
	}
}

func (c *Collectors) decode(ev domain.Event, v any) bool {
	if err := json.Unmarshal(ev.Payload, v); err != nil {
		c.logger.Warn("metrics: bad event payload", "event", string(ev.Type), "error", err)
		return false
	}
	return true
}
