package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"salesintel/internal/adapter/catalog"
	"salesintel/internal/adapter/metrics"
	"salesintel/internal/adapter/research"
	"salesintel/internal/adapter/runlog"
	"salesintel/internal/domain"
	"salesintel/internal/infra/config"
	"salesintel/internal/infra/logger"
	"salesintel/internal/infra/tracer"
	"salesintel/internal/usecase/agent"
	"salesintel/internal/usecase/audit"
	"salesintel/internal/usecase/backup"
	"salesintel/internal/usecase/eventbus"
	"salesintel/internal/usecase/market"
	"salesintel/internal/usecase/optimizer"
)

// app is the wired object graph shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	bus      *eventbus.Bus
	catalog  *catalog.SQLiteCatalog
	runs     *runlog.Store
	agents   *agent.Registry
	market   *market.Pipeline
	promReg  *prometheus.Registry
	shutdown []func(context.Context) error
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = "salesintel.yaml"
	}
	return config.Load(path)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: log}
	a.onShutdown(func(context.Context) error { return closeLog() })

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		a.close()
		return nil, err
	}
	a.onShutdown(shutdownTracer)

	a.bus = eventbus.New(log)
	a.bus.SubscribeAll(func(_ context.Context, ev domain.Event) {
		log.Debug("event", "type", string(ev.Type), "source", ev.Source)
	})

	if err := a.openCatalog(ctx); err != nil {
		a.bus.Close()
		a.close()
		return nil, err
	}
	// Registered after the catalog so the bus drains into the run archive
	// before the database closes.
	a.onShutdown(func(context.Context) error { a.bus.Close(); return nil })

	if cfg.Metrics.Enabled {
		a.promReg = prometheus.NewRegistry()
		a.promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics.MustNew(a.promReg, a.bus.Dropped, log).Subscribe(a.bus)
	}

	rng := newRandom(cfg.Agents.Seed)
	if err := a.registerAgents(rng); err != nil {
		a.close()
		return nil, err
	}

	a.market = market.New(newResearch(cfg.Research, log), market.Options{
		TTL:    cfg.Market.CacheTTL,
		Random: rng,
		Events: a.bus,
		Logger: log,
	})
	return a, nil
}

func (a *app) openCatalog(ctx context.Context) error {
	dsn := a.cfg.Catalog.DSN
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	c, err := catalog.Open(dsn)
	if err != nil {
		return err
	}
	a.catalog = c
	a.onShutdown(func(context.Context) error { return c.Close() })

	if a.cfg.Catalog.Bootstrap {
		if err := c.Bootstrap(ctx); err != nil {
			return err
		}
	}
	if a.cfg.Catalog.RunArchive {
		store, err := runlog.New(ctx, c.DB(), a.logger)
		if err != nil {
			return err
		}
		store.Subscribe(a.bus)
		a.runs = store
	}
	return nil
}

func (a *app) registerAgents(rng agent.Random) error {
	a.agents = agent.NewRegistry(a.logger)
	delay := a.cfg.Agents.ApplyDelay

	runners := []domain.Agent{
		backup.New(backup.Options{
			Catalog: a.catalog, Schema: a.cfg.Catalog.Schema, Random: rng, ApplyDelay: delay,
			Events: a.bus, Logger: a.logger,
		}),
		audit.New(audit.Options{
			Catalog: a.catalog, Schema: a.cfg.Catalog.Schema, Random: rng, ApplyDelay: delay,
			Events: a.bus, Logger: a.logger,
		}),
		optimizer.NewProspectQualification(optimizer.Options{
			Random: rng, ApplyDelay: delay, Events: a.bus, Logger: a.logger,
		}),
		optimizer.NewDealValue(optimizer.Options{
			Random: rng, ApplyDelay: delay, Events: a.bus, Logger: a.logger,
		}),
		optimizer.NewSalesMaterials(optimizer.Options{
			Random: rng, ApplyDelay: delay, Events: a.bus, Logger: a.logger,
		}),
	}
	for _, r := range runners {
		if err := a.agents.Register(r); err != nil {
			return err
		}
	}
	return nil
}

// newResearch stacks the provider behind a breaker, then a rate limiter,
// so throttled waits never count as provider failures.
func newResearch(cfg config.ResearchConfig, log *slog.Logger) domain.ResearchProvider {
	var p domain.ResearchProvider
	switch cfg.Provider {
	case "searxng":
		p = research.NewSearXNG(cfg.SearXNGURL, cfg.Timeout, log)
	default:
		p = research.NewStatic()
	}
	p = research.NewBreaker(p, research.BreakerConfig{
		MaxFailures: cfg.Breaker.MaxFailures,
		Timeout:     cfg.Breaker.Timeout,
		Interval:    cfg.Breaker.Interval,
	}, log)
	return research.NewLimited(p, cfg.RequestsPerMin, cfg.Burst)
}

func newRandom(seed uint64) agent.Random {
	if seed == 0 {
		return agent.NewTimeSeededRandom()
	}
	return agent.NewRandom(seed)
}

func (a *app) onShutdown(fn func(context.Context) error) {
	a.shutdown = append(a.shutdown, fn)
}

// close runs shutdown hooks in reverse registration order.
func (a *app) close() {
	ctx := context.Background()
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil && a.logger != nil {
			a.logger.Warn("shutdown hook failed", "error", err)
		}
	}
	a.shutdown = nil
}
