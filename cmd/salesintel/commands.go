package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"salesintel/internal/adapter/accesslog"
	"salesintel/internal/adapter/gateway"
	"salesintel/internal/adapter/runlog"
	"salesintel/internal/domain"
	"salesintel/internal/infra/config"
	"salesintel/internal/infra/middleware"
	"salesintel/internal/usecase/scheduling"
)

// contextFlag collects repeated --context key=value pairs.
type contextFlag map[string]any

func (c contextFlag) String() string {
	parts := make([]string, 0, len(c))
	for k, v := range c {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ",")
}

// Set stores numeric values as float64 so agents can read observed metrics.
func (c contextFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	k, v = strings.TrimSpace(k), strings.TrimSpace(v)
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		c[k] = f
		return nil
	}
	if b, err := strconv.ParseBool(v); err == nil {
		c[k] = b
		return nil
	}
	c[k] = v
	return nil
}

// setup parses flags, loads config and wires the app.
func setup(fs *flag.FlagSet, args []string, configPath *string) (*app, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return nil, err
	}
	return newApp(context.Background(), cfg)
}

func runAgent(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file")
	priority := fs.String("priority", string(domain.PriorityMedium), "low, medium, high or critical")
	issue := fs.String("issue", "", "issue description")
	asJSON := fs.Bool("json", false, "print the raw result")
	kv := contextFlag{}
	fs.Var(kv, "context", "context key=value (repeatable)")

	a, err := setup(fs, args, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: salesintel run [flags] AGENT [OPERATION]")
	}
	ag, err := a.agents.Get(domain.AgentType(fs.Arg(0)))
	if err != nil {
		return err
	}

	actx := domain.AgentContext{
		Priority:  domain.Priority(*priority),
		Issue:     *issue,
		Context:   kv,
		Timestamp: time.Now(),
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var result *domain.AgentResult
	if op := fs.Arg(1); op != "" {
		result, err = ag.Execute(ctx, op, actx)
	} else if act, ok := ag.(interface {
		Activate(context.Context, domain.AgentContext) (*domain.AgentResult, error)
	}); ok {
		result, err = act.Activate(ctx, actx)
	} else {
		return fmt.Errorf("operation required for %s", ag.Type())
	}

	if result != nil {
		if *asJSON {
			if werr := writeJSON(out, result); werr != nil {
				return werr
			}
		} else {
			renderResult(out, result)
		}
	}
	return err
}

func runMarket(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("market", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file")
	product := fs.String("product", "", "product name")
	industry := fs.String("industry", "", "industry")
	target := fs.String("target", "", "target market")
	asJSON := fs.Bool("json", false, "print the raw report")

	a, err := setup(fs, args, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	if *product == "" && *industry == "" && *target == "" {
		return fmt.Errorf("at least one of --product, --industry or --target is required")
	}
	report := a.market.AnalyzeMarket(context.Background(), domain.MarketRequest{
		Product:      *product,
		Industry:     *industry,
		TargetMarket: *target,
	})
	if *asJSON {
		return writeJSON(out, report)
	}
	renderReport(out, report)
	return nil
}

func runStatus(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file")
	limit := fs.Int("runs", 10, "recent runs to show")
	asJSON := fs.Bool("json", false, "print raw JSON")

	a, err := setup(fs, args, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	ops := make(map[domain.AgentType][]string)
	for _, t := range a.agents.Types() {
		ag, _ := a.agents.Get(t)
		ops[t] = ag.Operations()
	}
	var runs []runlog.Run
	if a.runs != nil {
		if runs, err = a.runs.Recent(context.Background(), *limit); err != nil {
			return err
		}
	}
	if *asJSON {
		return writeJSON(out, map[string]any{"agents": a.agents.List(), "operations": ops, "runs": runs})
	}
	renderStatus(out, a.agents.List(), ops, runs)
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file")
	addr := fs.String("addr", "", "listen address (overrides config)")

	a, err := setup(fs, args, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduling.New(a.agents, a.bus, a.logger.With("component", "scheduler"))
	if a.cfg.Scheduler.Enabled {
		for _, t := range a.cfg.Scheduler.Tasks {
			if err := sched.AddTask(scheduledTask(t)); err != nil {
				return err
			}
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	if !a.cfg.Gateway.Enabled {
		a.logger.Info("gateway disabled, running scheduler only")
		<-ctx.Done()
		return nil
	}

	gw := a.cfg.Gateway
	if *addr != "" {
		gw.Addr = *addr
	}
	deps := gatewayDeps(a)
	if gw.AccessLog.Path != "" {
		access, err := openAccessLog(ctx, gw.AccessLog)
		if err != nil {
			return err
		}
		defer access.Close()
		deps.Access = access
	}
	srv := gateway.NewServer(deps, gateway.Options{
		Addr:           gw.Addr,
		RequestTimeout: gw.RequestTimeout,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerMin: gw.RateLimit.RequestsPerMin,
			BurstSize:      gw.RateLimit.Burst,
			TrustedProxies: gw.RateLimit.TrustedProxies,
		},
		Logger: a.logger.With("component", "gateway"),
	})
	// Start blocks until ctx is cancelled, then shuts the server down.
	return srv.Start(ctx)
}

func gatewayDeps(a *app) gateway.Deps {
	deps := gateway.Deps{Agents: a.agents, Market: a.market, Bus: a.bus}
	if a.runs != nil {
		deps.Runs = a.runs
	}
	if a.promReg != nil {
		deps.Metrics = promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{})
	}
	if tokens := a.cfg.Gateway.Auth.Tokens; len(tokens) > 0 {
		entries := make([]gateway.TokenEntry, 0, len(tokens))
		for _, t := range tokens {
			entries = append(entries, gateway.TokenEntry{Token: t.Token, Name: t.Name, Roles: t.Roles})
		}
		deps.Auth = gateway.NewStaticTokenAuth(entries)
	}
	return deps
}

// openAccessLog opens the trail and trims it to its retention bounds.
func openAccessLog(ctx context.Context, cfg config.AccessLogConfig) (*accesslog.File, error) {
	maxSize, err := config.ParseSize(cfg.MaxSize)
	if err != nil {
		return nil, err
	}
	access, err := accesslog.Open(cfg.Path, accesslog.Retention{MaxAge: cfg.MaxAge, MaxSize: maxSize})
	if err != nil {
		return nil, err
	}
	if _, err := access.Enforce(ctx); err != nil {
		access.Close()
		return nil, err
	}
	return access, nil
}

func scheduledTask(t config.ScheduledTaskConfig) scheduling.Task {
	return scheduling.Task{
		Name:      t.Name,
		Schedule:  t.Schedule,
		Agent:     domain.AgentType(t.Agent),
		Operation: t.Operation,
		Priority:  domain.Priority(t.Priority),
		Timeout:   t.Timeout,
	}
}

func runEncrypt(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("encrypt", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: salesintel encrypt VALUE")
	}
	key := os.Getenv("SALESINTEL_CONFIG_KEY")
	if key == "" {
		return fmt.Errorf("SALESINTEL_CONFIG_KEY is not set")
	}
	enc, err := config.EncryptValue(fs.Arg(0), key)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "enc:"+enc)
	return nil
}
