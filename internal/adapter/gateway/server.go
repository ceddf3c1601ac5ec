// Package gateway is the HTTP boundary: agent invocation, agent status,
// market analysis, run history, metrics and a WebSocket event stream.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"salesintel/internal/adapter/accesslog"
	"salesintel/internal/adapter/runlog"
	"salesintel/internal/domain"
	"salesintel/internal/infra/middleware"
)

// AgentDirectory resolves agents by type.
type AgentDirectory interface {
	Get(t domain.AgentType) (domain.Agent, error)
	List() []domain.AgentStatus
}

// MarketAnalyzer produces market reports.
type MarketAnalyzer interface {
	AnalyzeMarket(ctx context.Context, req domain.MarketRequest) *domain.MarketIntelligenceReport
}

// RunHistory lists archived runs.
type RunHistory interface {
	Recent(ctx context.Context, limit int) ([]runlog.Run, error)
}

// AccessRecorder keeps the trail of API actions.
type AccessRecorder interface {
	Record(ctx context.Context, e accesslog.Entry) error
}

// Deps are the collaborators behind the routes. Agents and Market are
// required; a nil Runs, Metrics or Bus drops the matching route.
type Deps struct {
	Agents  AgentDirectory
	Market  MarketAnalyzer
	Runs    RunHistory
	Metrics http.Handler
	Bus     domain.EventBus
	Auth    Authenticator
	Access  AccessRecorder
}

// Options configure the listener and middleware.
type Options struct {
	Addr           string
	RateLimit      middleware.RateLimitConfig
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Server serves the HTTP API.
type Server struct {
	deps      Deps
	opts      Options
	logger    *slog.Logger
	started   time.Time
	httpSrv   *http.Server
	boundAddr atomic.Value // string
	unsubBus  func()

	clients sync.Map // uint64 -> *streamClient
	nextID  atomic.Uint64
}

// NewServer creates a server. Call Start to listen or Routes to mount the
// handler elsewhere.
func NewServer(deps Deps, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	return &Server{deps: deps, opts: opts, logger: logger, started: time.Now()}
}

// Routes builds the handler tree. ctx bounds background work such as the
// rate limiter's eviction loop and the event stream subscription.
func (s *Server) Routes(ctx context.Context) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/v1/agents", s.listAgents)
	api.HandleFunc("GET /api/v1/agents/{type}", s.getAgent)
	api.HandleFunc("POST /api/v1/agents/{type}/execute", s.executeAgent)
	api.HandleFunc("POST /api/v1/market", s.analyzeMarket)
	if s.deps.Runs != nil {
		api.HandleFunc("GET /api/v1/runs", s.listRuns)
	}
	if s.deps.Bus != nil {
		s.subscribeStream(ctx)
		api.HandleFunc("GET /ws", s.handleStream)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.healthz)
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics)
	}
	limited := middleware.RateLimit(ctx, s.opts.RateLimit)(requireAuth(s.deps.Auth, s.recordDenied, api))
	mux.Handle("/api/", limited)
	mux.Handle("/ws", limited)

	return middleware.Logging(s.logger)(middleware.SecurityHeaders(mux))
}

// Start listens on Options.Addr and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}
	s.boundAddr.Store(listener.Addr().String())

	s.httpSrv = &http.Server{
		Handler:           s.Routes(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("gateway started", "addr", listener.Addr().String())

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway serve: %w", err)
	}
	return nil
}

// Stop closes stream clients and shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.unsubBus != nil {
		s.unsubBus()
	}
	s.closeStreams()
	if s.httpSrv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// BoundAddr is the listening address once Start has bound.
func (s *Server) BoundAddr() string {
	addr, _ := s.boundAddr.Load().(string)
	return addr
}
