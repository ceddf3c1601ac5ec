package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"salesintel/internal/adapter/accesslog"
	"salesintel/internal/domain"
	"salesintel/internal/infra/middleware"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string           `json:"error"`
	Code  domain.ErrorCode `json:"code"`
}

// ExecuteRequest is the body of POST /api/v1/agents/{type}/execute.
// An empty Operation runs the agent's default.
type ExecuteRequest struct {
	Operation string          `json:"operation"`
	Priority  domain.Priority `json:"priority"`
	Issue     string          `json:"issue"`
	Context   map[string]any  `json:"context,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

// activator is implemented by agents with a default operation.
type activator interface {
	Activate(ctx context.Context, actx domain.AgentContext) (*domain.AgentResult, error)
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status        string `json:"status"`
	Agents        int    `json:"agents"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Agents:        len(s.deps.Agents.List()),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) listAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.deps.Agents.List()})
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Agents.Get(domain.AgentType(r.PathValue("type")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     a.Status(),
		"operations": a.Operations(),
	})
}

func (s *Server) executeAgent(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Agents.Get(domain.AgentType(r.PathValue("type")))
	if err != nil {
		writeError(w, err)
		return
	}

	var req ExecuteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Priority == "" {
		req.Priority = domain.PriorityMedium
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()
	actx := domain.AgentContext{
		Priority:  req.Priority,
		Issue:     req.Issue,
		Context:   req.Context,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Timestamp: time.Now(),
	}
	var res *domain.AgentResult
	if act, ok := a.(activator); ok && req.Operation == "" {
		res, err = act.Activate(ctx, actx)
	} else {
		res, err = a.Execute(ctx, req.Operation, actx)
	}
	detail := map[string]string{"priority": string(req.Priority)}
	if res != nil {
		detail["run_id"] = res.RunID
		detail["operation"] = res.Operation
	}
	s.record(r.Context(), "agent/"+string(a.Type()), "execute", err, detail)
	if err != nil {
		s.logger.Warn("agent execution failed", "agent", string(a.Type()), "operation", req.Operation, "error", err)
		if res == nil {
			writeError(w, err)
			return
		}
		writeJSON(w, statusFor(err), res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) analyzeMarket(w http.ResponseWriter, r *http.Request) {
	var req domain.MarketRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Product == "" && req.Industry == "" && req.TargetMarket == "" {
		writeError(w, domain.NewDomainError("gateway.analyzeMarket", domain.ErrInvalidInput,
			"productName, industry or targetMarket required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()
	report := s.deps.Market.AnalyzeMarket(ctx, req)
	s.record(r.Context(), "market", "analyze", nil, map[string]string{
		"industry": req.Industry,
		"fallback": strconv.FormatBool(report.Fallback),
	})
	writeJSON(w, http.StatusOK, report)
}

// record appends to the access log when one is configured. Failures to
// write are logged, never surfaced to the client.
func (s *Server) record(ctx context.Context, resource, action string, err error, detail map[string]string) {
	if s.deps.Access == nil {
		return
	}
	e := accesslog.Entry{
		Actor:    clientName(ctx),
		Resource: resource,
		Action:   action,
		Outcome:  accesslog.OutcomeSuccess,
		Detail:   detail,
	}
	if err != nil {
		e.Outcome = accesslog.OutcomeFailure
		if e.Detail == nil {
			e.Detail = map[string]string{}
		}
		e.Detail["error"] = string(domain.ErrorCodeOf(err))
	}
	if werr := s.deps.Access.Record(ctx, e); werr != nil {
		s.logger.Warn("access log write failed", "error", werr)
	}
}

func (s *Server) recordDenied(r *http.Request) {
	if s.deps.Access == nil {
		return
	}
	e := accesslog.Entry{
		Actor:    middleware.ClientIP(r, s.opts.RateLimit.TrustedProxies),
		Resource: r.URL.Path,
		Action:   r.Method,
		Outcome:  accesslog.OutcomeDenied,
	}
	if err := s.deps.Access.Record(r.Context(), e); err != nil {
		s.logger.Warn("access log write failed", "error", err)
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, domain.NewDomainError("gateway.listRuns", domain.ErrInvalidInput, "limit must be 1..500"))
			return
		}
		limit = n
	}
	runs, err := s.deps.Runs.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, domain.NewDomainError("gateway.decode", domain.ErrInvalidInput, err.Error()))
		return false
	}
	return true
}

// statusFor maps error categories onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAgentNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownOperation), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrResearchOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), Code: domain.ErrorCodeOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
