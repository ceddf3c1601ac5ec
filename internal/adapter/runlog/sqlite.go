// Package runlog keeps a SQLite history of finished agent runs, fed from
// agent.run.completed and agent.run.failed events.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"salesintel/internal/domain"
)

// Run is one archived agent run.
type Run struct {
	RunID         string           `json:"runId"`
	AgentType     domain.AgentType `json:"agentType"`
	Operation     string           `json:"operation"`
	Status        string           `json:"status"`
	Duration      time.Duration    `json:"duration"`
	Optimizations int              `json:"optimizations"`
	Applied       int              `json:"applied"`
	Failed        int              `json:"failed"`
	Error         string           `json:"error,omitempty"`
	FinishedAt    time.Time        `json:"finishedAt"`
}

// Store persists runs in the agent_runs table.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates the agent_runs table if needed.
func New(ctx context.Context, db *sql.DB, logger *slog.Logger) (*Store, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS agent_runs (
			run_id        TEXT PRIMARY KEY,
			agent_type    TEXT NOT NULL,
			operation     TEXT NOT NULL,
			status        TEXT NOT NULL,
			duration_ns   INTEGER NOT NULL DEFAULT 0,
			optimizations INTEGER NOT NULL DEFAULT 0,
			applied       INTEGER NOT NULL DEFAULT 0,
			failed        INTEGER NOT NULL DEFAULT 0,
			error         TEXT NOT NULL DEFAULT '',
			finished_at   TEXT NOT NULL
		)
	`); err != nil {
		return nil, fmt.Errorf("migrate agent_runs: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Save inserts or replaces a run.
func (s *Store) Save(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO agent_runs
			(run_id, agent_type, operation, status, duration_ns, optimizations, applied, failed, error, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, string(r.AgentType), r.Operation, r.Status, int64(r.Duration),
		r.Optimizations, r.Applied, r.Failed, r.Error, r.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.RunID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, agent_type, operation, status, duration_ns, optimizations, applied, failed, error, finished_at
			FROM agent_runs ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r        Run
			agent    string
			duration int64
			finished string
		)
		if err := rows.Scan(&r.RunID, &agent, &r.Operation, &r.Status, &duration,
			&r.Optimizations, &r.Applied, &r.Failed, &r.Error, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.AgentType = domain.AgentType(agent)
		r.Duration = time.Duration(duration)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Subscribe archives every finished run published on bus.
// Returns a function that stops archiving.
func (s *Store) Subscribe(bus domain.EventBus) func() {
	handler := func(ctx context.Context, ev domain.Event) {
		var p domain.AgentRunPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			s.logger.Warn("runlog: bad payload", "event", string(ev.Type), "error", err)
			return
		}
		status := string(domain.StatusOptimizationComplete)
		if ev.Type == domain.EventAgentRunFailed {
			status = string(domain.StatusFailed)
		}
		if err := s.Save(ctx, Run{
			RunID:         p.RunID,
			AgentType:     p.AgentType,
			Operation:     p.Operation,
			Status:        status,
			Duration:      p.Duration,
			Optimizations: p.Optimizations,
			Applied:       p.Applied,
			Failed:        p.Failed,
			Error:         p.Error,
			FinishedAt:    ev.Timestamp,
		}); err != nil {
			s.logger.Warn("runlog: save failed", "run_id", p.RunID, "error", err)
		}
	}
	unsubCompleted := bus.Subscribe(domain.EventAgentRunCompleted, handler)
	unsubFailed := bus.Subscribe(domain.EventAgentRunFailed, handler)
	return func() {
		unsubCompleted()
		unsubFailed()
	}
}
