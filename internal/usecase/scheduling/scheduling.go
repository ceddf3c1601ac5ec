// Package scheduling runs agent operations on recurring schedules.
package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"salesintel/internal/domain"
)

// DefaultTaskTimeout bounds a single scheduled run.
const DefaultTaskTimeout = 5 * time.Minute

// Task runs one agent operation on a schedule.
type Task struct {
	Name      string
	Schedule  string // cron expression "0 2 * * *" OR duration "30m"
	Agent     domain.AgentType
	Operation string
	Priority  domain.Priority
	Timeout   time.Duration // default DefaultTaskTimeout
}

// AgentSource resolves agents by type.
type AgentSource interface {
	Get(t domain.AgentType) (domain.Agent, error)
}

// Scheduler fires agent runs on cron expressions or fixed intervals.
type Scheduler struct {
	cron    *cron.Cron
	agents  AgentSource
	events  domain.EventPublisher
	entries map[string]cron.EntryID
	logger  *slog.Logger
	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler. events may be nil.
func New(agents AgentSource, events domain.EventPublisher, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		agents:  agents,
		events:  events,
		entries: make(map[string]cron.EntryID),
		logger:  logger,
	}
}

// AddTask validates task and schedules it. The agent must already be
// registered and must accept the operation.
func (s *Scheduler) AddTask(task Task) error {
	if task.Name == "" {
		return domain.NewSubSystemError("scheduler", "Scheduler.AddTask", domain.ErrInvalidInput, "task name is required")
	}
	a, err := s.agents.Get(task.Agent)
	if err != nil {
		return fmt.Errorf("scheduler: task %q: %w", task.Name, err)
	}
	if ops := a.Operations(); len(ops) > 0 && !contains(ops, task.Operation) {
		return domain.NewSubSystemError("scheduler", "Scheduler.AddTask", domain.ErrInvalidInput,
			fmt.Sprintf("task %q: agent %s has no operation %q", task.Name, task.Agent, task.Operation))
	}
	schedule, err := ParseSchedule(task.Schedule)
	if err != nil {
		return domain.NewSubSystemError("scheduler", "Scheduler.AddTask", domain.ErrInvalidInput,
			fmt.Sprintf("task %q: %v", task.Name, err))
	}
	if task.Timeout <= 0 {
		task.Timeout = DefaultTaskTimeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[task.Name]; exists {
		return domain.NewDomainError("Scheduler.AddTask", domain.ErrDuplicate, task.Name)
	}
	s.entries[task.Name] = s.cron.Schedule(schedule, cron.FuncJob(func() { s.fire(task, a) }))
	s.logger.Info("task added to scheduler",
		"name", task.Name,
		"schedule", task.Schedule,
		"agent", string(task.Agent),
		"operation", task.Operation)
	return nil
}

func (s *Scheduler) fire(task Task, a domain.Agent) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx == nil {
		s.logger.Debug("scheduler stopped, skipping task", "task", task.Name)
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout)
	defer cancel()

	start := time.Now()
	if s.events != nil {
		s.events.Publish(taskCtx, domain.NewEvent(domain.EventScheduledRunFired, "scheduler", domain.AgentRunPayload{
			AgentType: task.Agent, Operation: task.Operation, Priority: task.Priority,
		}))
	}
	res, err := a.Execute(taskCtx, task.Operation, domain.AgentContext{
		Priority:  task.Priority,
		Issue:     "scheduled: " + task.Name,
		Timestamp: start,
	})
	if err != nil {
		s.logger.Warn("scheduled task failed",
			"task", task.Name,
			"error", err,
			"duration", time.Since(start))
		return
	}
	s.logger.Info("scheduled task completed",
		"task", task.Name,
		"run_id", res.RunID,
		"optimizations", len(res.Optimizations),
		"duration", time.Since(start))
}

// RemoveTask unschedules a task by name.
func (s *Scheduler) RemoveTask(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[name]
	if !ok {
		return domain.NewDomainError("Scheduler.RemoveTask", domain.ErrNotFound, name)
	}
	s.cron.Remove(id)
	delete(s.entries, name)
	s.logger.Info("task removed", "name", name)
	return nil
}

// Tasks returns the scheduled task names in sorted order.
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for n := range s.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NextRun returns the next run time of a task, or nil if it is unknown or
// the scheduler has not started.
func (s *Scheduler) NextRun(name string) *time.Time {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()

	if !ok {
		return nil
	}
	entry := s.cron.Entry(id)
	if entry.ID == 0 || entry.Next.IsZero() {
		return nil
	}
	t := entry.Next
	return &t
}

// Start begins running the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.started = true
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	s.ctx = nil
	s.started = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	return nil
}

// ParseSchedule parses a cron expression, falling back to a positive
// duration such as "30m".
func ParseSchedule(schedule string) (cron.Schedule, error) {
	if schedule == "" {
		return nil, fmt.Errorf("empty schedule")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if sched, err := parser.Parse(schedule); err == nil {
		return sched, nil
	}

	dur, err := time.ParseDuration(schedule)
	if err != nil {
		return nil, fmt.Errorf("not a valid cron expression or duration: %q", schedule)
	}
	if dur <= 0 {
		return nil, fmt.Errorf("duration must be positive: %q", schedule)
	}
	return constantDelay(dur), nil
}

// constantDelay fires at a fixed interval. Unlike cron.Every it keeps
// sub-second precision.
type constantDelay time.Duration

func (d constantDelay) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}

func contains(ops []string, op string) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}
