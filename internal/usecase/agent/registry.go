package agent

import (
	"log/slog"
	"sort"
	"sync"

	"salesintel/internal/domain"
)

// Registry holds the agent instances of one process, keyed by type.
type Registry struct {
	mu     sync.RWMutex
	agents map[domain.AgentType]domain.Agent
	logger *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		agents: make(map[domain.AgentType]domain.Agent),
		logger: logger,
	}
}

// Register adds an agent. Returns ErrDuplicate if its type is taken.
func (r *Registry) Register(a domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := a.Type()
	if _, exists := r.agents[t]; exists {
		return domain.NewDomainError("Registry.Register", domain.ErrDuplicate, string(t))
	}
	r.agents[t] = a
	r.logger.Info("agent registered", "agent", string(t), "operations", a.Operations())
	return nil
}

// Get returns the agent of type t, or ErrAgentNotFound.
func (r *Registry) Get(t domain.AgentType) (domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[t]
	if !ok {
		return nil, domain.NewDomainError("Registry.Get", domain.ErrAgentNotFound, string(t))
	}
	return a, nil
}

// Types returns the registered agent types in sorted order.
func (r *Registry) Types() []domain.AgentType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]domain.AgentType, 0, len(r.agents))
	for t := range r.agents {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// List returns a status snapshot for every registered agent, sorted by type.
func (r *Registry) List() []domain.AgentStatus {
	r.mu.RLock()
	agents := make([]domain.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a)
	}
	r.mu.RUnlock()

	statuses := make([]domain.AgentStatus, 0, len(agents))
	for _, a := range agents {
		statuses = append(statuses, a.Status())
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].AgentType < statuses[j].AgentType
	})
	return statuses
}
