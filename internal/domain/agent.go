package domain

import (
	"context"
	"time"
)

// AgentType is the stable identifier of an agent implementation.
type AgentType string

const (
	AgentBackup                AgentType = "backup-agent"
	AgentAudit                 AgentType = "audit-agent"
	AgentProspectQualification AgentType = "prospect-qualification-optimizer"
	AgentDealValue             AgentType = "deal-value-optimizer"
	AgentSalesMaterials        AgentType = "sales-materials-optimizer"
)

// Priority is the caller-assigned urgency of an invocation.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank returns the ordinal of p. Unknown values rank as low.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Bonus is the additive boost applied to [0,1] metrics before jitter.
func (p Priority) Bonus() float64 {
	switch p {
	case PriorityCritical:
		return 0.1
	case PriorityHigh:
		return 0.05
	default:
		return 0
	}
}

// AgentContext is the caller-owned input of one invocation.
type AgentContext struct {
	Priority  Priority       `json:"priority"`
	Issue     string         `json:"issue"`
	Context   map[string]any `json:"context,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
}

// ResultStatus is the terminal status of an invocation.
type ResultStatus string

const (
	StatusOptimizationComplete ResultStatus = "optimization-complete"
	StatusFailed               ResultStatus = "failed"
)

// AgentResult is the envelope every agent invocation produces.
type AgentResult struct {
	RunID         string               `json:"runId"`
	AgentType     AgentType            `json:"agentType"`
	Operation     string               `json:"operation"`
	Status        ResultStatus         `json:"status"`
	Analysis      Analysis             `json:"analysis,omitempty"`
	Optimizations []Optimization       `json:"optimizations,omitempty"`
	Results       *ApplyResults        `json:"results,omitempty"`
	Performance   *PerformanceSnapshot `json:"performance,omitempty"`
	Error         string               `json:"error,omitempty"`
	StartedAt     time.Time            `json:"startedAt"`
	CompletedAt   time.Time            `json:"completedAt"`
}

// PerformanceSnapshot is a point-in-time copy of an agent's accumulator.
type PerformanceSnapshot struct {
	TotalOperations      int           `json:"totalOperations"`
	SuccessCount         int           `json:"successCount"`
	ErrorCount           int           `json:"errorCount"`
	AverageExecutionTime time.Duration `json:"averageExecutionTime"`
	SuccessRate          float64       `json:"successRate"`
	LastActivity         time.Time     `json:"lastActivity,omitempty"`
}

// AgentStatus is a read-only snapshot of a running agent instance.
type AgentStatus struct {
	AgentType    AgentType           `json:"agentType"`
	IsActive     bool                `json:"isActive"`
	IsReady      bool                `json:"isReady"`
	LastActivity time.Time           `json:"lastActivity,omitempty"`
	Performance  PerformanceSnapshot `json:"performance"`
	ErrorCount   int                 `json:"errorCount"`
	SuccessCount int                 `json:"successCount"`
}

// Agent is the caller boundary every domain agent satisfies.
// On failure Execute returns a failed result together with the error.
type Agent interface {
	Type() AgentType
	Operations() []string
	Execute(ctx context.Context, operation string, actx AgentContext) (*AgentResult, error)
	Status() AgentStatus
}
