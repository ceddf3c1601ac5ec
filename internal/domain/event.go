package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventAgentRunStarted   EventType = "agent.run.started"
	EventAgentRunCompleted EventType = "agent.run.completed"
	EventAgentRunFailed    EventType = "agent.run.failed"

	EventMarketAnalysisCompleted EventType = "market.analysis.completed"
	EventMarketAnalysisCached    EventType = "market.analysis.cached"
	EventMarketAnalysisFallback  EventType = "market.analysis.fallback"

	EventScheduledRunFired EventType = "scheduler.run.fired"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// AgentRunPayload is the payload of agent.run.* events.
type AgentRunPayload struct {
	RunID         string        `json:"run_id"`
	AgentType     AgentType     `json:"agent_type"`
	Operation     string        `json:"operation"`
	Priority      Priority      `json:"priority,omitempty"`
	Duration      time.Duration `json:"duration,omitempty"`
	Optimizations int           `json:"optimizations,omitempty"`
	Applied       int           `json:"applied,omitempty"`
	Failed        int           `json:"failed,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// MarketPayload is the payload of market.analysis.* events.
type MarketPayload struct {
	Key        string        `json:"key"`
	Confidence float64       `json:"confidence"`
	Duration   time.Duration `json:"duration,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// NewEvent marshals payload into an Event stamped with the current time.
func NewEvent(eventType EventType, source string, payload any) Event {
	ev := Event{Type: eventType, Timestamp: time.Now(), Source: source}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			ev.Payload = raw
		}
	}
	return ev
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventPublisher is the publish side of the bus, all the core depends on.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	EventPublisher
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}
