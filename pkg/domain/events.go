package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter    EventType = "node_enter"
	EventNodeLeave    EventType = "node_leave"
	EventCallAttempt  EventType = "call_attempt"
	EventTurnComplete EventType = "turn_complete"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp      time.Time `json:"timestamp"`
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	Node string `json:"node"`
	// Duration and Err are only set on leave.
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
	NewErrors []string      `json:"new_errors,omitempty"`
}

// CallEvent represents one attempt of an external call.
type CallEvent struct {
	EventBase
	Node       string        `json:"node"`
	Method     string        `json:"method"`
	URL        string        `json:"url"`
	Attempt    int           `json:"attempt"`
	StatusCode int           `json:"status_code,omitempty"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
}

// TurnEvent is emitted once per handled inbound message.
type TurnEvent struct {
	EventBase
	Paused   bool          `json:"paused"`
	Errors   []string      `json:"errors,omitempty"`
	Duration time.Duration `json:"duration"`
	// Err is the error returned to the caller, if any.
	Err error `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter    func(context.Context, *NodeEvent)
	OnNodeLeave    func(context.Context, *NodeEvent)
	OnCallAttempt  func(context.Context, *CallEvent)
	OnTurnComplete func(context.Context, *TurnEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter:    chain(h.OnNodeEnter, other.OnNodeEnter),
		OnNodeLeave:    chain(h.OnNodeLeave, other.OnNodeLeave),
		OnCallAttempt:  chain(h.OnCallAttempt, other.OnCallAttempt),
		OnTurnComplete: chain(h.OnTurnComplete, other.OnTurnComplete),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
