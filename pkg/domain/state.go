package domain

import (
	"time"

	"github.com/aretw0/slotflow/pkg/fieldpath"
)

// Role identifies the author of a history entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the conversation history.
type Turn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// State is the conversation snapshot threaded through every node of one invocation.
//
// Field slots (customer, vehicle, appointment, ...) live in Slots and are only
// reached through fieldpath paths. The remaining fields are the workflow control
// surface shared by all nodes.
type State struct {
	// ConversationID is the stable external identity (session key).
	ConversationID string `json:"conversation_id" yaml:"conversation_id"`

	// UserMessage is the raw text of the current turn.
	UserMessage string `json:"user_message" yaml:"user_message"`

	// History is append-only and grows by one entry per user or assistant message.
	History []Turn `json:"history" yaml:"history"`

	// Slots holds the loosely-typed field records, each with an optional
	// "confidence" and "turn_extracted" key.
	Slots map[string]any `json:"slots" yaml:"slots"`

	// Errors accumulates error tags during one invocation.
	Errors []string `json:"errors" yaml:"errors"`

	// CurrentStep is the awaiting-input marker of a paused node group.
	// Empty means the workflow is not paused.
	CurrentStep string `json:"current_step,omitempty" yaml:"current_step,omitempty"`

	// ShouldProceed tells the driver whether to keep advancing nodes.
	ShouldProceed bool `json:"should_proceed" yaml:"should_proceed"`

	// Response is the last message dispatched to the user.
	Response string `json:"response,omitempty" yaml:"response,omitempty"`

	// GateDecision is the label written by the most recent confidence gate.
	GateDecision string `json:"gate_decision,omitempty" yaml:"gate_decision,omitempty"`

	// Decisions keeps every gate label by gate name.
	Decisions map[string]string `json:"decisions,omitempty" yaml:"decisions,omitempty"`

	ConditionResult bool   `json:"condition_result" yaml:"condition_result"`
	LastCondition   string `json:"last_condition_name,omitempty" yaml:"last_condition_name,omitempty"`
	ConditionError  string `json:"condition_error,omitempty" yaml:"condition_error,omitempty"`

	// Turn counts inbound user messages. Nodes use it to stamp turn_extracted.
	Turn int `json:"turn" yaml:"turn"`

	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewState creates a clean state for a brand-new conversation.
func NewState(conversationID string) *State {
	return &State{
		ConversationID: conversationID,
		History:        []Turn{},
		Slots:          make(map[string]any),
		Errors:         []string{},
		Decisions:      make(map[string]string),
		ShouldProceed:  true,
	}
}

// Get returns the value at path, or nil when any segment is missing.
func (s *State) Get(p fieldpath.Path) any {
	return fieldpath.Get(s.Slots, p)
}

// Lookup is like Get but reports whether the path resolved.
func (s *State) Lookup(p fieldpath.Path) (any, bool) {
	return fieldpath.Lookup(s.Slots, p)
}

// Set writes value at path, creating intermediate records.
func (s *State) Set(p fieldpath.Path, value any) {
	if s.Slots == nil {
		s.Slots = make(map[string]any)
	}
	fieldpath.Set(s.Slots, p, value)
}

// AddError appends an error tag. Prior entries are never removed.
func (s *State) AddError(tag string) {
	s.Errors = append(s.Errors, tag)
}

// HasError reports whether tag was recorded during this invocation.
func (s *State) HasError(tag string) bool {
	for _, e := range s.Errors {
		if e == tag {
			return true
		}
	}
	return false
}

// AppendTurn adds an entry to the history.
func (s *State) AppendTurn(role Role, content string) {
	s.History = append(s.History, Turn{Role: role, Content: content})
}

// Pause parks the workflow until the next inbound message.
func (s *State) Pause(step string) {
	s.CurrentStep = step
	s.ShouldProceed = false
}

// Resolve clears the step marker and lets the driver advance again.
func (s *State) Resolve() {
	s.CurrentStep = ""
	s.ShouldProceed = true
}

// Paused reports whether the workflow is waiting for user input.
func (s *State) Paused() bool {
	return s.CurrentStep != "" && !s.ShouldProceed
}

// BeginTurn resets the per-invocation fields for a new inbound message.
func (s *State) BeginTurn(message string) {
	s.UserMessage = message
	s.Errors = []string{}
	s.ShouldProceed = true
	s.Response = ""
	s.Turn++
	s.AppendTurn(RoleUser, message)
}

// Clone returns a deep copy safe to mutate independently.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	next := *s
	if s.History != nil {
		next.History = append(make([]Turn, 0, len(s.History)), s.History...)
	}
	if s.Errors != nil {
		next.Errors = append(make([]string, 0, len(s.Errors)), s.Errors...)
	}
	next.Slots = fieldpath.Clone(s.Slots)
	if s.Decisions != nil {
		next.Decisions = make(map[string]string, len(s.Decisions))
		for k, v := range s.Decisions {
			next.Decisions[k] = v
		}
	}
	return &next
}
