package domain

import (
	"reflect"
)

// TurnDiff represents what one invocation changed.
// It is serialized to JSON in API responses so clients can patch their local view.
type TurnDiff struct {
	ConversationID string `json:"conversation_id"`

	CurrentStep   *string `json:"current_step,omitempty"`
	ShouldProceed *bool   `json:"should_proceed,omitempty"`

	// Slots contains only changed, added or deleted top-level slots.
	// For deletions, the key is present with a nil value.
	Slots map[string]any `json:"slots,omitempty"`

	// History holds the turns appended since the previous snapshot.
	History []Turn `json:"history,omitempty"`

	// Errors holds the tags recorded by this invocation.
	Errors []string `json:"errors,omitempty"`

	Response string `json:"response,omitempty"`
}

// Diff calculates the difference between before and after.
// A nil before yields a diff describing the whole of after.
func Diff(before, after *State) *TurnDiff {
	if after == nil {
		return nil
	}

	diff := &TurnDiff{
		ConversationID: after.ConversationID,
		Errors:         append([]string(nil), after.Errors...),
	}

	if before == nil || before.CurrentStep != after.CurrentStep {
		step := after.CurrentStep
		diff.CurrentStep = &step
	}
	if before == nil || before.ShouldProceed != after.ShouldProceed {
		proceed := after.ShouldProceed
		diff.ShouldProceed = &proceed
	}
	if before == nil || before.Response != after.Response {
		diff.Response = after.Response
	}

	var oldSlots map[string]any
	var oldHistory []Turn
	if before != nil {
		oldSlots = before.Slots
		oldHistory = before.History
	}
	diff.Slots = diffSlots(oldSlots, after.Slots)
	diff.History = diffHistory(oldHistory, after.History)

	return diff
}

func diffSlots(before, after map[string]any) map[string]any {
	delta := make(map[string]any)

	for k, v := range after {
		if old, ok := before[k]; !ok || !reflect.DeepEqual(old, v) {
			delta[k] = v
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// diffHistory assumes append-only history.
// A rewritten history returns the full new slice.
func diffHistory(before, after []Turn) []Turn {
	if len(after) <= len(before) {
		if reflect.DeepEqual(before, after) {
			return nil
		}
		return append([]Turn(nil), after...)
	}
	for i := range before {
		if before[i] != after[i] {
			return append([]Turn(nil), after...)
		}
	}
	return append([]Turn(nil), after[len(before):]...)
}

// IsEmpty returns true if the diff carries no changes.
func (d *TurnDiff) IsEmpty() bool {
	return d.CurrentStep == nil &&
		d.ShouldProceed == nil &&
		len(d.Slots) == 0 &&
		len(d.History) == 0 &&
		len(d.Errors) == 0 &&
		d.Response == ""
}
