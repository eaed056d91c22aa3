package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	base := func() *State {
		s := NewState("c1")
		s.Slots["customer"] = map[string]any{"first_name": "Ravi", "confidence": 0.9}
		s.History = []Turn{{Role: RoleUser, Content: "hi"}}
		return s
	}

	tests := []struct {
		name   string
		mutate func(s *State)
		check  func(t *testing.T, d *TurnDiff)
	}{
		{
			name:   "no changes",
			mutate: func(s *State) {},
			check: func(t *testing.T, d *TurnDiff) {
				assert.True(t, d.IsEmpty())
			},
		},
		{
			name: "slot added and step paused",
			mutate: func(s *State) {
				s.Slots["vehicle"] = map[string]any{"brand": "Honda"}
				s.Pause("awaiting_vehicle_selection")
			},
			check: func(t *testing.T, d *TurnDiff) {
				require.NotNil(t, d.CurrentStep)
				assert.Equal(t, "awaiting_vehicle_selection", *d.CurrentStep)
				require.NotNil(t, d.ShouldProceed)
				assert.False(t, *d.ShouldProceed)
				assert.Equal(t, map[string]any{"vehicle": map[string]any{"brand": "Honda"}}, d.Slots)
				assert.Nil(t, d.History)
			},
		},
		{
			name: "slot deleted",
			mutate: func(s *State) {
				delete(s.Slots, "customer")
			},
			check: func(t *testing.T, d *TurnDiff) {
				v, ok := d.Slots["customer"]
				assert.True(t, ok)
				assert.Nil(t, v)
			},
		},
		{
			name: "history appended with errors",
			mutate: func(s *State) {
				s.AppendTurn(RoleAssistant, "What is your name?")
				s.AddError(TagExtractionFailed("first_name"))
				s.Response = "What is your name?"
			},
			check: func(t *testing.T, d *TurnDiff) {
				assert.Equal(t, []Turn{{Role: RoleAssistant, Content: "What is your name?"}}, d.History)
				assert.Equal(t, []string{"extraction_failed_first_name"}, d.Errors)
				assert.Equal(t, "What is your name?", d.Response)
			},
		},
		{
			name: "history rewritten",
			mutate: func(s *State) {
				s.History = []Turn{{Role: RoleUser, Content: "hello"}}
			},
			check: func(t *testing.T, d *TurnDiff) {
				assert.Equal(t, []Turn{{Role: RoleUser, Content: "hello"}}, d.History)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := base()
			after := before.Clone()
			tt.mutate(after)
			tt.check(t, Diff(before, after))
		})
	}
}

func TestDiff_InitialLoad(t *testing.T) {
	s := NewState("c1")
	s.BeginTurn("hi")

	d := Diff(nil, s)
	require.NotNil(t, d)
	assert.Equal(t, "c1", d.ConversationID)
	assert.Equal(t, []Turn{{Role: RoleUser, Content: "hi"}}, d.History)
	require.NotNil(t, d.ShouldProceed)
	assert.True(t, *d.ShouldProceed)
}

func TestState_CloneIsIndependent(t *testing.T) {
	s := NewState("c1")
	s.Slots["customer"] = map[string]any{"first_name": "Ravi"}
	s.Decisions["name_gate"] = "high_confidence"

	c := s.Clone()
	c.Slots["customer"].(map[string]any)["first_name"] = "Asha"
	c.Decisions["name_gate"] = "low_confidence"
	c.AddError("x")

	assert.Equal(t, "Ravi", s.Slots["customer"].(map[string]any)["first_name"])
	assert.Equal(t, "high_confidence", s.Decisions["name_gate"])
	assert.Empty(t, s.Errors)
}

func TestState_CloneKeepsEmptySlices(t *testing.T) {
	s := NewState("c1")
	s.BeginTurn("hi")
	s.History = []Turn{}

	c := s.Clone()
	require.NotNil(t, c.Errors)
	require.NotNil(t, c.History)
	assert.Equal(t, s.Errors, c.Errors)
	assert.Equal(t, s.History, c.History)

	assert.Nil(t, (&State{}).Clone().Errors)
}

func TestState_BeginTurnResetsInvocationFields(t *testing.T) {
	s := NewState("c1")
	s.AddError("old")
	s.Response = "previous"
	s.Pause("awaiting_x")

	s.BeginTurn("hello")

	assert.Empty(t, s.Errors)
	assert.True(t, s.ShouldProceed)
	assert.Equal(t, "awaiting_x", s.CurrentStep)
	assert.Empty(t, s.Response)
	assert.Equal(t, "hello", s.UserMessage)
	assert.Equal(t, 1, s.Turn)
	assert.Equal(t, []Turn{{Role: RoleUser, Content: "hello"}}, s.History)
}

func TestExtraction_ValueFor(t *testing.T) {
	assert.Equal(t, "Ravi", Extraction{Fields: map[string]any{"first_name": "Ravi"}, Value: "x"}.ValueFor("first_name"))
	assert.Equal(t, "x", Extraction{Fields: map[string]any{"first_name": ""}, Value: "x"}.ValueFor("first_name"))
	assert.Nil(t, Extraction{Value: ""}.ValueFor("first_name"))
	assert.True(t, Extraction{}.Empty())
	assert.False(t, Extraction{Value: 42}.Empty())
}

func TestTags(t *testing.T) {
	assert.Equal(t, "validation_failed_customer.first_name_min_length", TagValidationFailed("customer", "first_name", "min_length"))
	assert.Equal(t, "api_call_failed_vehicle_options", TagCallFailed("vehicle_options"))
	assert.Equal(t, "scan_failed_first_name", TagScanFailed("first_name"))
}
