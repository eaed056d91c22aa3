package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondition(t *testing.T) {
	hasName, err := NewCondition("has_name", ports.PredicateFunc(func(st *domain.State) (bool, error) {
		_, ok := st.Slots["customer"]
		return ok, nil
	}))
	require.NoError(t, err)

	st := customerState(map[string]any{"first_name": "Ravi"})
	require.NoError(t, hasName.Run(context.Background(), st))
	assert.True(t, st.ConditionResult)
	assert.Equal(t, "has_name", st.LastCondition)

	broken, err := NewCondition("broken", ports.PredicateFunc(func(*domain.State) (bool, error) {
		return true, errors.New("boom")
	}))
	require.NoError(t, err)
	require.NoError(t, broken.Run(context.Background(), st))
	assert.False(t, st.ConditionResult)
	assert.Equal(t, "boom", st.ConditionError)
	assert.Equal(t, "broken", st.LastCondition)
}
