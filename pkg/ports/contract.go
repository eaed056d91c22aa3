package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	conversationID := "contract-test-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(conversationID)
		state.BeginTurn("hello")
		state.Slots["customer"] = map[string]any{"first_name": "Ravi", "confidence": 0.9}
		state.Slots["count"] = 42
		state.Pause("awaiting_vehicle_selection")
		state.AddError(domain.TagScanFailed("first_name"))

		err := store.Save(ctx, conversationID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, conversationID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, conversationID, loaded.ConversationID)
		assert.Equal(t, "awaiting_vehicle_selection", loaded.CurrentStep)
		assert.False(t, loaded.ShouldProceed)
		assert.Equal(t, state.History, loaded.History)
		assert.Equal(t, state.Errors, loaded.Errors)

		customer, ok := loaded.Slots["customer"].(map[string]any)
		require.True(t, ok, "records must round-trip as map[string]any")
		assert.Equal(t, "Ravi", customer["first_name"])
		assert.EqualValues(t, 0.9, customer["confidence"])
		// JSON persistence converts ints to float64, so only check existence.
		assert.NotNil(t, loaded.Slots["count"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+conversationID)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, conversationID, domain.NewState(conversationID))
		require.NoError(t, err)

		err = store.Delete(ctx, conversationID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, conversationID)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound, "Load after Delete should return ErrConversationNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := conversationID + "-1"
		id2 := conversationID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(id1))
		_ = store.Save(ctx, id2, domain.NewState(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
