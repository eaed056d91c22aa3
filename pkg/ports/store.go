package ports

import (
	"context"

	"github.com/aretw0/slotflow/pkg/domain"
)

// StateStore defines the interface for persisting conversation state
// between invocations.
type StateStore interface {
	// Save persists the state for a given conversation ID.
	Save(ctx context.Context, conversationID string, state *domain.State) error

	// Load retrieves the state for a given conversation ID.
	// Returns domain.ErrConversationNotFound if the conversation does not exist.
	Load(ctx context.Context, conversationID string) (*domain.State, error)

	// Delete removes the state for a given conversation ID.
	Delete(ctx context.Context, conversationID string) error

	// List returns all active conversation IDs.
	List(ctx context.Context) ([]string, error)
}
