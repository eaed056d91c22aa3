package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

type nopStore struct{}

func (nopStore) Save(context.Context, string, *domain.State) error { return nil }
func (nopStore) Load(context.Context, string) (*domain.State, error) {
	return nil, domain.ErrConversationNotFound
}
func (nopStore) Delete(context.Context, string) error   { return nil }
func (nopStore) List(context.Context) ([]string, error) { return nil, nil }

func TestManager_LockEntriesAreReleased(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("conv-%d", i)
		_ = mgr.Save(ctx, id, domain.NewState(id))
		_, _ = mgr.Update(ctx, id, func(context.Context, *domain.State) error { return nil })
		_ = mgr.Delete(ctx, id)
	}

	assert.Empty(t, mgr.locks)
}
