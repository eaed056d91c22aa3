package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/slotflow/pkg/adapters/sqlite"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "slotflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, newTestStore(t))
}

func TestSQLiteStore_Upsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	st := domain.NewState("c1")
	st.Slots["name"] = "first"
	require.NoError(t, store.Save(ctx, "c1", st))

	st.Slots["name"] = "second"
	require.NoError(t, store.Save(ctx, "c1", st))

	loaded, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.Slots["name"])

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)
}

func TestSQLiteStore_Paused(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	waiting := domain.NewState("c1")
	waiting.Pause("awaiting_vehicle_selection")
	require.NoError(t, store.Save(ctx, "c1", waiting))
	require.NoError(t, store.Save(ctx, "c2", domain.NewState("c2")))

	ids, err := store.Paused(ctx, "awaiting_vehicle_selection")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)
}
