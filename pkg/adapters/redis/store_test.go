package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/slotflow/pkg/adapters/redis"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunStateStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("test:"))

	require.NoError(t, store.Save(context.Background(), "c1", domain.NewState("c1")))
	assert.True(t, mr.Exists("test:c1"))
	assert.True(t, mr.Exists("test:index"))
}

func TestRedisStore_TTLExpiration(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	st := domain.NewState("c-ttl")
	st.Slots["customer"] = map[string]any{"first_name": "Ravi"}
	require.NoError(t, store.Save(ctx, "c-ttl", st))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "c-ttl")

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "c-ttl")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestRedisStore_DeleteRemovesIndexEntry(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "c1", domain.NewState("c1")))
	require.NoError(t, store.Delete(ctx, "c1"))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids, "c1")
}
