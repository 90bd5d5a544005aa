package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/weave/pkg/adapters/redis"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunRecordStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Second), redis.WithPrefix("test:"))
	ctx := context.Background()

	id, err := store.Create(ctx, domain.CollectionChats, json.RawMessage(`{"title":"t"}`))
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:chats:"+id))

	records, err := store.List(ctx, domain.CollectionChats)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	mr.FastForward(2 * time.Second)

	_, err = store.Get(ctx, domain.CollectionChats, id)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	records, err = store.List(ctx, domain.CollectionChats)
	require.NoError(t, err)
	assert.Empty(t, records)

	members, err := mr.ZMembers("test:chats:index")
	if err == nil {
		assert.Empty(t, members, "expired ids are pruned from the index")
	}
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "graph-1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:graph-1"), "Lock key should be set in Redis")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:graph-1"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	_, client := setup(t)
	first := redis.NewLocker(client, "test:")
	second := redis.NewLocker(client, "test:")

	unlock, err := first.Lock(context.Background(), "shared", 5*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = second.Lock(ctx, "shared", 5*time.Second)
	assert.ErrorIs(t, err, redis.ErrLockAcquire)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(context.Background()))

	unlock2, err := second.Lock(context.Background(), "shared", 5*time.Second)
	require.NoError(t, err)
	assert.NoError(t, unlock2(context.Background()))
}

func TestRedisLocker_ExpiredLockIsNotReleasedByOldOwner(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	stale, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := locker.Lock(ctx, "k", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	assert.True(t, mr.Exists("test:lock:k"), "stale owner must not release the new lock")
	require.NoError(t, fresh(ctx))
}
