package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *RedisKVStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return NewRedisKVStore(client)
}

func TestRedisKVStore_SetGet(t *testing.T) {
	kv := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", "v", 0))

	val, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
}

func TestRedisKVStore_GetMissing(t *testing.T) {
	kv := setupTestRedis(t)

	_, err := kv.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrKeyMiss)
}

func TestRedisKVStore_SetWithTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	kv := NewRedisKVStore(client)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", "v", 10*time.Second))

	mr.FastForward(11 * time.Second)

	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyMiss)
}
