package deliverylog

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mandrill-gateway/internal/config"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisRecorder_RecordAndRecent(t *testing.T) {
	_, client := setupTestRedis(t)
	rec := NewRedisRecorder(client, "sends", 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, rec.Record(ctx, Entry{Slug: fmt.Sprintf("tpl-%d", i), Successful: true}))
	}

	n, err := client.LLen(ctx, "sends").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	entries, err := rec.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "tpl-4", entries[0].Slug)
	assert.Equal(t, "tpl-2", entries[2].Slug)
	assert.NotEmpty(t, entries[0].ID.String())
	assert.False(t, entries[0].SentAt.IsZero())

	entries, err = rec.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tpl-4", entries[0].Slug)

	entries, err = rec.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRedisRecorder_UncappedList(t *testing.T) {
	_, client := setupTestRedis(t)
	rec := NewRedisRecorder(client, "sends", 0)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, rec.Record(ctx, Entry{Slug: "x"}))
	}
	n, err := client.LLen(ctx, "sends").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestRedisRecorder_CorruptEntry(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Lpush("sends", "not-json")

	_, err := NewRedisRecorder(client, "sends", 10).Recent(context.Background(), 5)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	rec, closeFn, err := Open(ctx, config.DeliveryLogConfig{Type: "none"})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, rec)
	assert.NoError(t, closeFn())
	assert.NoError(t, rec.Record(ctx, Entry{}))

	mr, _ := setupTestRedis(t)
	rec, closeFn, err = Open(ctx, config.DeliveryLogConfig{Type: "redis", RedisAddr: mr.Addr(), RedisKey: "k", MaxEntries: 5})
	require.NoError(t, err)
	_, ok := rec.(Lister)
	assert.True(t, ok)
	assert.NoError(t, closeFn())

	_, _, err = Open(ctx, config.DeliveryLogConfig{Type: "postgres"})
	assert.Error(t, err)
	_, _, err = Open(ctx, config.DeliveryLogConfig{Type: "redis"})
	assert.Error(t, err)
	_, _, err = Open(ctx, config.DeliveryLogConfig{Type: "kafka"})
	assert.Error(t, err)
}
