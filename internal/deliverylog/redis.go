package deliverylog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisRecorder keeps a capped list of JSON entries, newest at the head.
type RedisRecorder struct {
	client     *redis.Client
	key        string
	maxEntries int64
}

// NewRedisRecorder creates a recorder writing to key, trimmed to maxEntries.
// maxEntries of zero or less leaves the list uncapped.
func NewRedisRecorder(client *redis.Client, key string, maxEntries int64) *RedisRecorder {
	return &RedisRecorder{client: client, key: key, maxEntries: maxEntries}
}

// Record pushes one entry and trims the list in a single transaction.
func (r *RedisRecorder) Record(ctx context.Context, e Entry) error {
	stamp(&e)

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding send %s: %w", e.ID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.key, data)
		if r.maxEntries > 0 {
			pipe.LTrim(ctx, r.key, 0, r.maxEntries-1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("recording send %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *RedisRecorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	items, err := r.client.LRange(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing sends: %w", err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("decoding send: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
