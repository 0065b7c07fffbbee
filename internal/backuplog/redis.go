package backuplog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Key is the Redis list holding the events, newest at the head.
const Key = "backups:logs"

type redisStore struct {
	client   *redis.Client
	capacity int
}

func newRedisStore(url string, capacity int) (*redisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &redisStore{client: redis.NewClient(opts), capacity: capacity}, nil
}

func (s *redisStore) Push(ctx context.Context, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, Key, b)
		p.LTrim(ctx, Key, 0, int64(s.capacity-1))
		return nil
	})
	return err
}

// Recent skips list items that do not decode.
func (s *redisStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	limit = clampLimit(limit, s.capacity)
	items, err := s.client.LRange(ctx, Key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		var e Entry
		if err := json.Unmarshal([]byte(it), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Ping checks the connection.
func (s *redisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
