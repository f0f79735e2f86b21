package store

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/kilianp07/rakeform/core/history"
	"github.com/kilianp07/rakeform/core/model"
)

// RedisStore keeps results as JSON entries of a Redis list.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to the redis URL and checks the connection.
func NewRedisStore(ctx context.Context, url, key string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client, key: key}, nil
}

// Append pushes the result to the tail of the list.
func (s *RedisStore) Append(ctx context.Context, res model.FormationResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.key, b).Err()
}

// List reads the whole list and filters it.
func (s *RedisStore) List(ctx context.Context, q history.Query) ([]model.FormationResult, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	res := make([]model.FormationResult, 0, len(raw))
	for _, item := range raw {
		var r model.FormationResult
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, r)
	}
	return q.Apply(res), nil
}

// Clear deletes the list.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

// Close closes the client.
func (s *RedisStore) Close() error { return s.client.Close() }
