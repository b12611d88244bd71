package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"apeguard/pkg/platform/sentinel"
)

// KeyPrefix namespaces snapshot keys in Redis.
const KeyPrefix = "apeguard:snapshot:"

// Redis stores each snapshot as one JSON value.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Save(ctx context.Context, snap Snapshot) error {
	value, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap.Name, err)
	}
	if err := s.client.Set(ctx, KeyPrefix+snap.Name, value, 0).Err(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.Name, errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}

func (s *Redis) Load(ctx context.Context, name string) (Snapshot, error) {
	value, err := s.client.Get(ctx, KeyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot %s: %w", name, errors.Join(sentinel.ErrUnavailable, err))
	}
	var snap Snapshot
	if err := json.Unmarshal(value, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", name, err)
	}
	return snap, nil
}
