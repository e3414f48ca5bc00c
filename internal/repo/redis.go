package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/domain"
)

// RedisSnapshotRepo stores snapshots as plain Redis strings.
// A positive ttl makes every Save reset the key's expiry; zero keeps keys
// until they are deleted.
type RedisSnapshotRepo struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshotRepo wraps an existing client.
func NewRedisSnapshotRepo(client *redis.Client, ttl time.Duration) *RedisSnapshotRepo {
	return &RedisSnapshotRepo{client: client, ttl: ttl}
}

func (r *RedisSnapshotRepo) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("repo.RedisSnapshotRepo.Load: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("repo.RedisSnapshotRepo.Load: %w", err)
	}
	return data, nil
}

func (r *RedisSnapshotRepo) Save(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("repo.RedisSnapshotRepo.Save: %w", err)
	}
	return nil
}

func (r *RedisSnapshotRepo) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("repo.RedisSnapshotRepo.Delete: %w", err)
	}
	return nil
}
