package override

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rota/rota/pkg/calendar"
)

// RedisStore keeps override grants in Redis so multiple API instances see
// the same approvals. Expiry is delegated to Redis key TTLs.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis at the given URL (redis://...). A ttl of
// zero means grants never expire.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Grant(ctx context.Context, providerID uuid.UUID, date calendar.Date, block calendar.TimeBlock, grantedBy string) error {
	if err := s.client.Set(ctx, key(providerID, date, block), grantedBy, s.ttl).Err(); err != nil {
		return fmt.Errorf("storing override grant: %w", err)
	}
	return nil
}

func (s *RedisStore) Allowed(ctx context.Context, providerID uuid.UUID, date calendar.Date, block calendar.TimeBlock) (bool, error) {
	n, err := s.client.Exists(ctx, key(providerID, date, block)).Result()
	if err != nil {
		return false, fmt.Errorf("checking override grant: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Revoke(ctx context.Context, providerID uuid.UUID, date calendar.Date, block calendar.TimeBlock) error {
	if err := s.client.Del(ctx, key(providerID, date, block)).Err(); err != nil {
		return fmt.Errorf("revoking override grant: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
