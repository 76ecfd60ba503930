package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/viralforge/economy-bridge/internal/ports"
)

const secretKeyPrefix = "economy:region-secret:"

// Connect initializes a Redis client from URL or host:port input.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// RedisSecretStore shares region secrets between simulator processes that serve
// the same regions. Single-key SET/GET/DEL are atomic, so readers never see a torn value.
type RedisSecretStore struct {
	client *redis.Client
}

func NewRedisSecretStore(client *redis.Client) *RedisSecretStore {
	return &RedisSecretStore{client: client}
}

func (s *RedisSecretStore) Get(ctx context.Context, regionID uuid.UUID) (string, bool, error) {
	secret, err := s.client.Get(ctx, secretKeyPrefix+regionID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return secret, true, nil
}

func (s *RedisSecretStore) Set(ctx context.Context, regionID uuid.UUID, secret string) error {
	return s.client.Set(ctx, secretKeyPrefix+regionID.String(), secret, 0).Err()
}

func (s *RedisSecretStore) Clear(ctx context.Context, regionID uuid.UUID) error {
	return s.client.Del(ctx, secretKeyPrefix+regionID.String()).Err()
}

var _ ports.SecretStore = (*RedisSecretStore)(nil)
