package browserstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "storefront:session:"

type redisRepo struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis stores session areas as plain Redis strings that expire ttl after
// the last write. A zero ttl keeps keys forever.
func NewRedis(client *redis.Client, ttl time.Duration) Repository {
	return &redisRepo{client: client, prefix: defaultKeyPrefix, ttl: ttl}
}

// Dial parses a redis:// URL and verifies the server answers.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *redisRepo) Area(sessionID string) Area {
	return &redisArea{repo: r, prefix: r.prefix + sessionID + ":"}
}

func (r *redisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type redisArea struct {
	repo   *redisRepo
	prefix string
}

func (a *redisArea) GetItem(ctx context.Context, key string) ([]byte, error) {
	v, err := a.repo.client.Get(ctx, a.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (a *redisArea) SetItem(ctx context.Context, key string, value []byte) error {
	if err := a.repo.client.Set(ctx, a.prefix+key, value, a.repo.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
