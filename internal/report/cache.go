package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache stores report payloads per condominium. Invalidate drops every
// entry of one condominium at once.
type Cache interface {
	FetchJSON(ctx context.Context, condominiumID uuid.UUID, name string, dest any, loader func(context.Context) (any, error)) error
	Invalidate(ctx context.Context, condominiumID uuid.UUID) error
}

// RedisCache versions keys per condominium. Invalidate bumps the version so
// older entries are never read again and expire on their TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func versionKey(condominiumID uuid.UUID) string {
	return "conciliacao:report:version:" + condominiumID.String()
}

// Version returns the current version for a condominium. A missing key reads
// as version 0.
func (c *RedisCache) Version(ctx context.Context, condominiumID uuid.UUID) (int64, error) {
	ver, err := c.client.Get(ctx, versionKey(condominiumID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("reading cache version: %w", err)
	}

	return ver, nil
}

func (c *RedisCache) FetchJSON(ctx context.Context, condominiumID uuid.UUID, name string, dest any, loader func(context.Context) (any, error)) error {
	ver, err := c.Version(ctx, condominiumID)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("conciliacao:report:%s:%s:%d", condominiumID, name, ver)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}

	if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("reading cache: %w", err)
	}

	value, err := loader(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}

	return json.Unmarshal(raw, dest)
}

func (c *RedisCache) Invalidate(ctx context.Context, condominiumID uuid.UUID) error {
	if err := c.client.Incr(ctx, versionKey(condominiumID)).Err(); err != nil {
		return fmt.Errorf("bumping cache version: %w", err)
	}

	return nil
}

// NopCache always calls the loader.
type NopCache struct{}

func (NopCache) FetchJSON(ctx context.Context, _ uuid.UUID, _ string, dest any, loader func(context.Context) (any, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, dest)
}

func (NopCache) Invalidate(context.Context, uuid.UUID) error {
	return nil
}
