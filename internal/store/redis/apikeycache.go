package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gosuda/planboard/internal/auth"
	"github.com/gosuda/planboard/internal/domain"
)

// KeyVerifier resolves an API key to its owner, normally the backend client.
type KeyVerifier interface {
	VerifyAPIKey(ctx context.Context, key string) (*domain.APIKeyIdentity, error)
}

// APIKeyCache remembers successful API key verifications for ttl. Keys are
// stored by hash only; rejections are not cached.
type APIKeyCache struct {
	src KeyVerifier
	ps  *PubSub
	ttl time.Duration
	now func() time.Time
}

func NewAPIKeyCache(src KeyVerifier, ps *PubSub, ttl time.Duration) *APIKeyCache {
	return &APIKeyCache{src: src, ps: ps, ttl: ttl, now: time.Now}
}

func (c *APIKeyCache) VerifyAPIKey(ctx context.Context, key string) (*domain.APIKeyIdentity, error) {
	if !auth.LooksLikeAPIKey(key) {
		return nil, fmt.Errorf("redis.APIKeyCache.VerifyAPIKey: %w", auth.ErrInvalidAPIKey)
	}

	cacheKey := "cache:apikey:" + auth.HashAPIKey(key)
	if id, ok := c.load(ctx, cacheKey); ok {
		if c.expired(id) {
			_ = c.ps.client.Del(ctx, cacheKey).Err()
			return nil, fmt.Errorf("redis.APIKeyCache.VerifyAPIKey: expired: %w", auth.ErrInvalidAPIKey)
		}
		return id, nil
	}

	id, err := c.src.VerifyAPIKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("redis.APIKeyCache.VerifyAPIKey: %w", err)
	}
	if c.expired(id) {
		return nil, fmt.Errorf("redis.APIKeyCache.VerifyAPIKey: expired: %w", auth.ErrInvalidAPIKey)
	}

	if c.ps != nil && c.ttl > 0 {
		if data, err := json.Marshal(id); err == nil {
			_ = c.ps.client.Set(ctx, cacheKey, data, c.ttl).Err()
		}
	}
	return id, nil
}

func (c *APIKeyCache) expired(id *domain.APIKeyIdentity) bool {
	return id.Expires != nil && id.Expires.Before(c.now())
}

func (c *APIKeyCache) load(ctx context.Context, key string) (*domain.APIKeyIdentity, bool) {
	if c.ps == nil || c.ttl == 0 {
		return nil, false
	}
	data, err := c.ps.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			_ = c.ps.client.Del(ctx, key).Err()
		}
		return nil, false
	}
	var id domain.APIKeyIdentity
	if err := json.Unmarshal(data, &id); err != nil {
		_ = c.ps.client.Del(ctx, key).Err()
		return nil, false
	}
	return &id, true
}
