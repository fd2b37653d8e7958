package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reservation-service/pkg/middleware"
)

const idempotencyPrefix = "idempotency:"

// RequestIDStore lets the idempotency middleware share replays across
// instances through the cache.
type RequestIDStore struct {
	cache Cache
}

func NewRequestIDStore(cache Cache) *RequestIDStore {
	return &RequestIDStore{cache: cache}
}

func (s *RequestIDStore) Store(ctx context.Context, key string, response middleware.CachedResponse, ttl time.Duration) error {
	data, err := middleware.MarshalCachedResponse(response)
	if err != nil {
		return fmt.Errorf("marshal cached response: %w", err)
	}
	return s.cache.Set(ctx, idempotencyPrefix+key, data, ttl)
}

func (s *RequestIDStore) Get(ctx context.Context, key string) (middleware.CachedResponse, error) {
	data, err := s.cache.Get(ctx, idempotencyPrefix+key)
	if errors.Is(err, ErrCacheMiss) {
		return middleware.CachedResponse{}, middleware.ErrRequestIDNotFound
	}
	if err != nil {
		return middleware.CachedResponse{}, err
	}
	return middleware.UnmarshalCachedResponse(data)
}
