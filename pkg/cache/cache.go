package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// DefaultTTL applies when Set is called with a non-positive expiration.
const DefaultTTL = 5 * time.Minute

// Service defines cache operations interface.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Clear(ctx context.Context) error
}

// GetTyped reads key into a fresh T. Misses return ErrCacheMiss.
func GetTyped[T any](ctx context.Context, c Service, key string) (T, error) {
	var v T
	if err := c.Get(ctx, key, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
