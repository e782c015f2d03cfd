package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// MemoryItem stores a cached value with the time it was written and its TTL.
type MemoryItem struct {
	Value    interface{}
	StoredAt time.Time
	TTL      time.Duration
}

// IsExpired reports whether the item is no longer readable at now.
// An item is readable while now - StoredAt <= TTL.
func (m *MemoryItem) IsExpired(now time.Time) bool {
	return now.Sub(m.StoredAt) > m.TTL
}

// MemoryCache implements Service using in-memory storage with LRU eviction.
// Expired entries are evicted lazily on read; there is no background sweeper.
type MemoryCache struct {
	data    map[string]*MemoryItem
	access  map[string]time.Time
	mutex   sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:    1000,
		DefaultTTL: DefaultTTL,
		Clock:      time.Now,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &MemoryCache{
		data:    make(map[string]*MemoryItem),
		access:  make(map[string]time.Time),
		maxSize: cfg.MaxSize,
		ttl:     cfg.DefaultTTL,
		now:     cfg.Clock,
	}
}

// Set stores value under key, overwriting any previous entry.
func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if expiration <= 0 {
		expiration = mc.ttl
	}

	if _, exists := mc.data[key]; !exists && len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}

	now := mc.now()
	mc.data[key] = &MemoryItem{
		Value:    value,
		StoredAt: now,
		TTL:      expiration,
	}
	mc.access[key] = now
	return nil
}

// Get copies the cached value into dest. Expired entries are deleted and reported as a miss.
func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mutex.Lock()
	item, exists := mc.data[key]
	if !exists {
		mc.mutex.Unlock()
		return ErrCacheMiss
	}
	now := mc.now()
	if item.IsExpired(now) {
		delete(mc.data, key)
		delete(mc.access, key)
		mc.mutex.Unlock()
		return ErrCacheMiss
	}
	mc.access[key] = now
	value := item.Value
	mc.mutex.Unlock()

	return assign(dest, value)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		delete(mc.data, key)
		delete(mc.access, key)
	}
	return nil
}

// Clear drops every entry.
func (mc *MemoryCache) Clear(_ context.Context) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	mc.data = make(map[string]*MemoryItem)
	mc.access = make(map[string]time.Time)
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	now := mc.now()
	for _, key := range keys {
		if item, ok := mc.data[key]; ok && !item.IsExpired(now) {
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of stored entries, expired or not.
func (mc *MemoryCache) Len() int {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	return len(mc.data)
}

func (mc *MemoryCache) evictLRU() {
	if len(mc.data) == 0 {
		return
	}

	var oldestKey string
	var oldestTime time.Time

	for key, accessTime := range mc.access {
		if oldestKey == "" || accessTime.Before(oldestTime) {
			oldestTime = accessTime
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(mc.data, oldestKey)
		delete(mc.access, oldestKey)
	}
}

// Close is a no-op kept for symmetry with the other layers.
func (mc *MemoryCache) Close() error {
	return nil
}

func assign(dest, value interface{}) error {
	if p, ok := dest.(*interface{}); ok {
		*p = value
		return nil
	}

	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return fmt.Errorf("cache: dest must be a non-nil pointer, got %T", dest)
	}
	target := dv.Elem()

	vv := reflect.ValueOf(value)
	if !vv.IsValid() {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	if vv.Type().AssignableTo(target.Type()) {
		target.Set(vv)
		return nil
	}
	if vv.Kind() == reflect.Ptr && !vv.IsNil() && vv.Elem().Type().AssignableTo(target.Type()) {
		target.Set(vv.Elem())
		return nil
	}

	// values written through another layer may arrive as a different shape
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal value: %w", err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("cache: unmarshal value: %w", err)
	}
	return nil
}

func derefValue(dest interface{}) interface{} {
	if p, ok := dest.(*interface{}); ok {
		return *p
	}
	v := reflect.ValueOf(dest)
	if v.Kind() == reflect.Ptr && !v.IsNil() {
		return v.Elem().Interface()
	}
	return dest
}
