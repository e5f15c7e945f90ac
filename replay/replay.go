// Package replay remembers which state values have been used, so that a
// callback cannot be processed twice even if an old session cookie is sent
// again.
package replay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/redis/go-redis/v9"
)

// Guard records state values as used.
type Guard interface {
	// Consume returns true the first time state is seen, and false after.
	Consume(ctx context.Context, state string) (bool, error)
}

// Memory is a Guard for a single process.
type Memory struct {
	mu    sync.Mutex
	ttl   time.Duration
	cache *ttlcache.Cache[string, struct{}]
}

// NewMemory creates a Guard that remembers states for ttl, which should be at
// least as long as a pending sign-in lives. Call Stop when done with it.
func NewMemory(ttl time.Duration) *Memory {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, struct{}](ttl),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)

	go cache.Start()

	return &Memory{ttl: ttl, cache: cache}
}

func (m *Memory) Consume(_ context.Context, state string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cache.Has(state) {
		return false, nil
	}

	m.cache.Set(state, struct{}{}, m.ttl)
	return true, nil
}

// Stop ends the expiry loop.
func (m *Memory) Stop() {
	m.cache.Stop()
}

// Redis is a Guard shared between processes.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Guard storing keys under prefix for ttl.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *Redis) key(state string) string {
	return fmt.Sprintf("%s:state:%s", r.prefix, state)
}

func (r *Redis) Consume(ctx context.Context, state string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(state), "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("consume state: %w", err)
	}

	return ok, nil
}

var (
	_ Guard = (*Memory)(nil)
	_ Guard = (*Redis)(nil)
)
