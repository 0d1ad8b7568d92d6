package api

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessions keeps active session ids in redis so they survive instance
// restarts and are shared across replicas.
type RedisSessions struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessions creates a session store using the provided redis client.
// Entries expire after ttl, which should match the session token lifetime.
func NewRedisSessions(client *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{client: client, ttl: ttl}
}

func (r *RedisSessions) key(id string) string {
	return "session:" + id
}

func (r *RedisSessions) Add(ctx context.Context, id string) error {
	return r.client.Set(ctx, r.key(id), 1, r.ttl).Err()
}

func (r *RedisSessions) Remove(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

func (r *RedisSessions) Contains(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemorySessions is the process-local fallback when redis is not configured.
// Sessions vanish on restart, forcing a re-login.
type MemorySessions struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewMemorySessions creates an empty in-process session store.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{ids: make(map[string]struct{})}
}

func (m *MemorySessions) Add(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[id] = struct{}{}
	return nil
}

func (m *MemorySessions) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ids, id)
	return nil
}

func (m *MemorySessions) Contains(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[id]
	return ok, nil
}
