package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"kanban-api/domain"
)

type backend interface {
	FetchBoard(ctx context.Context) (domain.Board, error)
	ReplaceBoard(ctx context.Context, board domain.Board) (domain.Board, error)
}

// Cache wraps a Store with redis-backed caching for board reads. Writes go
// to the backing store first and evict the cached copy, so a failed write
// never leaves a stale board in the cache.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) FetchBoard(ctx context.Context) (domain.Board, error) {
	if board, ok := c.loadFromCache(ctx); ok {
		return board, nil
	}

	board, err := c.base.FetchBoard(ctx)
	if err != nil {
		return domain.Board{}, err
	}

	c.store(ctx, board)
	return board, nil
}

func (c *Cache) ReplaceBoard(ctx context.Context, board domain.Board) (domain.Board, error) {
	persisted, err := c.base.ReplaceBoard(ctx, board)
	if err != nil {
		return domain.Board{}, err
	}

	c.evict(ctx)
	return persisted, nil
}

func (c *Cache) loadFromCache(ctx context.Context) (domain.Board, bool) {
	if c.redis == nil {
		return domain.Board{}, false
	}
	data, err := c.redis.Get(ctx, boardCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, boardCacheKey).Err()
		}
		return domain.Board{}, false
	}
	var board domain.Board
	if err := json.Unmarshal(data, &board); err != nil {
		_ = c.redis.Del(ctx, boardCacheKey).Err()
		return domain.Board{}, false
	}
	return board, true
}

func (c *Cache) store(ctx context.Context, board domain.Board) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(board)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, boardCacheKey, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, boardCacheKey).Err()
}

const boardCacheKey = "board:" + DefaultBoardID
