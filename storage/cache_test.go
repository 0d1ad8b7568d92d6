package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"kanban-api/domain"
)

type fakeBackend struct {
	board      domain.Board
	fetchCalls int
	replaceErr error
}

func (f *fakeBackend) FetchBoard(context.Context) (domain.Board, error) {
	f.fetchCalls++
	return f.board, nil
}

func (f *fakeBackend) ReplaceBoard(_ context.Context, board domain.Board) (domain.Board, error) {
	if f.replaceErr != nil {
		return domain.Board{}, f.replaceErr
	}
	f.board = board
	return board, nil
}

func cacheBoard() domain.Board {
	return domain.Board{
		Columns: []domain.Column{{ID: "col-1", Title: "Todo", CardIDs: []string{"card-1"}}},
		Cards:   map[string]domain.Card{"card-1": {ID: "card-1", Title: "First"}},
	}
}

func newTestCache(t *testing.T) (*Cache, *fakeBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	base := &fakeBackend{board: cacheBoard()}
	return NewCache(base, client, time.Minute), base, mr
}

func TestCacheFetchMissThenHit(t *testing.T) {
	cache, base, _ := newTestCache(t)
	ctx := context.Background()

	board, err := cache.FetchBoard(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if base.fetchCalls != 1 {
		t.Fatalf("expected one backend fetch, got %d", base.fetchCalls)
	}
	if !reflect.DeepEqual(board, cacheBoard()) {
		t.Fatalf("unexpected board: %+v", board)
	}

	// Second fetch is served from redis.
	board, err = cache.FetchBoard(ctx)
	if err != nil {
		t.Fatalf("cached fetch: %v", err)
	}
	if base.fetchCalls != 1 {
		t.Fatalf("cached fetch hit the backend: %d calls", base.fetchCalls)
	}
	if !reflect.DeepEqual(board, cacheBoard()) {
		t.Fatalf("unexpected cached board: %+v", board)
	}
}

func TestCacheReplaceEvicts(t *testing.T) {
	cache, base, mr := newTestCache(t)
	ctx := context.Background()

	if _, err := cache.FetchBoard(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !mr.Exists(boardCacheKey) {
		t.Fatal("board not cached after fetch")
	}

	next := cacheBoard()
	next.Columns[0].Title = "Renamed"
	if _, err := cache.ReplaceBoard(ctx, next); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if mr.Exists(boardCacheKey) {
		t.Fatal("cache entry not evicted after replace")
	}

	board, err := cache.FetchBoard(ctx)
	if err != nil {
		t.Fatalf("fetch after replace: %v", err)
	}
	if base.fetchCalls != 2 {
		t.Fatalf("expected backend refetch, got %d calls", base.fetchCalls)
	}
	if board.Columns[0].Title != "Renamed" {
		t.Fatalf("stale board served: %+v", board)
	}
}

func TestCacheFailedReplaceDoesNotEvict(t *testing.T) {
	cache, base, mr := newTestCache(t)
	ctx := context.Background()

	if _, err := cache.FetchBoard(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	base.replaceErr = errors.New("db down")
	if _, err := cache.ReplaceBoard(ctx, cacheBoard()); err == nil {
		t.Fatal("expected replace error")
	}
	if !mr.Exists(boardCacheKey) {
		t.Fatal("failed replace should leave the cached board in place")
	}
}

func TestCacheCorruptEntryFallsBack(t *testing.T) {
	cache, base, mr := newTestCache(t)
	ctx := context.Background()

	if err := mr.Set(boardCacheKey, "not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	board, err := cache.FetchBoard(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if base.fetchCalls != 1 {
		t.Fatalf("corrupt entry must fall through to the backend, got %d calls", base.fetchCalls)
	}
	if !reflect.DeepEqual(board, cacheBoard()) {
		t.Fatalf("unexpected board: %+v", board)
	}
}

func TestCacheEntryExpires(t *testing.T) {
	cache, base, mr := newTestCache(t)
	ctx := context.Background()

	if _, err := cache.FetchBoard(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := cache.FetchBoard(ctx); err != nil {
		t.Fatalf("fetch after expiry: %v", err)
	}
	if base.fetchCalls != 2 {
		t.Fatalf("expected backend refetch after ttl, got %d calls", base.fetchCalls)
	}
}

func TestCacheWithoutRedisPassesThrough(t *testing.T) {
	base := &fakeBackend{board: cacheBoard()}
	cache := NewCache(base, nil, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := cache.FetchBoard(ctx); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if base.fetchCalls != 2 {
		t.Fatalf("expected every fetch to hit the backend, got %d", base.fetchCalls)
	}
}
