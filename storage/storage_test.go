package storage

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"kanban-api/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "pm.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func TestInitSeedsDefaultBoard(t *testing.T) {
	s := openTestStore(t)

	board, err := s.FetchBoard(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(board.Columns) != 5 {
		t.Fatalf("expected 5 columns, got %d", len(board.Columns))
	}
	if len(board.Cards) != 8 {
		t.Fatalf("expected 8 cards, got %d", len(board.Cards))
	}

	wantTitles := []string{"Backlog", "Discovery", "In Progress", "Review", "Done"}
	for i, col := range board.Columns {
		if col.Title != wantTitles[i] {
			t.Fatalf("column %d: got %q, want %q", i, col.Title, wantTitles[i])
		}
	}
	if !reflect.DeepEqual(board.Columns[0].CardIDs, []string{"card-1", "card-2"}) {
		t.Fatalf("backlog cards: %v", board.Columns[0].CardIDs)
	}
	if err := domain.Validate(board); err != nil {
		t.Fatalf("seed board invalid: %v", err)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// A second run against a seeded database must not duplicate anything.
	if err := s.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	board, err := s.FetchBoard(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(board.Columns) != 5 || len(board.Cards) != 8 {
		t.Fatalf("seed duplicated: %d columns, %d cards", len(board.Columns), len(board.Cards))
	}
}

func TestReplaceBoardRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	next := domain.Board{
		Columns: []domain.Column{
			{ID: "col-a", Title: "Alpha", CardIDs: []string{"card-x", "card-y"}},
			{ID: "col-b", Title: "Beta", CardIDs: []string{}},
		},
		Cards: map[string]domain.Card{
			"card-x": {ID: "card-x", Title: "X", Details: "first"},
			"card-y": {ID: "card-y", Title: "Y", Details: "second"},
		},
	}

	persisted, err := s.ReplaceBoard(ctx, next)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if !reflect.DeepEqual(persisted, next) {
		t.Fatalf("persisted board differs:\ngot:  %+v\nwant: %+v", persisted, next)
	}

	fetched, err := s.FetchBoard(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !reflect.DeepEqual(fetched, next) {
		t.Fatalf("fetched board differs:\ngot:  %+v\nwant: %+v", fetched, next)
	}
}

func TestReplaceBoardPreservesCreatedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var created, updated string
	row := s.db.QueryRowContext(ctx, "SELECT created_at, updated_at FROM cards WHERE id = ?", "card-1")
	if err := row.Scan(&created, &updated); err != nil {
		t.Fatalf("read timestamps: %v", err)
	}

	board, err := s.FetchBoard(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	card := board.Cards["card-1"]
	card.Title = "Renamed"
	board.Cards["card-1"] = card
	if _, err := s.ReplaceBoard(ctx, board); err != nil {
		t.Fatalf("replace: %v", err)
	}

	var created2, updated2 string
	row = s.db.QueryRowContext(ctx, "SELECT created_at, updated_at FROM cards WHERE id = ?", "card-1")
	if err := row.Scan(&created2, &updated2); err != nil {
		t.Fatalf("read timestamps: %v", err)
	}
	if created2 != created {
		t.Fatalf("created_at changed: %q -> %q", created, created2)
	}
	if updated2 == updated {
		t.Fatal("updated_at not bumped")
	}
}

func TestReplaceBoardRejectsUnmappedCard(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	before, err := s.FetchBoard(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	broken := domain.Board{
		Columns: []domain.Column{
			{ID: "col-a", Title: "Alpha", CardIDs: []string{"card-ghost"}},
		},
		Cards: map[string]domain.Card{},
	}
	if _, err := s.ReplaceBoard(ctx, broken); err == nil {
		t.Fatal("expected error for unmapped card reference")
	}

	// The failed transaction must roll back completely.
	after, err := s.FetchBoard(ctx)
	if err != nil {
		t.Fatalf("fetch after rollback: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatal("failed replace changed the stored board")
	}
}
