// Package storage persists the board in sqlite and optionally caches reads
// in redis. The board is always replaced whole: a single transaction deletes
// and reinserts every column and card so no reader observes a partial state.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"kanban-api/domain"
)

// DefaultBoardID is the single board this deployment serves.
const DefaultBoardID = "board-1"

const defaultBoardTitle = "My Board"

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Store persists the board in a sqlite database.
type Store struct {
	db      *sql.DB
	boardID string
}

// Open creates the database file (and its parent directory) if needed and
// returns a Store. Call Init before serving requests.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single pooled connection avoids lock
	// contention between concurrent replaces.
	db.SetMaxOpenConns(1)
	return &Store{db: db, boardID: DefaultBoardID}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS boards (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS columns (
  id TEXT PRIMARY KEY,
  board_id TEXT NOT NULL,
  title TEXT NOT NULL,
  position INTEGER NOT NULL,
  FOREIGN KEY (board_id) REFERENCES boards(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS cards (
  id TEXT PRIMARY KEY,
  board_id TEXT NOT NULL,
  column_id TEXT NOT NULL,
  title TEXT NOT NULL,
  details TEXT NOT NULL,
  position INTEGER NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  FOREIGN KEY (board_id) REFERENCES boards(id) ON DELETE CASCADE,
  FOREIGN KEY (column_id) REFERENCES columns(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_columns_board_position ON columns(board_id, position);
CREATE INDEX IF NOT EXISTS idx_cards_board_id ON cards(board_id);
CREATE INDEX IF NOT EXISTS idx_cards_column_position ON cards(column_id, position);
`

type seedCard struct {
	id       string
	columnID string
	title    string
	details  string
	position int
}

var seedColumns = []domain.Column{
	{ID: "col-backlog", Title: "Backlog"},
	{ID: "col-discovery", Title: "Discovery"},
	{ID: "col-progress", Title: "In Progress"},
	{ID: "col-review", Title: "Review"},
	{ID: "col-done", Title: "Done"},
}

var seedCards = []seedCard{
	{"card-1", "col-backlog", "Align roadmap themes", "Draft quarterly themes with impact statements and metrics.", 0},
	{"card-2", "col-backlog", "Gather customer signals", "Review support tags, sales notes, and churn feedback.", 1},
	{"card-3", "col-discovery", "Prototype analytics view", "Sketch initial dashboard layout and key drill-downs.", 0},
	{"card-4", "col-progress", "Refine status language", "Standardize column labels and tone across the board.", 0},
	{"card-5", "col-progress", "Design card layout", "Add hierarchy and spacing for scanning dense lists.", 1},
	{"card-6", "col-review", "QA micro-interactions", "Verify hover, focus, and loading states.", 0},
	{"card-7", "col-done", "Ship marketing page", "Final copy approved and asset pack delivered.", 0},
	{"card-8", "col-done", "Close onboarding sprint", "Document release notes and share internally.", 1},
}

// Init creates the schema and seeds the default board on first run. It is
// safe to call on every start.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM boards WHERE id = ?", s.boardID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := utcNow()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO boards (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)",
		s.boardID, defaultBoardTitle, now, now); err != nil {
		return err
	}
	for i, col := range seedColumns {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO columns (id, board_id, title, position) VALUES (?, ?, ?, ?)",
			col.ID, s.boardID, col.Title, i); err != nil {
			return err
		}
	}
	for _, card := range seedCards {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cards (id, board_id, column_id, title, details, position, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			card.id, s.boardID, card.columnID, card.title, card.details, card.position, now, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// FetchBoard reads the persisted board: columns in position order, each with
// its card ids in position order, plus the card mapping.
func (s *Store) FetchBoard(ctx context.Context) (domain.Board, error) {
	return fetchBoard(ctx, s.db, s.boardID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func fetchBoard(ctx context.Context, q querier, boardID string) (domain.Board, error) {
	board := domain.Board{Columns: []domain.Column{}, Cards: map[string]domain.Card{}}

	rows, err := q.QueryContext(ctx,
		"SELECT id, title FROM columns WHERE board_id = ? ORDER BY position", boardID)
	if err != nil {
		return domain.Board{}, err
	}
	defer rows.Close()
	colIndex := map[string]int{}
	for rows.Next() {
		var col domain.Column
		if err := rows.Scan(&col.ID, &col.Title); err != nil {
			return domain.Board{}, err
		}
		col.CardIDs = []string{}
		colIndex[col.ID] = len(board.Columns)
		board.Columns = append(board.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return domain.Board{}, err
	}

	cardRows, err := q.QueryContext(ctx,
		`SELECT id, column_id, title, details FROM cards
		 WHERE board_id = ? ORDER BY column_id, position`, boardID)
	if err != nil {
		return domain.Board{}, err
	}
	defer cardRows.Close()
	for cardRows.Next() {
		var card domain.Card
		var columnID string
		if err := cardRows.Scan(&card.ID, &columnID, &card.Title, &card.Details); err != nil {
			return domain.Board{}, err
		}
		board.Cards[card.ID] = card
		if idx, ok := colIndex[columnID]; ok {
			board.Columns[idx].CardIDs = append(board.Columns[idx].CardIDs, card.ID)
		}
	}
	if err := cardRows.Err(); err != nil {
		return domain.Board{}, err
	}

	return board, nil
}

// ReplaceBoard swaps the whole persisted board for the given one in a single
// transaction and returns the re-fetched persisted copy. Card creation
// timestamps survive the replacement.
func (s *Store) ReplaceBoard(ctx context.Context, board domain.Board) (domain.Board, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Board{}, err
	}
	defer func() { _ = tx.Rollback() }()

	createdAt := map[string]string{}
	rows, err := tx.QueryContext(ctx, "SELECT id, created_at FROM cards WHERE board_id = ?", s.boardID)
	if err != nil {
		return domain.Board{}, err
	}
	for rows.Next() {
		var id, created string
		if err := rows.Scan(&id, &created); err != nil {
			rows.Close()
			return domain.Board{}, err
		}
		createdAt[id] = created
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return domain.Board{}, err
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cards WHERE board_id = ?", s.boardID); err != nil {
		return domain.Board{}, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM columns WHERE board_id = ?", s.boardID); err != nil {
		return domain.Board{}, err
	}

	now := utcNow()
	for i, col := range board.Columns {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO columns (id, board_id, title, position) VALUES (?, ?, ?, ?)",
			col.ID, s.boardID, col.Title, i); err != nil {
			return domain.Board{}, err
		}
		for pos, cardID := range col.CardIDs {
			card, ok := board.Cards[cardID]
			if !ok {
				return domain.Board{}, fmt.Errorf("card %s referenced but not in mapping", cardID)
			}
			created := now
			if prev, ok := createdAt[cardID]; ok {
				created = prev
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO cards (id, board_id, column_id, title, details, position, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				card.ID, s.boardID, col.ID, card.Title, card.Details, pos, created, now); err != nil {
				return domain.Board{}, err
			}
		}
	}

	if _, err := tx.ExecContext(ctx, "UPDATE boards SET updated_at = ? WHERE id = ?", now, s.boardID); err != nil {
		return domain.Board{}, err
	}

	persisted, err := fetchBoard(ctx, tx, s.boardID)
	if err != nil {
		return domain.Board{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Board{}, err
	}
	return persisted, nil
}

func utcNow() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
