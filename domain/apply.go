package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Apply replays operations onto a copy of board, strictly in order. Each
// operation's preconditions are checked against the state as mutated by the
// operations before it, so later operations see earlier effects. Application
// is all-or-nothing: on any failure the input board is untouched and no
// partial result is returned.
func Apply(board Board, ops []Operation) (Board, error) {
	next := board.Clone()
	if next.Cards == nil {
		next.Cards = make(map[string]Card)
	}
	for _, op := range ops {
		if err := applyOne(&next, op); err != nil {
			return Board{}, err
		}
	}
	if err := Validate(next); err != nil {
		return Board{}, InternalError{Cause: err}
	}
	return next, nil
}

func applyOne(b *Board, op Operation) error {
	switch op := op.(type) {
	case AddCard:
		col := findColumn(b, op.ColumnID)
		if col == nil {
			return UnknownColumnError{ID: op.ColumnID}
		}
		id := newCardID()
		b.Cards[id] = Card{ID: id, Title: op.Title, Details: op.Details}
		col.CardIDs = append(col.CardIDs, id)

	case UpdateCard:
		card, ok := b.Cards[op.CardID]
		if !ok {
			return UnknownCardError{ID: op.CardID}
		}
		if op.Title != nil {
			card.Title = *op.Title
		}
		if op.Details != nil {
			card.Details = *op.Details
		}
		b.Cards[op.CardID] = card

	case MoveCard:
		if _, ok := b.Cards[op.CardID]; !ok {
			return UnknownCardError{ID: op.CardID}
		}
		dest := findColumn(b, op.ColumnID)
		if dest == nil {
			return UnknownColumnError{ID: op.ColumnID}
		}
		// Remove first so a same-column move clamps against the shortened
		// sequence (a pure reorder).
		removeCardRef(b, op.CardID)
		pos := len(dest.CardIDs)
		if op.Position != nil {
			pos = clamp(*op.Position, 0, len(dest.CardIDs))
		}
		dest.CardIDs = insertAt(dest.CardIDs, pos, op.CardID)

	case DeleteCard:
		// Idempotent: deleting a card that is already gone is not an error.
		removeCardRef(b, op.CardID)
		delete(b.Cards, op.CardID)

	case AddColumn:
		b.Columns = append(b.Columns, Column{ID: newColumnID(), Title: op.Title, CardIDs: []string{}})

	case DeleteColumn:
		idx := columnIndex(b, op.ColumnID)
		if idx < 0 {
			return nil
		}
		for _, cardID := range b.Columns[idx].CardIDs {
			delete(b.Cards, cardID)
		}
		b.Columns = append(b.Columns[:idx], b.Columns[idx+1:]...)

	default:
		return InternalError{Cause: fmt.Errorf("unhandled operation %T", op)}
	}
	return nil
}

func newCardID() string   { return "card-" + uuid.NewString() }
func newColumnID() string { return "col-" + uuid.NewString() }

func findColumn(b *Board, id string) *Column {
	if idx := columnIndex(b, id); idx >= 0 {
		return &b.Columns[idx]
	}
	return nil
}

func columnIndex(b *Board, id string) int {
	for i := range b.Columns {
		if b.Columns[i].ID == id {
			return i
		}
	}
	return -1
}

func removeCardRef(b *Board, cardID string) {
	for i := range b.Columns {
		ids := b.Columns[i].CardIDs
		for j, id := range ids {
			if id == cardID {
				b.Columns[i].CardIDs = append(ids[:j], ids[j+1:]...)
				return
			}
		}
	}
}

func insertAt(ids []string, pos int, id string) []string {
	ids = append(ids, "")
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = id
	return ids
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
