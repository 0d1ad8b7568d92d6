package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Card is a single board item. Cards live in the board's card mapping keyed
// by id; the key and the card's own id must agree.
type Card struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Details string `json:"details"`
}

// Column owns an ordered sequence of card ids. Order is display order.
type Column struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	CardIDs []string `json:"cardIds"`
}

// Board is the full Kanban state: ordered columns plus the card mapping.
type Board struct {
	Columns []Column        `json:"columns"`
	Cards   map[string]Card `json:"cards"`
}

// InvalidBoardError reports a structural-integrity violation. The reason is a
// stable machine-readable string surfaced in API error details.
type InvalidBoardError struct {
	Reason string
}

func (e InvalidBoardError) Error() string { return e.Reason }

// Validate checks the board's structural invariants: every referenced card id
// resolves, every card is placed in exactly one column, and every card's
// mapping key matches its own id.
func Validate(b Board) error {
	seen := make(map[string]struct{}, len(b.Cards))
	for _, col := range b.Columns {
		for _, cardID := range col.CardIDs {
			if _, ok := b.Cards[cardID]; !ok {
				return InvalidBoardError{Reason: fmt.Sprintf("missing_card:%s", cardID)}
			}
			if _, dup := seen[cardID]; dup {
				return InvalidBoardError{Reason: fmt.Sprintf("duplicate_card:%s", cardID)}
			}
			seen[cardID] = struct{}{}
		}
	}

	for _, id := range sortedCardIDs(b) {
		if b.Cards[id].ID != id {
			return InvalidBoardError{Reason: fmt.Sprintf("id_mismatch:%s", id)}
		}
	}

	if len(seen) != len(b.Cards) {
		unused := make([]string, 0, len(b.Cards)-len(seen))
		for id := range b.Cards {
			if _, ok := seen[id]; !ok {
				unused = append(unused, id)
			}
		}
		sort.Strings(unused)
		return InvalidBoardError{Reason: "unused_cards:" + strings.Join(unused, ",")}
	}

	return nil
}

// Clone returns a deep copy. The applier mutates a clone so a failed batch
// leaves the input board untouched.
func (b Board) Clone() Board {
	cols := make([]Column, len(b.Columns))
	for i, col := range b.Columns {
		ids := make([]string, len(col.CardIDs))
		copy(ids, col.CardIDs)
		cols[i] = Column{ID: col.ID, Title: col.Title, CardIDs: ids}
	}
	cards := make(map[string]Card, len(b.Cards))
	for id, card := range b.Cards {
		cards[id] = card
	}
	return Board{Columns: cols, Cards: cards}
}

func sortedCardIDs(b Board) []string {
	ids := make([]string, 0, len(b.Cards))
	for id := range b.Cards {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
