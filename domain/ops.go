package domain

import (
	"fmt"

	"github.com/bytedance/sonic"
)

const (
	maxTitleLen   = 200
	maxDetailsLen = 10000
)

// Operation is one typed board mutation derived from an assistant reply. The
// set is closed: the applier switches exhaustively over the six concrete
// types below, so adding a kind is a compile-visible change.
type Operation interface {
	isOperation()
}

// AddCard appends a freshly minted card to the end of a column. The card id
// is assigned by the applier, never taken from the assistant.
type AddCard struct {
	ColumnID string
	Title    string
	Details  string
}

// UpdateCard overwrites only the supplied fields of an existing card.
type UpdateCard struct {
	CardID  string
	Title   *string
	Details *string
}

// MoveCard removes a card from its current column and inserts it into the
// destination at the clamped position. A nil position appends at the end.
type MoveCard struct {
	CardID   string
	ColumnID string
	Position *int
}

// DeleteCard removes a card everywhere. Missing cards are a no-op.
type DeleteCard struct {
	CardID string
}

// AddColumn appends an empty column with a freshly minted id.
type AddColumn struct {
	Title string
}

// DeleteColumn removes a column and cascades deletion of its cards. Missing
// columns are a no-op.
type DeleteColumn struct {
	ColumnID string
}

func (AddCard) isOperation()      {}
func (UpdateCard) isOperation()   {}
func (MoveCard) isOperation()     {}
func (DeleteCard) isOperation()   {}
func (AddColumn) isOperation()    {}
func (DeleteColumn) isOperation() {}

// rawOperation is the permissive wire shape a single operation is decoded
// into before dispatch. The alias fields cover the spellings the model falls
// back to for move_card; everything else is strict.
type rawOperation struct {
	Type     *string `json:"type"`
	ColumnID *string `json:"columnId"`
	CardID   *string `json:"cardId"`
	Title    *string `json:"title"`
	Details  *string `json:"details"`
	Position *int    `json:"position"`

	CardIDAlt      *string `json:"card_id"`
	ToColumnID     *string `json:"toColumnId"`
	TargetColumnID *string `json:"targetColumnId"`
	ColumnIDAlt    *string `json:"column_id"`
	ToColumnIDAlt  *string `json:"to_column_id"`
}

func decodeOperation(data []byte) (Operation, error) {
	var raw rawOperation
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, InvalidSchemaError{Reason: "malformed operation"}
	}
	if raw.Type == nil {
		return nil, InvalidSchemaError{Reason: "operation missing type"}
	}

	switch *raw.Type {
	case "add_card":
		if raw.ColumnID == nil || raw.Title == nil || raw.Details == nil {
			return nil, missingFields("add_card")
		}
		if err := checkTitle(*raw.Title); err != nil {
			return nil, err
		}
		if err := checkDetails(*raw.Details); err != nil {
			return nil, err
		}
		return AddCard{ColumnID: *raw.ColumnID, Title: *raw.Title, Details: *raw.Details}, nil

	case "update_card":
		if raw.CardID == nil {
			return nil, missingFields("update_card")
		}
		if raw.Title != nil {
			if err := checkTitle(*raw.Title); err != nil {
				return nil, err
			}
		}
		if raw.Details != nil {
			if err := checkDetails(*raw.Details); err != nil {
				return nil, err
			}
		}
		return UpdateCard{CardID: *raw.CardID, Title: raw.Title, Details: raw.Details}, nil

	case "move_card":
		cardID := firstSet(raw.CardID, raw.CardIDAlt)
		columnID := firstSet(raw.ColumnID, raw.ToColumnID, raw.TargetColumnID, raw.ColumnIDAlt, raw.ToColumnIDAlt)
		if cardID == nil || columnID == nil {
			return nil, missingFields("move_card")
		}
		return MoveCard{CardID: *cardID, ColumnID: *columnID, Position: raw.Position}, nil

	case "delete_card":
		if raw.CardID == nil {
			return nil, missingFields("delete_card")
		}
		return DeleteCard{CardID: *raw.CardID}, nil

	case "add_column":
		if raw.Title == nil {
			return nil, missingFields("add_column")
		}
		if err := checkTitle(*raw.Title); err != nil {
			return nil, err
		}
		return AddColumn{Title: *raw.Title}, nil

	case "delete_column":
		if raw.ColumnID == nil {
			return nil, missingFields("delete_column")
		}
		return DeleteColumn{ColumnID: *raw.ColumnID}, nil
	}

	return nil, InvalidSchemaError{Reason: fmt.Sprintf("unknown operation type %q", *raw.Type)}
}

func missingFields(opType string) error {
	return InvalidSchemaError{Reason: opType + " missing required fields"}
}

func checkTitle(title string) error {
	if len(title) > maxTitleLen {
		return InvalidSchemaError{Reason: "title too long"}
	}
	return nil
}

func checkDetails(details string) error {
	if len(details) > maxDetailsLen {
		return InvalidSchemaError{Reason: "details too long"}
	}
	return nil
}

func firstSet(candidates ...*string) *string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return c
		}
	}
	return nil
}
