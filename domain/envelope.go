package domain

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// SchemaVersion is the single envelope version this server understands.
const SchemaVersion = 1

// Envelope is a validated assistant reply. Board is the model's echo of the
// state it believes it produced; it is diagnostic-only and must never be
// persisted. Operations are authoritative and are replayed by Apply onto the
// last persisted board.
type Envelope struct {
	SchemaVersion    int
	Board            Board
	Operations       []Operation
	AssistantMessage string

	// OperationsJSON is the raw operations array as received, echoed back to
	// the client unchanged.
	OperationsJSON sonic.NoCopyRawMessage

	// EchoInvalid is set when the echoed board fails structural validation.
	// The request still proceeds on the operations list; callers should log
	// the mismatch.
	EchoInvalid error
}

type rawEnvelope struct {
	SchemaVersion    *int                    `json:"schemaVersion"`
	Board            *rawBoard               `json:"board"`
	Operations       *sonic.NoCopyRawMessage `json:"operations"`
	AssistantMessage string                  `json:"assistantMessage"`
}

type rawBoard struct {
	Columns *[]Column        `json:"columns"`
	Cards   *map[string]Card `json:"cards"`
}

// ParseResponse validates a raw completion into an Envelope. Checks run
// strictly in order and any failure short-circuits: strict JSON parse,
// schema version, envelope and operation shape, card key/id agreement, and
// finally an advisory validation of the echoed board.
func ParseResponse(raw string) (*Envelope, error) {
	data := []byte(raw)

	// The reply must be exactly one JSON document. A parse failure is
	// terminal: extracting a balanced-looking substring can yield a valid
	// parse of a corrupted board, so there is no salvage path.
	var probe any
	dec := sonic.ConfigStd.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&probe); err != nil {
		return nil, ErrMalformedJSON
	}
	if dec.More() {
		return nil, ErrMalformedJSON
	}

	var version struct {
		SchemaVersion *int `json:"schemaVersion"`
	}
	if err := sonic.Unmarshal(data, &version); err != nil || version.SchemaVersion == nil {
		return nil, InvalidSchemaError{Reason: "missing schemaVersion"}
	}
	if *version.SchemaVersion != SchemaVersion {
		return nil, ErrSchemaVersion
	}

	var env rawEnvelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return nil, InvalidSchemaError{Reason: "malformed envelope"}
	}
	if env.Board == nil || env.Board.Columns == nil || env.Board.Cards == nil {
		return nil, InvalidSchemaError{Reason: "missing board"}
	}
	if env.Operations == nil {
		return nil, InvalidSchemaError{Reason: "missing operations"}
	}

	board := Board{Columns: *env.Board.Columns, Cards: *env.Board.Cards}
	if err := checkBoardShape(board); err != nil {
		return nil, err
	}

	var rawOps []sonic.NoCopyRawMessage
	if err := sonic.Unmarshal(*env.Operations, &rawOps); err != nil {
		return nil, InvalidSchemaError{Reason: "operations is not an array"}
	}
	ops := make([]Operation, 0, len(rawOps))
	for _, rawOp := range rawOps {
		op, err := decodeOperation(rawOp)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	// A card stored under one key but declaring another id would silently
	// corrupt the mapping if it ever reached persistence.
	for _, key := range sortedCardIDs(board) {
		if board.Cards[key].ID != key {
			return nil, InvalidSchemaError{Reason: fmt.Sprintf("id_mismatch:%s", key)}
		}
	}

	return &Envelope{
		SchemaVersion:    *env.SchemaVersion,
		Board:            board,
		Operations:       ops,
		AssistantMessage: env.AssistantMessage,
		OperationsJSON:   *env.Operations,
		EchoInvalid:      Validate(board),
	}, nil
}

func checkBoardShape(b Board) error {
	for _, col := range b.Columns {
		if col.ID == "" {
			return InvalidSchemaError{Reason: "column missing id"}
		}
		if err := checkTitle(col.Title); err != nil {
			return err
		}
	}
	for _, card := range b.Cards {
		if card.ID == "" {
			return InvalidSchemaError{Reason: "card missing id"}
		}
		if err := checkTitle(card.Title); err != nil {
			return err
		}
		if err := checkDetails(card.Details); err != nil {
			return err
		}
	}
	return nil
}
