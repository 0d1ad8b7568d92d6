package domain

import "errors"

var (
	// ErrMalformedJSON means the assistant reply was not a single valid JSON
	// document. Truncated or garbage-wrapped fragments are never salvaged.
	ErrMalformedJSON = errors.New("malformed json")

	// ErrSchemaVersion means the reply declared a schema version other than
	// the single supported one.
	ErrSchemaVersion = errors.New("unsupported schema version")
)

// InvalidSchemaError reports an envelope or operation that parsed as JSON but
// does not match the response contract.
type InvalidSchemaError struct {
	Reason string
}

func (e InvalidSchemaError) Error() string { return "invalid schema: " + e.Reason }

// UnknownColumnError is an application-time reference failure.
type UnknownColumnError struct {
	ID string
}

func (e UnknownColumnError) Error() string { return "unknown column: " + e.ID }

// UnknownCardError is an application-time reference failure.
type UnknownCardError struct {
	ID string
}

func (e UnknownCardError) Error() string { return "unknown card: " + e.ID }

// InternalError marks a post-application invariant violation: the batch
// passed every per-operation precondition yet produced an inconsistent
// board. It indicates a latent defect in those preconditions, not bad input.
type InternalError struct {
	Cause error
}

func (e InternalError) Error() string { return "applier internal error: " + e.Cause.Error() }

func (e InternalError) Unwrap() error { return e.Cause }
