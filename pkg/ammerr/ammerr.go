// Package ammerr provides the stable error classification shared across the
// pricing, market, wallet, agent, and simulator packages.
//
// The core never uses panics or exceptions for control flow: every failure
// is a structured value carrying one of a small, closed set of Kinds so
// callers can branch on failure class (reject a trade vs. abort a run)
// without parsing strings.
package ammerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into one of the categories the core promises
// to never add to or remove from without a breaking change.
type Kind string

const (
	// KindInputInvalid marks malformed input: non-positive amounts, unit
	// mismatches, unknown action types, or a close referencing a mint_time
	// that was never opened.
	KindInputInvalid Kind = "input_invalid"

	// KindPreconditionFailed marks a well-formed request that the current
	// state cannot satisfy: insufficient balance, a size beyond
	// max_long/max_short, a buffer breach, or a minimum-transaction-amount
	// violation.
	KindPreconditionFailed Kind = "precondition_failed"

	// KindMathError marks an arithmetic failure: overflow, division by
	// zero, a non-finite pow/ln, a negative fee, or a complex root.
	KindMathError Kind = "math_error"

	// KindStateCorrupt marks an invariant violated after a delta was
	// computed but before (or during) commit; the core refuses to apply
	// such a delta.
	KindStateCorrupt Kind = "state_corrupt"
)

// Error wraps a sentinel error with its stable Kind so that errors.Is
// against the sentinel and a switch over Kind both work.
type Error struct {
	Kind Kind
	err  error
}

// Wrap associates kind with err. If err is nil, Wrap returns nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, err: err}
}

// Wrapf wraps a formatted error under kind.
func Wrapf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, err: fmt.Errorf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.err)
}

// Unwrap exposes the underlying sentinel for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.err
}

// KindOf returns the Kind attached to err, if any, via errors.As.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err's Kind equals kind. Useful in tests and in
// Simulator's rejection-counting, where only the class matters.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
