package secretservice

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no collection or item matches
	// a resolution, search, or delete request.
	ErrNotFound = errors.New("no matching entry found")

	// ErrPoisoned is returned when a prior operation panicked while
	// holding the connection lock. The store is in an unknown state
	// and must not be used further; this indicates a bug.
	ErrPoisoned = errors.New("secret service connection is poisoned")
)

// PlatformError indicates that the connection to the Secret Service,
// or a call against it, failed at a level the store cannot interpret.
type PlatformError struct{ Err error }

func (e *PlatformError) Error() string { return "platform failure: " + e.Err.Error() }

func (e *PlatformError) Unwrap() error { return e.Err }

// DecodeError indicates that the Secret Service returned data
// the store could not interpret.
type DecodeError struct{ Err error }

func (e *DecodeError) Error() string { return "decode error: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// NotSupportedError indicates an operation that the store
// structurally disallows.
type NotSupportedError struct{ Reason string }

func (e *NotSupportedError) Error() string { return "not supported by store: " + e.Reason }

// AmbiguousError is returned when a search intended to identify a
// single credential matched more than one item.
type AmbiguousError struct {
	// Refs are the items that matched the search, in search order.
	Refs []ItemRef
}

func (e *AmbiguousError) Error() string {
	refs := make([]string, len(e.Refs))
	for i, ref := range e.Refs {
		refs[i] = string(ref)
	}
	return fmt.Sprintf("matched %d items: %s", len(e.Refs), strings.Join(refs, ", "))
}

// platformFailure wraps err as a PlatformError.
// Not-found errors pass through unchanged.
func platformFailure(err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &PlatformError{Err: err}
}

// decodeError wraps err as a DecodeError.
// Not-found errors pass through unchanged.
func decodeError(err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &DecodeError{Err: err}
}
