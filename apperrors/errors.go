// Package apperrors defines the sentinel errors shared across services and
// controllers. Callers should use errors.Is to match these values.
package apperrors

import "errors"

var (
	// ErrInvalidInput covers malformed or self-referential arguments and
	// stale preconditions (e.g. an expired presence). Not retryable.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPermissionDenied means the caller is not a participant of the
	// offer or match they tried to act on.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound means a referenced offer, match or place does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyResolved means the offer already reached a terminal status
	// before the caller's transition could apply.
	ErrAlreadyResolved = errors.New("offer already resolved")

	// ErrAlreadyDecided means a single-assignment field on the match was
	// already set by the other participant.
	ErrAlreadyDecided = errors.New("already decided")

	// ErrTransactionAborted means the store gave up retrying a conflicting
	// transaction. The whole operation is safe to retry from the top.
	ErrTransactionAborted = errors.New("transaction aborted")
)
