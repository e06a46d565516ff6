// Package errors provides the sentinel error taxonomy used across the
// service layer. Handlers at the HTTP boundary translate these into
// apierr.Error / status codes; everything below the boundary returns
// plain Go errors wrapping one of these sentinels via errors.Is/As.
package errors

import "errors"

var (
	// ErrInputInvalid marks a schema or range violation on request input.
	ErrInputInvalid = errors.New("input invalid")
	// ErrAuthMissing marks a request with no credential at all.
	ErrAuthMissing = errors.New("authentication required")
	// ErrAuthInvalid marks a malformed or expired credential.
	ErrAuthInvalid = errors.New("authentication invalid")
	// ErrForbidden marks insufficient role for the requested action.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound marks a missing resource, or one the viewer may not see.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a uniqueness violation or illegal state transition.
	ErrConflict = errors.New("conflict")
	// ErrPayloadTooLarge marks a request body over the configured limit.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrRateLimited marks a quota or rate-limit rejection.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransient marks a retryable dependency failure (vector index,
	// storage, task queue).
	ErrTransient = errors.New("transient dependency failure")
)
