package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrInvariantViolation marks a programming error in credential bookkeeping
	// (duplicate credential id, tombstone for an unknown id). It is the only
	// failure the lifecycle manager reports as an error.
	ErrInvariantViolation = errors.New("credential invariant violation")

	ErrServiceRejected    = errors.New("verification service rejected request")
	ErrServiceUnreachable = errors.New("verification service unreachable")

	// ErrSyncFailed is returned when a user was saved but the downstream sync
	// request failed. The credential change itself has been persisted.
	ErrSyncFailed = errors.New("user sync failed")
)
