// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates optimistic concurrency failure (account version mismatch).
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates a failed authentication attempt. It covers both
	// "no such account" and "wrong PIN" so callers cannot tell them apart.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAccountLocked indicates the account is under temporary lockout.
	ErrAccountLocked = errors.New("account locked")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., device key taken).
	ErrAlreadyExists = errors.New("already exists")
)
