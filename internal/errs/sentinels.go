// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/store layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnauthenticated indicates a cloud operation was attempted without a session.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates rejected input.
	ErrValidation = errors.New("validation failed")

	// ErrLocalRecord indicates a cloud operation addressed a local-only (local-/demo-) record.
	ErrLocalRecord = errors.New("record is local-only")

	// ErrMigrationIncomplete indicates some local records were dropped during migration.
	ErrMigrationIncomplete = errors.New("migration incomplete")
)
