// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates missing or invalid user input.
	ErrValidation = errors.New("validation")

	// ErrUnauthorized indicates a missing, invalid or expired session, or a wrong master password.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., master password already set).
	ErrAlreadyExists = errors.New("already exists")

	// ErrDecryption indicates a credential envelope that cannot be opened with the supplied password.
	ErrDecryption = errors.New("decryption failed")

	// ErrExternalService indicates a failure reported by the scraper or messaging collaborator.
	ErrExternalService = errors.New("external service")

	// ErrUnsupportedInstitution indicates an institution identifier outside the fixed set.
	ErrUnsupportedInstitution = errors.New("unsupported institution")
)
