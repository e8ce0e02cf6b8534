// Package common defines shared constants and sentinel errors used across
// the server layers of inkstudio. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors (bad input, unsupported file type, oversized upload).
	ErrorValidation = errors.New("validation error")

	// Auth errors (invalid, malformed or unknown token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")

	// ErrorIdentityUnavailable reports that the identity provider could not
	// be reached or answered with something unreadable.
	ErrorIdentityUnavailable = errors.New("identity provider unavailable")
)
