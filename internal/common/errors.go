// Package common defines shared constants and sentinel errors used across
// the account service layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound     = errors.New("not found")
	ErrDuplicateEmail = errors.New("duplicate email")

	// Service-level errors (generic/internal flow control).
	ErrorInternal        = errors.New("internal error")
	ErrDependencyFailure = errors.New("dependency failure")
	ErrValidation        = errors.New("validation error")

	// Account lifecycle errors.
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountBlocked        = errors.New("account blocked")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrTokenInvalidOrExpired = errors.New("token invalid or expired")
	ErrNothingSelected       = errors.New("nothing selected")

	// Session errors.
	ErrNoSession    = errors.New("no session")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
