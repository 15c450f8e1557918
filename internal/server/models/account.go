package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a registered user record with credentials, profile and
// lifecycle status.
type Account struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Position     string
	PasswordHash string
	PasswordSalt string
	Status       Status

	// Verification is the pending email-verification token, if any.
	Verification PendingToken
	// PasswordReset is the pending password-reset token, if any.
	PasswordReset PendingToken

	CreatedAt time.Time
	// LastLoginAt is the zero time until the first successful login.
	LastLoginAt time.Time
}

// HasLoggedIn reports whether the account ever logged in.
func (a *Account) HasLoggedIn() bool {
	return !a.LastLoginAt.IsZero()
}

// TouchLogin advances LastLoginAt to at. Earlier instants are ignored so
// the value only moves forward.
func (a *Account) TouchLogin(at time.Time) {
	if at.After(a.LastLoginAt) {
		a.LastLoginAt = at
	}
}

// Clone returns a copy that shares no mutable state with a.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
