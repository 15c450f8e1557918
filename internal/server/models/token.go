// Package models holds the domain types shared by the account store and
// the lifecycle service.
package models

import (
	"crypto/subtle"
	"time"
)

// PendingToken is an optional single-use secret with an expiry. The zero
// value means no token is pending; a token and its expiry are always set
// together. An expired token stays pending until it is replaced or consumed,
// and is rejected by Matches.
type PendingToken struct {
	value     string
	expiresAt time.Time
}

// NewPendingToken returns a pending token. An empty value yields the "none"
// token so the pair can never be half set.
func NewPendingToken(value string, expiresAt time.Time) PendingToken {
	if value == "" {
		return PendingToken{}
	}
	return PendingToken{value: value, expiresAt: expiresAt}
}

// NoToken is the explicit "nothing pending" value.
var NoToken = PendingToken{}

// Pending reports whether a token is outstanding (expired or not).
func (t PendingToken) Pending() bool { return t.value != "" }

// Value returns the token string, "" when none is pending.
func (t PendingToken) Value() string { return t.value }

// ExpiresAt returns the expiry, zero when none is pending.
func (t PendingToken) ExpiresAt() time.Time { return t.expiresAt }

// Expired reports whether a pending token is no longer valid at now.
// Validity requires the expiry to be strictly after now.
func (t PendingToken) Expired(now time.Time) bool {
	return t.Pending() && !t.expiresAt.After(now)
}

// Matches reports whether candidate equals the pending token and the token
// is still valid at now. The comparison is constant-time.
func (t PendingToken) Matches(candidate string, now time.Time) bool {
	if !t.Pending() || candidate == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(t.value), []byte(candidate)) != 1 {
		return false
	}
	return t.expiresAt.After(now)
}
