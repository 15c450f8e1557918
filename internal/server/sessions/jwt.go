// Package sessions implements the login session capability: signed JWT
// session tokens, a revocation registry (Redis or in-process) and a cookie
// handle bound to one HTTP request.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/timex"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the identity carried by a session: the standard claims (the
// session id travels as jti) plus the account's public profile.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"aid"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Position  string `json:"pos,omitempty"`
}

// SessionID returns the jti of the session.
func (c *Claims) SessionID() string { return c.ID }

// Manager signs, parses and revokes session tokens.
type Manager struct {
	secret   []byte
	registry Registry
	now      timex.Clock
}

func NewManager(secret []byte, registry Registry, clock timex.Clock) *Manager {
	if clock == nil {
		clock = timex.UTCNow
	}
	return &Manager{secret: secret, registry: registry, now: clock}
}

// Issue registers a new session for claims and returns its signed token.
// The session expires at expiresAt.
func (m *Manager) Issue(ctx context.Context, claims Claims, expiresAt time.Time) (string, error) {
	token, _, err := m.issue(ctx, claims, expiresAt)
	return token, err
}

// issue is Issue that also returns the registered claims.
func (m *Manager) issue(ctx context.Context, claims Claims, expiresAt time.Time) (string, *Claims, error) {
	now := m.now()
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return "", nil, common.ErrTokenExpired
	}

	claims.ID = uuid.NewString()
	claims.Subject = claims.AccountID
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}

	if err := m.registry.Add(ctx, claims.AccountID, claims.ID, ttl); err != nil {
		return "", nil, err
	}
	return tokenString, &claims, nil
}

// Parse validates the token signature and expiry and checks that the
// session has not been revoked.
func (m *Manager) Parse(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid || claims.ID == "" {
		return nil, common.ErrInvalidToken
	}

	active, err := m.registry.Active(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// Revoke ends one session.
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	return m.registry.Remove(ctx, claims.AccountID, claims.ID)
}

// RevokeAccount ends every live session of the account.
func (m *Manager) RevokeAccount(ctx context.Context, accountID uuid.UUID) error {
	return m.registry.RemoveAll(ctx, accountID.String())
}
