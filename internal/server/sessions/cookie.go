package sessions

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
)

// CookieSession is the session handle of a single HTTP exchange. Establish
// issues a token and writes it as the account_session cookie; End revokes
// the session issued in this exchange and the one named by the request
// cookie, then clears the cookie.
type CookieSession struct {
	m      *Manager
	w      http.ResponseWriter
	r      *http.Request
	secure bool
	issued *Claims
}

func NewCookieSession(m *Manager, w http.ResponseWriter, r *http.Request, secure bool) *CookieSession {
	return &CookieSession{m: m, w: w, r: r, secure: secure}
}

func (s *CookieSession) Establish(ctx context.Context, claims Claims, persistent bool, expiresAt time.Time) error {
	token, issued, err := s.m.issue(ctx, claims, expiresAt)
	if err != nil {
		return err
	}
	s.issued = issued

	c := &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if persistent {
		c.Expires = expiresAt
		c.MaxAge = int(time.Until(expiresAt).Seconds())
	}
	http.SetCookie(s.w, c)
	return nil
}

func (s *CookieSession) End(ctx context.Context) error {
	defer http.SetCookie(s.w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		MaxAge:   -1,
	})

	var errs []error
	if s.issued != nil {
		if err := s.m.Revoke(ctx, s.issued); err != nil {
			errs = append(errs, err)
		} else {
			s.issued = nil
		}
	}

	c, err := s.r.Cookie(common.SessionCookieName)
	if err != nil {
		return errors.Join(errs...)
	}

	claims, err := s.m.Parse(ctx, c.Value)
	if err != nil {
		if !errors.Is(err, common.ErrInvalidToken) && !errors.Is(err, common.ErrTokenExpired) {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}
	if err := s.m.Revoke(ctx, claims); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// FromRequest returns the claims of the request's session cookie.
func (m *Manager) FromRequest(r *http.Request) (*Claims, error) {
	c, err := r.Cookie(common.SessionCookieName)
	if err != nil {
		return nil, common.ErrNoSession
	}
	return m.Parse(r.Context(), c.Value)
}
