package sessions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == common.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", common.SessionCookieName)
	return nil
}

func TestCookieSession_EstablishPersistent(t *testing.T) {
	now := time.Now()
	m, _ := newTestManager(now)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/account/login", nil)

	s := NewCookieSession(m, rec, req, false)
	require.NoError(t, s.Establish(context.Background(), testClaims(uuid.New()), true, now.Add(15*24*time.Hour)))

	c := sessionCookie(t, rec)
	assert.True(t, c.HttpOnly)
	assert.Greater(t, c.MaxAge, 0)

	req2 := httptest.NewRequest(http.MethodGet, "/users", nil)
	req2.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	claims, err := m.FromRequest(req2)
	require.NoError(t, err)
	assert.Equal(t, "Ann", claims.Name)
}

func TestCookieSession_EstablishNonPersistent(t *testing.T) {
	now := time.Now()
	m, _ := newTestManager(now)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/account/login", nil)

	s := NewCookieSession(m, rec, req, false)
	require.NoError(t, s.Establish(context.Background(), testClaims(uuid.New()), false, now.Add(time.Hour)))

	c := sessionCookie(t, rec)
	assert.Zero(t, c.MaxAge)
	assert.True(t, c.Expires.IsZero())
}

func TestCookieSession_EndRevokes(t *testing.T) {
	now := time.Now()
	m, _ := newTestManager(now)
	tok, err := m.Issue(context.Background(), testClaims(uuid.New()), now.Add(time.Hour))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/account/logout", nil)
	req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: tok})
	rec := httptest.NewRecorder()

	require.NoError(t, NewCookieSession(m, rec, req, false).End(context.Background()))
	assert.Less(t, sessionCookie(t, rec).MaxAge, 0)

	_, err = m.Parse(context.Background(), tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestCookieSession_EndWithoutCookie(t *testing.T) {
	m, _ := newTestManager(time.Now())
	req := httptest.NewRequest(http.MethodPost, "/account/logout", nil)
	rec := httptest.NewRecorder()

	assert.NoError(t, NewCookieSession(m, rec, req, false).End(context.Background()))
}

func TestFromRequest_NoCookie(t *testing.T) {
	m, _ := newTestManager(time.Now())
	_, err := m.FromRequest(httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.ErrorIs(t, err, common.ErrNoSession)
}

func TestCookieSession_EndRevokesSessionIssuedInSameExchange(t *testing.T) {
	now := time.Now()
	m, _ := newTestManager(now)
	ctx := context.Background()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/account/login", nil)

	s := NewCookieSession(m, rec, req, false)
	require.NoError(t, s.Establish(ctx, testClaims(uuid.New()), false, now.Add(time.Hour)))
	issued := sessionCookie(t, rec)

	_, err := m.Parse(ctx, issued.Value)
	require.NoError(t, err)

	require.NoError(t, s.End(ctx))

	_, err = m.Parse(ctx, issued.Value)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestCookieSession_EndRevokesIssuedAndRequestSessions(t *testing.T) {
	now := time.Now()
	m, _ := newTestManager(now)
	ctx := context.Background()
	id := uuid.New()

	old, err := m.Issue(ctx, testClaims(id), now.Add(time.Hour))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/account/login", nil)
	req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: old})

	s := NewCookieSession(m, rec, req, false)
	require.NoError(t, s.Establish(ctx, testClaims(id), false, now.Add(time.Hour)))
	var fresh string
	for _, c := range rec.Result().Cookies() {
		if c.Name == common.SessionCookieName && c.Value != "" {
			fresh = c.Value
		}
	}
	require.NotEmpty(t, fresh)

	require.NoError(t, s.End(ctx))

	_, err = m.Parse(ctx, fresh)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	_, err = m.Parse(ctx, old)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}
