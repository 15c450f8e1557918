package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/credentials"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/notify"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountkeeper/internal/server/sessions"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var cheapParams = credentials.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMail struct {
	to, subject, body string
}

type fakeSender struct {
	mu   sync.Mutex
	fail bool
	sent []sentMail
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to, subject, body})
	return !f.fail
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

var tokenInLink = regexp.MustCompile(`token=([0-9a-f]+)`)

// lastToken extracts the token from the most recent mail's link.
func (f *fakeSender) lastToken(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no mail sent")
	m := tokenInLink.FindStringSubmatch(f.sent[len(f.sent)-1].body)
	require.Len(t, m, 2, "no token in mail body")
	return m[1]
}

type fakeSession struct {
	establishErr error
	endErr       error

	established bool
	ended       bool
	claims      sessions.Claims
	persistent  bool
	expiresAt   time.Time
}

func (f *fakeSession) Establish(ctx context.Context, claims sessions.Claims, persistent bool, expiresAt time.Time) error {
	if f.establishErr != nil {
		return f.establishErr
	}
	f.established = true
	f.claims = claims
	f.persistent = persistent
	f.expiresAt = expiresAt
	return nil
}

func (f *fakeSession) End(ctx context.Context) error {
	f.ended = true
	return f.endErr
}

type fakeRevoker struct {
	mu      sync.Mutex
	revoked []uuid.UUID
}

func (f *fakeRevoker) RevokeAccount(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, id)
	return nil
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// brokenRepo fails every call with errBoom.
type brokenRepo struct{}

func (brokenRepo) FindByEmail(context.Context, string) (*models.Account, error) {
	return nil, errBoom{}
}
func (brokenRepo) FindByID(context.Context, uuid.UUID) (*models.Account, error) {
	return nil, errBoom{}
}
func (brokenRepo) Insert(context.Context, *models.Account) error { return errBoom{} }
func (brokenRepo) Update(context.Context, *models.Account) error { return errBoom{} }
func (brokenRepo) DeleteMany(context.Context, []uuid.UUID) (int64, error) {
	return 0, errBoom{}
}
func (brokenRepo) ListAll(context.Context) ([]*models.Account, error) { return nil, errBoom{} }
func (brokenRepo) FindManyByIDsWithStatus(context.Context, []uuid.UUID, models.StatusFilter) ([]*models.Account, error) {
	return nil, errBoom{}
}

type brokenStore struct{}

func (brokenStore) Accounts() accounts.Repository { return brokenRepo{} }
func (brokenStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo accounts.Repository) error) error {
	return fn(ctx, brokenRepo{})
}

type fixture struct {
	svc     *AccountService
	store   *repomanager.MemoryStore
	sender  *fakeSender
	revoker *fakeRevoker
	clock   *clock
	hasher  *credentials.Hasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   repomanager.NewMemoryStore(),
		sender:  &fakeSender{},
		revoker: &fakeRevoker{},
		clock:   &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		hasher:  credentials.NewHasher(cheapParams),
	}
	f.svc = NewAccountService(f.store, f.hasher, f.sender,
		notify.NewMessages("http://localhost:8080", "Accounts"), logging.Nop(),
		Options{Clock: f.clock.Now, Revoker: f.revoker})
	return f
}

func newBrokenService(t *testing.T) *AccountService {
	t.Helper()
	return NewAccountService(brokenStore{}, credentials.NewHasher(cheapParams), &fakeSender{},
		notify.NewMessages("http://localhost:8080", "Accounts"), logging.Nop(), Options{})
}

// register creates an account through the service and returns it.
func (f *fixture) register(t *testing.T, email, password string) *models.Account {
	t.Helper()
	res := f.svc.RegisterAccount(context.Background(), RegisterInput{
		Name: "Ann", Email: email, Position: "QA", Password: password,
	})
	require.True(t, res.Success, res.Message)
	a, err := f.store.Accounts().FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return a
}

// active registers and verifies an account.
func (f *fixture) active(t *testing.T, email, password string) *models.Account {
	t.Helper()
	a := f.register(t, email, password)
	require.True(t, f.svc.VerifyEmail(context.Background(), a.ID, a.Verification.Value()))
	return f.reload(t, a.ID)
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.Account {
	t.Helper()
	a, err := f.store.Accounts().FindByID(context.Background(), id)
	require.NoError(t, err)
	return a
}

func (f *fixture) exists(id uuid.UUID) bool {
	_, err := f.store.Accounts().FindByID(context.Background(), id)
	return !errors.Is(err, common.ErrorNotFound)
}
