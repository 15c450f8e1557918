package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdmin struct {
	list       []*models.Account
	listErr    error
	registered []services.RegisterInput
	resetFor   []string
	resetOK    bool
	selections map[string]services.Selection
}

func newFakeAdmin() *fakeAdmin {
	return &fakeAdmin{resetOK: true, selections: map[string]services.Selection{}}
}

func (f *fakeAdmin) RegisterAccount(ctx context.Context, in services.RegisterInput) services.Result {
	f.registered = append(f.registered, in)
	return services.Result{Success: true, Message: "account created, check your email"}
}

func (f *fakeAdmin) RequestPasswordReset(ctx context.Context, email string) bool {
	f.resetFor = append(f.resetFor, email)
	return f.resetOK
}

func (f *fakeAdmin) bulk(name string, sel services.Selection) services.Result {
	f.selections[name] = sel
	if !sel.Present() {
		return services.Result{Message: "users are not selected", Err: common.ErrNothingSelected}
	}
	return services.Result{Success: true, Message: name + " done"}
}

func (f *fakeAdmin) BlockAccounts(ctx context.Context, sel services.Selection) services.Result {
	return f.bulk("block", sel)
}
func (f *fakeAdmin) UnblockAccounts(ctx context.Context, sel services.Selection) services.Result {
	return f.bulk("unblock", sel)
}
func (f *fakeAdmin) DeleteAccounts(ctx context.Context, sel services.Selection) services.Result {
	return f.bulk("delete", sel)
}
func (f *fakeAdmin) DeleteUnverifiedAccounts(ctx context.Context, sel services.Selection) services.Result {
	return f.bulk("purge", sel)
}
func (f *fakeAdmin) ListAllAccounts(ctx context.Context) ([]*models.Account, error) {
	return f.list, f.listErr
}

func TestApp_List(t *testing.T) {
	admin := newFakeAdmin()
	id := uuid.New()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	admin.list = []*models.Account{
		{ID: id, Name: "Ann", Email: "a@x.com", Position: "QA", Status: models.StatusActive, CreatedAt: at, LastLoginAt: at},
		{ID: uuid.New(), Name: "Bob", Email: "b@x.com", Status: models.StatusUnverified, CreatedAt: at},
	}

	var out bytes.Buffer
	app := NewApp(admin, strings.NewReader(""), &out)
	require.NoError(t, app.List(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "LAST LOGIN")
	assert.Contains(t, lines[1], id.String())
	assert.Contains(t, lines[1], "2024-05-01 10:00:00")
	assert.Contains(t, lines[1], "active")
	assert.Contains(t, lines[2], "never")
}

func TestApp_ListEmpty(t *testing.T) {
	var out bytes.Buffer
	app := NewApp(newFakeAdmin(), strings.NewReader(""), &out)
	require.NoError(t, app.List(context.Background()))
	assert.Equal(t, "No accounts.\n", out.String())
}

func TestApp_Moderation(t *testing.T) {
	admin := newFakeAdmin()
	var out bytes.Buffer
	app := NewApp(admin, strings.NewReader(""), &out)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, app.Block(ctx, []string{a.String(), b.String()}))
	assert.Equal(t, []uuid.UUID{a, b}, admin.selections["block"].IDs())

	require.NoError(t, app.Unblock(ctx, []string{a.String()}))
	require.NoError(t, app.Delete(ctx, []string{a.String()}))
	require.NoError(t, app.PurgeUnverified(ctx, []string{b.String()}))
	assert.Equal(t, []uuid.UUID{b}, admin.selections["purge"].IDs())
	assert.Contains(t, out.String(), "block done")

	err := app.Block(ctx, nil)
	require.ErrorIs(t, err, common.ErrNothingSelected)
	assert.False(t, admin.selections["block"].Present())
	assert.Contains(t, out.String(), "Usage: block <id...>")

	err = app.Delete(ctx, []string{"not-an-id"})
	assert.Error(t, err)
}

func TestApp_Register(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	passwords := []string{"pw", "pw"}
	readPassword = func(int) ([]byte, error) {
		p := passwords[0]
		passwords = passwords[1:]
		return []byte(p), nil
	}

	admin := newFakeAdmin()
	var out bytes.Buffer
	app := NewApp(admin, strings.NewReader("Ann\nann@x.com\nQA\n"), &out)

	require.NoError(t, app.Register(context.Background()))
	require.Len(t, admin.registered, 1)
	assert.Equal(t, services.RegisterInput{Name: "Ann", Email: "ann@x.com", Position: "QA", Password: "pw"}, admin.registered[0])
	assert.Contains(t, out.String(), "account created")
}

func TestApp_RegisterPasswordMismatch(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	passwords := []string{"pw", "other"}
	readPassword = func(int) ([]byte, error) {
		p := passwords[0]
		passwords = passwords[1:]
		return []byte(p), nil
	}

	admin := newFakeAdmin()
	app := NewApp(admin, strings.NewReader("Ann\nann@x.com\nQA\n"), &bytes.Buffer{})

	assert.Error(t, app.Register(context.Background()))
	assert.Empty(t, admin.registered)
}

func TestApp_ResetRequest(t *testing.T) {
	admin := newFakeAdmin()
	var out bytes.Buffer
	app := NewApp(admin, strings.NewReader(""), &out)
	ctx := context.Background()

	require.NoError(t, app.ResetRequest(ctx, []string{"a@x.com"}))
	assert.Equal(t, []string{"a@x.com"}, admin.resetFor)

	require.NoError(t, app.ResetRequest(ctx, nil))
	assert.Contains(t, out.String(), "Usage: reset-request <email>")

	admin.resetOK = false
	assert.Error(t, app.ResetRequest(ctx, []string{"ghost@x.com"}))
}

func TestApp_Run(t *testing.T) {
	admin := newFakeAdmin()
	var out bytes.Buffer
	app := NewApp(admin, strings.NewReader("list\nexit\n"), &out)
	app.Run(context.Background())

	assert.Contains(t, out.String(), "Account console")
	assert.Contains(t, out.String(), "No accounts.")
	assert.Contains(t, out.String(), "Bye!")
}
