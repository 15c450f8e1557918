package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyEmail_ConsumesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "a@x.com", "pw")
	token := f.sender.lastToken(t)

	require.True(t, f.svc.VerifyEmail(ctx, a.ID, token))
	got := f.reload(t, a.ID)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.False(t, got.Verification.Pending())

	assert.False(t, f.svc.VerifyEmail(ctx, a.ID, token), "second use must fail")
	assert.Equal(t, models.StatusActive, f.reload(t, a.ID).Status)
}

func TestVerifyEmail_Expired(t *testing.T) {
	f := newFixture(t)
	a := f.register(t, "a@x.com", "pw")

	f.clock.Advance(24 * time.Hour)
	assert.False(t, f.svc.VerifyEmail(context.Background(), a.ID, a.Verification.Value()),
		"expiry equal to now is already invalid")

	got := f.reload(t, a.ID)
	assert.Equal(t, models.StatusUnverified, got.Status)
	assert.True(t, got.Verification.Pending(), "expired token is kept, not cleared")
}

func TestVerifyEmail_JustBeforeExpiry(t *testing.T) {
	f := newFixture(t)
	a := f.register(t, "a@x.com", "pw")

	f.clock.Advance(24*time.Hour - time.Second)
	assert.True(t, f.svc.VerifyEmail(context.Background(), a.ID, a.Verification.Value()))
}

func TestVerifyEmail_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "a@x.com", "pw")

	assert.False(t, f.svc.VerifyEmail(ctx, a.ID, "deadbeef"))
	assert.False(t, f.svc.VerifyEmail(ctx, a.ID, ""))
	assert.False(t, f.svc.VerifyEmail(ctx, uuid.New(), a.Verification.Value()))
	assert.Equal(t, models.StatusUnverified, f.reload(t, a.ID).Status)
}

func TestVerifyEmail_BlockedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "a@x.com", "pw")
	require.True(t, f.svc.BlockAccounts(ctx, Select(a.ID)).Success)

	assert.False(t, f.svc.VerifyEmail(ctx, a.ID, a.Verification.Value()))
	assert.Equal(t, models.StatusBlocked, f.reload(t, a.ID).Status)
}

func TestVerifyEmail_StoreFailure(t *testing.T) {
	assert.False(t, newBrokenService(t).VerifyEmail(context.Background(), uuid.New(), "t"))
}

func TestPasswordReset_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.active(t, "a@x.com", "old-pw")
	oldSalt := a.PasswordSalt

	require.True(t, f.svc.RequestPasswordReset(ctx, "A@X.com"))
	token := f.sender.lastToken(t)

	pending := f.reload(t, a.ID).PasswordReset
	require.True(t, pending.Pending())
	assert.Equal(t, token, pending.Value())
	assert.Equal(t, f.clock.Now().Add(time.Hour), pending.ExpiresAt())

	res := f.svc.ValidateResetToken(ctx, a.ID, token)
	assert.True(t, res.Success, res.Message)
	assert.True(t, f.reload(t, a.ID).PasswordReset.Pending(), "validation does not consume")

	require.True(t, f.svc.ResetPassword(ctx, a.ID, token, "new-pw"))
	got := f.reload(t, a.ID)
	assert.False(t, got.PasswordReset.Pending())
	assert.NotEqual(t, oldSalt, got.PasswordSalt)
	assert.False(t, f.hasher.Verify("old-pw", got.PasswordHash))
	assert.True(t, f.hasher.Verify("new-pw", got.PasswordHash))
	assert.Contains(t, f.revoker.revoked, a.ID)

	assert.False(t, f.svc.ResetPassword(ctx, a.ID, token, "third-pw"), "token is single use")
	assert.True(t, f.hasher.Verify("new-pw", f.reload(t, a.ID).PasswordHash))

	assert.False(t, f.svc.LogInAccount(ctx, &fakeSession{}, LoginInput{Email: "a@x.com", Password: "old-pw"}).Success)
	assert.True(t, f.svc.LogInAccount(ctx, &fakeSession{}, LoginInput{Email: "a@x.com", Password: "new-pw"}).Success)
}

func TestRequestPasswordReset_OverwritesPreviousToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.active(t, "a@x.com", "pw")

	require.True(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))
	first := f.sender.lastToken(t)
	require.True(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))
	second := f.sender.lastToken(t)
	require.NotEqual(t, first, second)

	assert.False(t, f.svc.ValidateResetToken(ctx, a.ID, first).Success)
	assert.True(t, f.svc.ValidateResetToken(ctx, a.ID, second).Success)
}

func TestRequestPasswordReset_UnknownOrBlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.active(t, "a@x.com", "pw")
	require.True(t, f.svc.BlockAccounts(ctx, Select(a.ID)).Success)
	mails := f.sender.count()

	assert.False(t, f.svc.RequestPasswordReset(ctx, "nobody@x.com"))
	assert.False(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))
	assert.Equal(t, mails, f.sender.count())
	assert.False(t, f.reload(t, a.ID).PasswordReset.Pending())
}

func TestRequestPasswordReset_UnverifiedAllowed(t *testing.T) {
	f := newFixture(t)
	a := f.register(t, "a@x.com", "pw")

	assert.True(t, f.svc.RequestPasswordReset(context.Background(), "a@x.com"))
	assert.True(t, f.reload(t, a.ID).PasswordReset.Pending())
}

func TestRequestPasswordReset_MailFailureKeepsToken(t *testing.T) {
	f := newFixture(t)
	a := f.active(t, "a@x.com", "pw")
	f.sender.fail = true

	assert.True(t, f.svc.RequestPasswordReset(context.Background(), "a@x.com"))
	assert.True(t, f.reload(t, a.ID).PasswordReset.Pending())
}

func TestValidateResetToken_GenericFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.active(t, "a@x.com", "pw")
	require.True(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))
	token := f.sender.lastToken(t)

	wrong := f.svc.ValidateResetToken(ctx, a.ID, "0000")
	unknown := f.svc.ValidateResetToken(ctx, uuid.New(), token)

	f.clock.Advance(time.Hour)
	expired := f.svc.ValidateResetToken(ctx, a.ID, token)

	for _, res := range []Result{wrong, unknown, expired} {
		assert.False(t, res.Success)
		assert.ErrorIs(t, res.Err, common.ErrTokenInvalidOrExpired)
		assert.Equal(t, "token expired or invalid", res.Message)
	}
}

func TestResetPassword_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.active(t, "a@x.com", "pw")
	require.True(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))
	token := f.sender.lastToken(t)

	assert.False(t, f.svc.ResetPassword(ctx, a.ID, token, ""), "empty password")
	assert.False(t, f.svc.ResetPassword(ctx, a.ID, "0000", "new"), "wrong token")
	assert.False(t, f.svc.ResetPassword(ctx, uuid.New(), token, "new"), "unknown account")

	f.clock.Advance(2 * time.Hour)
	assert.False(t, f.svc.ResetPassword(ctx, a.ID, token, "new"), "expired")

	got := f.reload(t, a.ID)
	assert.True(t, f.hasher.Verify("pw", got.PasswordHash))
	assert.True(t, got.PasswordReset.Pending())
	assert.Empty(t, f.revoker.revoked)
}

func TestResetPassword_BlockedAfterRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.active(t, "a@x.com", "pw")
	require.True(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))
	token := f.sender.lastToken(t)
	require.True(t, f.svc.BlockAccounts(ctx, Select(a.ID)).Success)

	assert.False(t, f.svc.ValidateResetToken(ctx, a.ID, token).Success)
	assert.False(t, f.svc.ResetPassword(ctx, a.ID, token, "new"))
}

func TestValidateResetToken_StoreFailure(t *testing.T) {
	res := newBrokenService(t).ValidateResetToken(context.Background(), uuid.New(), "t")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, common.ErrDependencyFailure)
}

func TestCheckToken_Reasons(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	var rej *tokenRejection

	err := f.svc.checkToken(models.NoToken, "x")
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "no pending token", rej.reason)
	assert.ErrorIs(t, err, common.ErrTokenInvalidOrExpired)

	err = f.svc.checkToken(models.NewPendingToken("abc", now.Add(-time.Second)), "abc")
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "token expired", rej.reason)

	err = f.svc.checkToken(models.NewPendingToken("abc", now.Add(time.Hour)), "abd")
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "token mismatch", rej.reason)

	assert.NoError(t, f.svc.checkToken(models.NewPendingToken("abc", now.Add(time.Hour)), "abc"))
}
