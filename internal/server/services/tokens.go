package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/credentials"
	"github.com/dmitrijs2005/accountkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
	"github.com/google/uuid"
)

const msgTokenInvalid = "token expired or invalid"

// tokenRejection is the internal reason a presented token was refused.
// Callers only ever see ErrTokenInvalidOrExpired.
type tokenRejection struct {
	reason string
}

func (e *tokenRejection) Error() string { return e.reason }

func (e *tokenRejection) Unwrap() error { return common.ErrTokenInvalidOrExpired }

func reject(reason string) error {
	return &tokenRejection{reason: reason}
}

// checkToken explains why candidate does not redeem t at the current time,
// nil when it does.
func (s *AccountService) checkToken(t models.PendingToken, candidate string) error {
	now := s.now()
	switch {
	case !t.Pending():
		return reject("no pending token")
	case t.Matches(candidate, now):
		return nil
	case t.Expired(now):
		return reject("token expired")
	default:
		return reject("token mismatch")
	}
}

// logTokenOutcome records a refused or failed token operation.
func (s *AccountService) logTokenOutcome(ctx context.Context, kind string, id uuid.UUID, err error) {
	var rej *tokenRejection
	if errors.As(err, &rej) {
		s.log.Info(ctx, kind+" token rejected", "account_id", id, "reason", rej.reason)
		metrics.TokensTotal.WithLabelValues(kind, metrics.TokenRejected).Inc()
		return
	}
	s.log.Error(ctx, kind+" token operation failed", "account_id", id, "error", err)
}

// VerifyEmail redeems the verification token of an Unverified account,
// making it Active. Any failure leaves the account untouched.
func (s *AccountService) VerifyEmail(ctx context.Context, id uuid.UUID, token string) bool {
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo accounts.Repository) error {
		account, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return reject("account not found")
			}
			return err
		}
		if account.Status != models.StatusUnverified {
			return reject("account is " + account.Status.String())
		}
		if err := s.checkToken(account.Verification, token); err != nil {
			return err
		}

		account.Status = models.StatusActive
		account.Verification = models.NoToken
		return repo.Update(ctx, account)
	})
	if err != nil {
		s.logTokenOutcome(ctx, metrics.TokenVerification, id, err)
		return false
	}

	s.log.Info(ctx, "email verified", "account_id", id)
	metrics.TokensTotal.WithLabelValues(metrics.TokenVerification, metrics.TokenConsumed).Inc()
	return true
}

// RequestPasswordReset issues a reset token for the account with email and
// mails the reset link. Unknown and Blocked accounts get nothing.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) bool {
	token, err := common.MakeRandHexString(common.TokenBytes)
	if err != nil {
		s.log.Error(ctx, "token generation failed", "error", err)
		return false
	}

	var account *models.Account
	err = s.store.WithinTx(ctx, func(ctx context.Context, repo accounts.Repository) error {
		a, err := repo.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if a.Status == models.StatusBlocked {
			return common.ErrAccountBlocked
		}
		a.PasswordReset = models.NewPendingToken(token, s.now().Add(s.opts.ResetTTL))
		if err := repo.Update(ctx, a); err != nil {
			return err
		}
		account = a
		return nil
	})
	switch {
	case errors.Is(err, common.ErrorNotFound):
		s.log.Info(ctx, "password reset requested for unknown email")
		return false
	case errors.Is(err, common.ErrAccountBlocked):
		s.log.Info(ctx, "password reset refused, account blocked")
		return false
	case err != nil:
		s.log.Error(ctx, "password reset request failed", "error", err)
		return false
	}

	metrics.TokensTotal.WithLabelValues(metrics.TokenReset, metrics.TokenIssued).Inc()
	s.sendReset(ctx, account, token)
	return true
}

// ValidateResetToken reports whether token would currently redeem the
// account's password reset. It never mutates the account.
func (s *AccountService) ValidateResetToken(ctx context.Context, id uuid.UUID, token string) Result {
	account, err := s.store.Accounts().FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return s.dependencyFailure(ctx, nil, "reset token lookup failed", err)
		}
		err = reject("account not found")
	} else if account.Status == models.StatusBlocked {
		err = reject("account is blocked")
	} else {
		err = s.checkToken(account.PasswordReset, token)
	}

	if err != nil {
		s.logTokenOutcome(ctx, metrics.TokenReset, id, err)
		return failed(common.ErrTokenInvalidOrExpired, msgTokenInvalid)
	}
	return succeeded("token is valid")
}

// ResetPassword redeems the reset token: the password is re-hashed with a
// fresh salt and the token cleared in one update, then every session of
// the account is revoked.
func (s *AccountService) ResetPassword(ctx context.Context, id uuid.UUID, token, newPassword string) bool {
	if newPassword == "" {
		s.log.Info(ctx, "password reset rejected, empty password", "account_id", id)
		return false
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		s.log.Error(ctx, "salt generation failed", "error", err)
		return false
	}
	hash, err := s.hasher.Hash(newPassword, salt)
	if err != nil {
		s.log.Error(ctx, "password hashing failed", "error", err)
		return false
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repo accounts.Repository) error {
		account, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return reject("account not found")
			}
			return err
		}
		if account.Status == models.StatusBlocked {
			return reject("account is blocked")
		}
		if err := s.checkToken(account.PasswordReset, token); err != nil {
			return err
		}

		account.PasswordHash = hash
		account.PasswordSalt = credentials.EncodeSalt(salt)
		account.PasswordReset = models.NoToken
		return repo.Update(ctx, account)
	})
	if err != nil {
		s.logTokenOutcome(ctx, metrics.TokenReset, id, err)
		return false
	}

	metrics.TokensTotal.WithLabelValues(metrics.TokenReset, metrics.TokenConsumed).Inc()
	s.log.Info(ctx, "password reset", "account_id", id)
	s.revokeSessions(ctx, id)
	return true
}

func (s *AccountService) sendVerification(ctx context.Context, a *models.Account, token string) {
	msg, err := s.messages.Verification(a.Name, a.ID, token, s.opts.VerificationTTL.String())
	if err != nil {
		s.log.Error(ctx, "cannot render verification mail", "account_id", a.ID, "error", err)
		metrics.MailsTotal.WithLabelValues(metrics.MailVerification, metrics.MailFailed).Inc()
		return
	}
	s.send(ctx, metrics.MailVerification, a, msg.Subject, msg.Body)
}

func (s *AccountService) sendReset(ctx context.Context, a *models.Account, token string) {
	msg, err := s.messages.PasswordReset(a.Email, a.ID, token, s.opts.ResetTTL.String())
	if err != nil {
		s.log.Error(ctx, "cannot render reset mail", "account_id", a.ID, "error", err)
		metrics.MailsTotal.WithLabelValues(metrics.MailReset, metrics.MailFailed).Inc()
		return
	}
	s.send(ctx, metrics.MailReset, a, msg.Subject, msg.Body)
}

func (s *AccountService) send(ctx context.Context, kind string, a *models.Account, subject, body string) {
	if !s.sender.Send(ctx, a.Email, subject, body) {
		s.log.Warn(ctx, "mail not delivered", "kind", kind, "account_id", a.ID, "email", a.Email)
		metrics.MailsTotal.WithLabelValues(kind, metrics.MailFailed).Inc()
		return
	}
	metrics.MailsTotal.WithLabelValues(kind, metrics.MailSent).Inc()
}

func (s *AccountService) revokeSessions(ctx context.Context, ids ...uuid.UUID) {
	if s.opts.Revoker == nil {
		return
	}
	for _, id := range ids {
		if err := s.opts.Revoker.RevokeAccount(ctx, id); err != nil {
			s.log.Warn(ctx, "cannot revoke sessions", "account_id", id, "error", err)
		}
	}
}
