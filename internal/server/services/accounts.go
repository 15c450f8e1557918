package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/credentials"
	"github.com/dmitrijs2005/accountkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/notify"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountkeeper/internal/server/sessions"
	"github.com/dmitrijs2005/accountkeeper/internal/timex"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const msgSomethingWentWrong = "something went wrong, please try again later"

// Result is the outcome of a lifecycle operation. Err carries the failure
// category (one of the common sentinels) and is nil on success; Message is
// safe to show to the caller.
type Result struct {
	Success bool
	Message string
	Err     error
}

func succeeded(msg string) Result {
	return Result{Success: true, Message: msg}
}

func failed(category error, msg string) Result {
	return Result{Message: msg, Err: category}
}

type RegisterInput struct {
	Name     string
	Email    string
	Position string
	Password string
}

type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
}

// Session is the authenticated-session capability of the caller, e.g. the
// cookie of one HTTP exchange.
type Session interface {
	Establish(ctx context.Context, claims sessions.Claims, persistent bool, expiresAt time.Time) error
	End(ctx context.Context) error
}

// SessionRevoker ends every live session of an account. Used after a
// password reset and when accounts are blocked or deleted.
type SessionRevoker interface {
	RevokeAccount(ctx context.Context, accountID uuid.UUID) error
}

// PasswordHasher is implemented by *credentials.Hasher.
type PasswordHasher interface {
	GenerateSalt() ([]byte, error)
	Hash(password string, salt []byte) (string, error)
	Verify(password, encoded string) bool
	VerifyDecoy(password string) bool
}

// Options tunes token and session lifetimes. Zero durations fall back to
// the defaults (24h, 1h, 1h, 15 days).
type Options struct {
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	SessionTTL      time.Duration
	RememberMeTTL   time.Duration
	Clock           timex.Clock
	Revoker         SessionRevoker
}

// OptionsFromConfig copies the lifetimes from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		VerificationTTL: cfg.VerificationTokenTTL,
		ResetTTL:        cfg.ResetTokenTTL,
		SessionTTL:      cfg.SessionTTL,
		RememberMeTTL:   cfg.RememberMeTTL,
	}
}

func (o *Options) setDefaults() {
	if o.VerificationTTL <= 0 {
		o.VerificationTTL = 24 * time.Hour
	}
	if o.ResetTTL <= 0 {
		o.ResetTTL = time.Hour
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = time.Hour
	}
	if o.RememberMeTTL <= 0 {
		o.RememberMeTTL = 15 * 24 * time.Hour
	}
	if o.Clock == nil {
		o.Clock = timex.UTCNow
	}
}

// AccountService implements the account lifecycle: registration, login,
// the verification/reset token protocol and bulk moderation.
type AccountService struct {
	store    repomanager.Store
	hasher   PasswordHasher
	sender   notify.Sender
	messages *notify.Messages
	log      logging.Logger
	opts     Options
}

func NewAccountService(store repomanager.Store, hasher PasswordHasher, sender notify.Sender,
	messages *notify.Messages, log logging.Logger, opts Options) *AccountService {
	opts.setDefaults()
	return &AccountService{
		store:    store,
		hasher:   hasher,
		sender:   sender,
		messages: messages,
		log:      log.With("component", "accounts"),
		opts:     opts,
	}
}

func (s *AccountService) now() time.Time {
	return s.opts.Clock()
}

// validateRegistration returns a caller-facing reason, "" when in is valid.
func validateRegistration(in RegisterInput) string {
	if strings.TrimSpace(in.Name) == "" {
		return "name is required"
	}
	if reason := validateEmail(in.Email); reason != "" {
		return reason
	}
	if in.Password == "" {
		return "password is required"
	}
	return ""
}

func validateEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return "email is required"
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "email is malformed"
	}
	return ""
}

// RegisterAccount creates an Unverified account and mails its verification
// link. A mail failure is logged and does not undo the registration.
func (s *AccountService) RegisterAccount(ctx context.Context, in RegisterInput) Result {
	if reason := validateRegistration(in); reason != "" {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return failed(common.ErrValidation, reason)
	}

	email := accounts.NormalizeEmail(in.Email)
	repo := s.store.Accounts()

	_, err := repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		s.log.Warn(ctx, "registration rejected, email exists", "email", email)
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return failed(common.ErrEmailAlreadyExists, fmt.Sprintf("email %s already exists", email))
	case !errors.Is(err, common.ErrorNotFound):
		return s.dependencyFailure(ctx, metrics.RegistrationsTotal, "registration lookup failed", err)
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return s.dependencyFailure(ctx, metrics.RegistrationsTotal, "salt generation failed", err)
	}
	hash, err := s.hasher.Hash(in.Password, salt)
	if err != nil {
		return s.dependencyFailure(ctx, metrics.RegistrationsTotal, "password hashing failed", err)
	}
	token, err := common.MakeRandHexString(common.TokenBytes)
	if err != nil {
		return s.dependencyFailure(ctx, metrics.RegistrationsTotal, "token generation failed", err)
	}

	now := s.now()
	account := &models.Account{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Position:     strings.TrimSpace(in.Position),
		PasswordHash: hash,
		PasswordSalt: credentials.EncodeSalt(salt),
		Status:       models.StatusUnverified,
		Verification: models.NewPendingToken(token, now.Add(s.opts.VerificationTTL)),
		CreatedAt:    now,
	}

	if err := repo.Insert(ctx, account); err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			metrics.RegistrationsTotal.WithLabelValues(metrics.ResultFailure).Inc()
			return failed(common.ErrEmailAlreadyExists, fmt.Sprintf("email %s already exists", email))
		}
		return s.dependencyFailure(ctx, metrics.RegistrationsTotal, "account insert failed", err)
	}
	metrics.TokensTotal.WithLabelValues(metrics.TokenVerification, metrics.TokenIssued).Inc()

	s.sendVerification(ctx, account, token)

	s.log.Info(ctx, "account registered", "account_id", account.ID, "email", email)
	metrics.RegistrationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return succeeded(fmt.Sprintf("account %s registered, check your inbox to verify the email", email))
}

// LogInAccount checks the credentials and establishes a session lasting
// RememberMeTTL when in.RememberMe is set, SessionTTL otherwise.
func (s *AccountService) LogInAccount(ctx context.Context, session Session, in LoginInput) Result {
	repo := s.store.Accounts()

	account, err := repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.VerifyDecoy(in.Password)
			s.log.Info(ctx, "login rejected, email not found")
			metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
			return failed(common.ErrInvalidCredentials, "email not found")
		}
		return s.dependencyFailure(ctx, metrics.LoginsTotal, "login lookup failed", err)
	}

	if !s.hasher.Verify(in.Password, account.PasswordHash) {
		s.log.Info(ctx, "login rejected, wrong password", "account_id", account.ID)
		metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return failed(common.ErrInvalidCredentials, "password is incorrect")
	}

	switch account.Status {
	case models.StatusBlocked:
		s.log.Info(ctx, "login rejected, account blocked", "account_id", account.ID)
		metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return failed(common.ErrAccountBlocked, "account is blocked")
	case models.StatusUnverified:
		s.log.Info(ctx, "login rejected, email not verified", "account_id", account.ID)
		metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return failed(common.ErrEmailNotVerified, "email is not verified, follow the link we sent you")
	}

	if session == nil {
		s.log.Warn(ctx, "login without session context", "account_id", account.ID)
		metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return failed(common.ErrNoSession, msgSomethingWentWrong)
	}

	now := s.now()
	ttl := s.opts.SessionTTL
	if in.RememberMe {
		ttl = s.opts.RememberMeTTL
	}

	claims := sessions.Claims{
		AccountID: account.ID.String(),
		Name:      account.Name,
		Email:     account.Email,
		Position:  account.Position,
	}
	if err := session.Establish(ctx, claims, in.RememberMe, now.Add(ttl)); err != nil {
		return s.dependencyFailure(ctx, metrics.LoginsTotal, "session establish failed", err)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repo accounts.Repository) error {
		current, err := repo.FindByID(ctx, account.ID)
		if err != nil {
			return err
		}
		current.TouchLogin(now)
		return repo.Update(ctx, current)
	})
	if err != nil {
		if endErr := session.End(ctx); endErr != nil {
			s.log.Warn(ctx, "cannot end session after failed login", "account_id", account.ID, "error", endErr)
		}
		return s.dependencyFailure(ctx, metrics.LoginsTotal, "last login update failed", err)
	}

	s.log.Info(ctx, "account logged in", "account_id", account.ID, "remember_me", in.RememberMe)
	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return succeeded("logged in successfully")
}

// LogOutAccount ends the caller's session.
func (s *AccountService) LogOutAccount(ctx context.Context, session Session) Result {
	if session == nil {
		s.log.Warn(ctx, "logout without session context")
		return failed(common.ErrNoSession, msgSomethingWentWrong)
	}
	if err := session.End(ctx); err != nil {
		s.log.Error(ctx, "error ending session", "error", err)
		return failed(common.ErrDependencyFailure, "error signing out")
	}
	return succeeded("logged out successfully")
}

// Account returns the account with id, common.ErrorNotFound when it does
// not exist and common.ErrDependencyFailure when the store fails.
func (s *AccountService) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a, err := s.store.Accounts().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.log.Error(ctx, "account lookup failed", "account_id", id, "error", err)
		return nil, common.ErrDependencyFailure
	}
	return a, nil
}

// ListAllAccounts returns every account, most recent login first.
func (s *AccountService) ListAllAccounts(ctx context.Context) ([]*models.Account, error) {
	list, err := s.store.Accounts().ListAll(ctx)
	if err != nil {
		s.log.Error(ctx, "list accounts failed", "error", err)
		return nil, common.ErrDependencyFailure
	}
	return list, nil
}

// dependencyFailure logs err and returns the generic failure. counter, when
// set, gets a "failure" increment.
func (s *AccountService) dependencyFailure(ctx context.Context, counter *prometheus.CounterVec, msg string, err error) Result {
	s.log.Error(ctx, msg, "error", err)
	if counter != nil {
		counter.WithLabelValues(metrics.ResultFailure).Inc()
	}
	return failed(common.ErrDependencyFailure, msgSomethingWentWrong)
}
