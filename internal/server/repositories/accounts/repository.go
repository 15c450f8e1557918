// Package accounts declares the account store contract and its PostgreSQL
// and in-memory implementations.
package accounts

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/google/uuid"
)

// Repository is the durable account store consumed by the lifecycle
// service. Every call is atomic on its own; emails are normalised with
// NormalizeEmail on every write and lookup, and uniqueness is enforced on
// the normalised value.
type Repository interface {
	// FindByEmail returns common.ErrorNotFound when no account has email.
	FindByEmail(ctx context.Context, email string) (*models.Account, error)

	// FindByID returns common.ErrorNotFound when id is unknown.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)

	// Insert stores a new account; common.ErrDuplicateEmail if the email is taken.
	Insert(ctx context.Context, account *models.Account) error

	// Update overwrites every mutable column of the account with account.ID.
	// It returns common.ErrorNotFound for an unknown id and
	// common.ErrDuplicateEmail when the new email collides.
	Update(ctx context.Context, account *models.Account) error

	// DeleteMany removes the listed accounts and reports how many existed.
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error)

	// ListAll returns every account, most recent login first; accounts that
	// never logged in come last.
	ListAll(ctx context.Context) ([]*models.Account, error)

	// FindManyByIDsWithStatus returns the listed accounts whose status
	// matches filter. Unknown ids are skipped.
	FindManyByIDsWithStatus(ctx context.Context, ids []uuid.UUID, filter models.StatusFilter) ([]*models.Account, error)
}

// NormalizeEmail is the store's case policy: surrounding whitespace is
// dropped and the address is compared case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
