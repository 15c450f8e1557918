package services

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
	"github.com/google/uuid"
)

const msgNothingSelected = "users are not selected"

// Selection is the target of a bulk action. The zero value (NoSelection)
// means the caller selected nothing at all, which is an error; Select()
// with no ids is an empty selection, which is a valid no-op.
type Selection struct {
	ids     []uuid.UUID
	present bool
}

// NoSelection is the missing selection.
var NoSelection = Selection{}

func Select(ids ...uuid.UUID) Selection {
	return Selection{ids: ids, present: true}
}

// Present reports whether a selection was made, possibly empty.
func (s Selection) Present() bool { return s.present }

func (s Selection) IDs() []uuid.UUID { return s.ids }

// BlockAccounts blocks every selected account that is not blocked yet and
// revokes their sessions.
func (s *AccountService) BlockAccounts(ctx context.Context, sel Selection) Result {
	if !sel.Present() {
		return failed(common.ErrNothingSelected, msgNothingSelected)
	}

	changed, err := s.setStatus(ctx, sel.IDs(), models.StatusIsNot(models.StatusBlocked), models.StatusBlocked)
	if err != nil {
		return s.dependencyFailure(ctx, nil, "block accounts failed", err)
	}

	metrics.ModeratedAccountsTotal.WithLabelValues(metrics.ActionBlock).Add(float64(len(changed)))
	s.log.Info(ctx, "accounts blocked", "count", len(changed))
	s.revokeSessions(ctx, changed...)
	return succeeded("users blocked successfully")
}

// UnblockAccounts makes every selected Blocked account Active.
func (s *AccountService) UnblockAccounts(ctx context.Context, sel Selection) Result {
	if !sel.Present() {
		return failed(common.ErrNothingSelected, msgNothingSelected)
	}

	changed, err := s.setStatus(ctx, sel.IDs(), models.StatusIs(models.StatusBlocked), models.StatusActive)
	if err != nil {
		return s.dependencyFailure(ctx, nil, "unblock accounts failed", err)
	}

	metrics.ModeratedAccountsTotal.WithLabelValues(metrics.ActionUnblock).Add(float64(len(changed)))
	s.log.Info(ctx, "accounts unblocked", "count", len(changed))
	return succeeded("users unblocked successfully")
}

// DeleteAccounts deletes every selected account regardless of status.
func (s *AccountService) DeleteAccounts(ctx context.Context, sel Selection) Result {
	if !sel.Present() {
		return failed(common.ErrNothingSelected, msgNothingSelected)
	}
	if len(sel.IDs()) == 0 {
		return succeeded("users deleted successfully")
	}

	n, err := s.store.Accounts().DeleteMany(ctx, sel.IDs())
	if err != nil {
		return s.dependencyFailure(ctx, nil, "delete accounts failed", err)
	}

	metrics.ModeratedAccountsTotal.WithLabelValues(metrics.ActionDelete).Add(float64(n))
	s.log.Info(ctx, "accounts deleted", "count", n)
	s.revokeSessions(ctx, sel.IDs()...)
	return succeeded("users deleted successfully")
}

// DeleteUnverifiedAccounts deletes the selected accounts that are still
// Unverified; other selected accounts are skipped silently.
func (s *AccountService) DeleteUnverifiedAccounts(ctx context.Context, sel Selection) Result {
	if !sel.Present() {
		return failed(common.ErrNothingSelected, msgNothingSelected)
	}
	if len(sel.IDs()) == 0 {
		return succeeded("unverified users deleted")
	}

	var n int64
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo accounts.Repository) error {
		found, err := repo.FindManyByIDsWithStatus(ctx, sel.IDs(), models.StatusIs(models.StatusUnverified))
		if err != nil {
			return err
		}
		n, err = repo.DeleteMany(ctx, idsOf(found))
		return err
	})
	if err != nil {
		return s.dependencyFailure(ctx, nil, "delete unverified accounts failed", err)
	}

	metrics.ModeratedAccountsTotal.WithLabelValues(metrics.ActionPurgeUnverified).Add(float64(n))
	s.log.Info(ctx, "unverified accounts deleted", "count", n)
	return succeeded("unverified users deleted")
}

// setStatus moves the listed accounts matching filter to status and returns
// the ids it changed.
func (s *AccountService) setStatus(ctx context.Context, ids []uuid.UUID, filter models.StatusFilter, status models.Status) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var changed []uuid.UUID
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo accounts.Repository) error {
		found, err := repo.FindManyByIDsWithStatus(ctx, ids, filter)
		if err != nil {
			return err
		}
		for _, a := range found {
			a.Status = status
			if err := repo.Update(ctx, a); err != nil {
				return err
			}
		}
		changed = idsOf(found)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

func idsOf(list []*models.Account) []uuid.UUID {
	ids := make([]uuid.UUID, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}
	return ids
}
