package accounts

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository is a process-local Repository used by tests and by the
// "memory://" database DSN. Accounts are cloned on the way in and out so
// callers never share state with the store.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*models.Account
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[uuid.UUID]*models.Account)}
}

// Snapshot returns a deep copy of the current contents.
func (r *MemoryRepository) Snapshot() map[uuid.UUID]*models.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[uuid.UUID]*models.Account, len(r.accounts))
	for id, a := range r.accounts {
		out[id] = a.Clone()
	}
	return out
}

// Restore replaces the contents with a snapshot taken earlier.
func (r *MemoryRepository) Restore(snap map[uuid.UUID]*models.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = snap
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a := r.byEmail(NormalizeEmail(email))
	if a == nil {
		return nil, common.ErrorNotFound
	}
	return a.Clone(), nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a.Clone(), nil
}

func (r *MemoryRepository) Insert(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := NormalizeEmail(account.Email)
	if r.byEmail(email) != nil {
		return common.ErrDuplicateEmail
	}
	if _, ok := r.accounts[account.ID]; ok {
		return common.ErrDuplicateEmail
	}

	account.Email = email
	r.accounts[account.ID] = account.Clone()
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.accounts[account.ID]
	if !ok {
		return common.ErrorNotFound
	}

	email := NormalizeEmail(account.Email)
	if other := r.byEmail(email); other != nil && other.ID != account.ID {
		return common.ErrDuplicateEmail
	}

	account.Email = email
	next := account.Clone()
	next.CreatedAt = cur.CreatedAt
	r.accounts[account.ID] = next
	return nil
}

func (r *MemoryRepository) DeleteMany(_ context.Context, ids []uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, id := range ids {
		if _, ok := r.accounts[id]; ok {
			delete(r.accounts, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) ListAll(_ context.Context) ([]*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a.Clone())
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.HasLoggedIn() != b.HasLoggedIn() {
			return a.HasLoggedIn()
		}
		if !a.LastLoginAt.Equal(b.LastLoginAt) {
			return a.LastLoginAt.After(b.LastLoginAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) FindManyByIDsWithStatus(_ context.Context, ids []uuid.UUID, filter models.StatusFilter) ([]*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{}, len(ids))
	var out []*models.Account
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		a, ok := r.accounts[id]
		if !ok || !filter.Match(a.Status) {
			continue
		}
		out = append(out, a.Clone())
	}
	return out, nil
}

// byEmail expects the caller to hold mu.
func (r *MemoryRepository) byEmail(email string) *models.Account {
	for _, a := range r.accounts {
		if a.Email == email {
			return a
		}
	}
	return nil
}
