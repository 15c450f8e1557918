package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
	"github.com/google/uuid"
)

// MemoryStore is the Store over a MemoryRepository. Transactions are
// serialised and rolled back by restoring a snapshot. Calls made through
// Accounts() take the same lock, so no write outside a transaction can land
// between its snapshot and a rollback.
type MemoryStore struct {
	txMu sync.Mutex
	repo *accounts.MemoryRepository
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{repo: accounts.NewMemoryRepository()}
}

func (s *MemoryStore) Accounts() accounts.Repository {
	return &lockedRepository{mu: &s.txMu, repo: s.repo}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo accounts.Repository) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.repo.Snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.repo.Restore(snap)
			panic(p)
		}
		if err != nil {
			s.repo.Restore(snap)
		}
	}()

	return fn(ctx, s.repo)
}

// lockedRepository runs each call under the store's transaction lock.
type lockedRepository struct {
	mu   *sync.Mutex
	repo *accounts.MemoryRepository
}

func (r *lockedRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.FindByEmail(ctx, email)
}

func (r *lockedRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.FindByID(ctx, id)
}

func (r *lockedRepository) Insert(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.Insert(ctx, account)
}

func (r *lockedRepository) Update(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.Update(ctx, account)
}

func (r *lockedRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.DeleteMany(ctx, ids)
}

func (r *lockedRepository) ListAll(ctx context.Context) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.ListAll(ctx)
}

func (r *lockedRepository) FindManyByIDsWithStatus(ctx context.Context, ids []uuid.UUID, filter models.StatusFilter) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.FindManyByIDsWithStatus(ctx, ids, filter)
}
