package repomanager

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
)

// RepositoryManager owns a database handle: it migrates the schema and
// vends the Store over it.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Store() Store
}

// Store hands out the account repository and runs functions atomically
// against it. Reads done through the repository passed to WithinTx see a
// consistent view and are isolated from concurrent WithinTx calls that
// touch the same accounts.
type Store interface {
	Accounts() accounts.Repository
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo accounts.Repository) error) error
}
