package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const accountColumns = `id, name, email, position, password_hash, password_salt, status,
		        verification_token, verification_expires_at, reset_token, reset_expires_at,
		        created_at, last_login_at`

// PostgresRepository is the pgx-backed Repository. Bound to a transaction
// with Locking, its reads take row locks (SELECT ... FOR UPDATE) that are
// held until the transaction ends.
type PostgresRepository struct {
	db   dbx.DBTX
	lock bool
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Locking returns a copy whose reads lock the selected rows. Use it only
// on a repository bound to a *sql.Tx.
func (r *PostgresRepository) Locking() *PostgresRepository {
	return &PostgresRepository{db: r.db, lock: true}
}

func (r *PostgresRepository) lockClause() string {
	if r.lock {
		return " FOR UPDATE"
	}
	return ""
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + `
		 FROM accounts
		 WHERE email = $1` + r.lockClause()

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + `
		 FROM accounts
		 WHERE id = $1` + r.lockClause()

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, a *models.Account) error {
	query :=
		`INSERT INTO accounts (id, name, email, position, password_hash, password_salt, status,
		        verification_token, verification_expires_at, reset_token, reset_expires_at,
		        created_at, last_login_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	vTok, vExp := tokenArgs(a.Verification)
	rTok, rExp := tokenArgs(a.PasswordReset)

	_, err := r.db.ExecContext(ctx, query,
		a.ID.String(), a.Name, NormalizeEmail(a.Email), a.Position, a.PasswordHash, a.PasswordSalt, int16(a.Status),
		vTok, vExp, rTok, rExp,
		a.CreatedAt, nullTime(a.LastLoginAt),
	)
	if err != nil {
		return mapWriteError(err)
	}
	a.Email = NormalizeEmail(a.Email)
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, a *models.Account) error {
	query :=
		`UPDATE accounts
		 SET name = $2, email = $3, position = $4, password_hash = $5, password_salt = $6, status = $7,
		     verification_token = $8, verification_expires_at = $9, reset_token = $10, reset_expires_at = $11,
		     last_login_at = $12
		 WHERE id = $1`

	vTok, vExp := tokenArgs(a.Verification)
	rTok, rExp := tokenArgs(a.PasswordReset)

	res, err := r.db.ExecContext(ctx, query,
		a.ID.String(), a.Name, NormalizeEmail(a.Email), a.Position, a.PasswordHash, a.PasswordSalt, int16(a.Status),
		vTok, vExp, rTok, rExp,
		nullTime(a.LastLoginAt),
	)
	if err != nil {
		return mapWriteError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	a.Email = NormalizeEmail(a.Email)
	return nil
}

func (r *PostgresRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM accounts WHERE id = ANY($1::uuid[])`

	res, err := r.db.ExecContext(ctx, query, idArray(ids))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + `
		 FROM accounts
		 ORDER BY last_login_at DESC NULLS LAST, created_at DESC`

	return r.queryAccounts(ctx, query)
}

func (r *PostgresRepository) FindManyByIDsWithStatus(ctx context.Context, ids []uuid.UUID, filter models.StatusFilter) ([]*models.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	op := "="
	if filter.Negate {
		op = "<>"
	}
	query := `SELECT ` + accountColumns + `
		 FROM accounts
		 WHERE id = ANY($1::uuid[]) AND status ` + op + ` $2
		 ORDER BY id` + r.lockClause()

	return r.queryAccounts(ctx, query, idArray(ids), int16(filter.Status))
}

func (r *PostgresRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a         models.Account
		status    int16
		vTok      sql.NullString
		vExp      sql.NullTime
		rTok      sql.NullString
		rExp      sql.NullTime
		lastLogin sql.NullTime
	)

	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Position, &a.PasswordHash, &a.PasswordSalt, &status,
		&vTok, &vExp, &rTok, &rExp,
		&a.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}

	a.Status = models.Status(status)
	a.Verification = pendingToken(vTok, vExp)
	a.PasswordReset = pendingToken(rTok, rExp)
	if lastLogin.Valid {
		a.LastLoginAt = lastLogin.Time
	}
	return &a, nil
}

func pendingToken(tok sql.NullString, exp sql.NullTime) models.PendingToken {
	if !tok.Valid || !exp.Valid {
		return models.NoToken
	}
	return models.NewPendingToken(tok.String, exp.Time)
}

// tokenArgs writes a pending token as two columns that are both NULL or
// both set.
func tokenArgs(t models.PendingToken) (any, any) {
	if !t.Pending() {
		return nil, nil
	}
	return t.Value(), t.ExpiresAt()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func idArray(ids []uuid.UUID) pq.StringArray {
	out := make(pq.StringArray, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return common.ErrDuplicateEmail
	}
	return fmt.Errorf("db error: %w", err)
}
