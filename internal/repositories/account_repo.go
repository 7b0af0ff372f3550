package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/extra1357/imobiliaria-str-sub001/internal/database"
	"github.com/extra1357/imobiliaria-str-sub001/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, email, password_hash, name, role, active, failed_attempts,
	locked_until, last_login_at, reset_token, reset_token_expires_at,
	broker_id, broker_name, created_at, updated_at`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

// rowScanner interface for scanning account rows (single row or rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanAccountRow handles nullable fields and populates an Account model
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account

	err := scanner.Scan(
		&account.ID, &account.Email, &account.PasswordHash, &account.Name,
		&account.Role, &account.Active, &account.FailedAttempts,
		&account.LockedUntil, &account.LastLoginAt,
		&account.ResetToken, &account.ResetTokenExpiresAt,
		&account.BrokerID, &account.BrokerName,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &account, nil
}

func scanAccountRows(rows pgx.Rows) ([]*models.Account, error) {
	defer rows.Close()

	accounts := make([]*models.Account, 0)

	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return accounts, nil
}

// GetByEmail looks up an account by its normalized (lower-cased) email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = lower($1)`
	return scanAccountRow(r.pool.QueryRow(ctx, query, email))
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

// GetByResetToken returns the account holding an unexpired reset token.
func (r *AccountRepository) GetByResetToken(ctx context.Context, token string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE reset_token = $1 AND reset_token_expires_at > now()`
	return scanAccountRow(r.pool.QueryRow(ctx, query, token))
}

func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}

	return scanAccountRows(rows)
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.ID = uuid.New().String()

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	if account.Role == "" {
		account.Role = models.RoleCorretor
	}

	query := `
		INSERT INTO accounts (id, email, password_hash, name, role, active, broker_id, broker_name, created_at, updated_at)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool.QueryRow(ctx, query,
		account.ID, account.Email, account.PasswordHash, account.Name,
		account.Role, account.Active, account.BrokerID, account.BrokerName,
		account.CreatedAt, account.UpdatedAt,
	))
}

// RecordLoginFailure increments the failed-attempt counter and arms the
// lockout when the counter reaches the threshold. The increment and the
// conditional lockout are computed inside a single UPDATE so concurrent
// failures cannot lose an increment.
func (r *AccountRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, lockout time.Duration) (int, *time.Time, error) {
	query := `
		UPDATE accounts
		SET failed_attempts = failed_attempts + 1,
		    locked_until = CASE
		        WHEN failed_attempts + 1 >= $2 THEN now() + make_interval(secs => $3)
		        ELSE locked_until
		    END,
		    updated_at = now()
		WHERE id = $1
		RETURNING failed_attempts, locked_until
	`

	var attempts int
	var lockedUntil *time.Time
	err := r.pool.QueryRow(ctx, query, id, threshold, lockout.Seconds()).Scan(&attempts, &lockedUntil)
	if err != nil {
		return 0, nil, database.MapPostgresError(err)
	}

	return attempts, lockedUntil, nil
}

// RecordLoginSuccess resets the failure counter, clears any lockout, and
// stamps the last successful login. One self-contained UPDATE.
func (r *AccountRepository) RecordLoginSuccess(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET failed_attempts = 0, locked_until = NULL, last_login_at = now(), updated_at = now()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetResetToken stores a fresh reset token, overwriting any previous one so
// at most one live token exists per account.
func (r *AccountRepository) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET reset_token = $2, reset_token_expires_at = $3, updated_at = now()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, token, expiresAt)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ConsumeResetToken sets the new password hash and clears the reset token in
// one UPDATE guarded by the token match and its expiry, making the token
// single-use: a second call with the same token matches no row.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET password_hash = $2, reset_token = NULL, reset_token_expires_at = NULL, updated_at = now()
		WHERE reset_token = $1 AND reset_token_expires_at > now() AND active
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool.QueryRow(ctx, query, token, passwordHash))
}

// UpdatePassword persists a new hash for an authenticated password change.
// A pending reset token, if any, is cleared at the same time.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, reset_token = NULL, reset_token_expires_at = NULL, updated_at = now()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Deactivate flips the active flag. Accounts are never physically deleted.
func (r *AccountRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE accounts SET active = false, updated_at = now() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClearExpiredResetTokens removes reset tokens past their expiry.
func (r *AccountRepository) ClearExpiredResetTokens(ctx context.Context) (int64, error) {
	query := `
		UPDATE accounts
		SET reset_token = NULL, reset_token_expires_at = NULL
		WHERE reset_token IS NOT NULL AND reset_token_expires_at <= now()
	`

	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired reset tokens: %w", err)
	}

	return result.RowsAffected(), nil
}
