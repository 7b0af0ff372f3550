package repositories

import (
	"context"
	"fmt"

	"github.com/extra1357/imobiliaria-str-sub001/internal/database"
	"github.com/extra1357/imobiliaria-str-sub001/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLogRepository handles the append-only audit trail.
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{pool: db.Pool}
}

func scanAuditLogRow(row rowScanner) (*models.AuditLog, error) {
	var entry models.AuditLog

	err := row.Scan(
		&entry.ID, &entry.EventType, &entry.AccountID, &entry.Email,
		&entry.IPAddress, &entry.UserAgent, &entry.Success,
		&entry.FailureReason, &entry.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &entry, nil
}

func scanAuditLogRows(rows pgx.Rows) ([]*models.AuditLog, error) {
	defer rows.Close()

	entries := make([]*models.AuditLog, 0)

	for rows.Next() {
		entry, err := scanAuditLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return entries, nil
}

// Create inserts one audit entry. Callers treat failures as best-effort.
func (r *AuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) (*models.AuditLog, error) {
	query := `
		INSERT INTO audit_logs (event_type, account_id, email, ip_address, user_agent, success, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, event_type, account_id, email, ip_address, user_agent, success, failure_reason, created_at
	`

	result, err := scanAuditLogRow(r.pool.QueryRow(ctx, query,
		entry.EventType, entry.AccountID, entry.Email,
		entry.IPAddress, entry.UserAgent, entry.Success, entry.FailureReason,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}

	return result, nil
}

// GetByAccountID retrieves the audit trail of one account, newest first.
func (r *AuditLogRepository) GetByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, event_type, account_id, email, ip_address, user_agent, success, failure_reason, created_at
		FROM audit_logs
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}

	return scanAuditLogRows(rows)
}

// GetByEventType retrieves audit logs by event type
func (r *AuditLogRepository) GetByEventType(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, event_type, account_id, email, ip_address, user_agent, success, failure_reason, created_at
		FROM audit_logs
		WHERE event_type = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, eventType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}

	return scanAuditLogRows(rows)
}

// Cleanup removes audit logs older than the specified number of days
func (r *AuditLogRepository) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	query := `
		DELETE FROM audit_logs
		WHERE created_at < CURRENT_TIMESTAMP - INTERVAL '1 day' * $1
	`

	result, err := r.pool.Exec(ctx, query, olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}

	return result.RowsAffected(), nil
}
