package models

import "time"

// Audit event types recorded by the authentication gate.
const (
	AuditEventLoginSuccess    = "login_success"
	AuditEventLoginFailed     = "login_failed"
	AuditEventLogout          = "logout"
	AuditEventPasswordChange  = "password_change"
	AuditEventPasswordReset   = "password_reset"
	AuditEventResetRequested  = "reset_requested"
	AuditEventAccountCreated  = "account_created"
	AuditEventAccountDisabled = "account_disabled"
)

// AuditLog is one append-only entry. Inserts are best-effort: a failed write
// must never fail the operation being audited.
type AuditLog struct {
	ID            int64
	EventType     string
	AccountID     *string
	Email         *string
	IPAddress     *string
	UserAgent     *string
	Success       bool
	FailureReason *string
	CreatedAt     time.Time
}
