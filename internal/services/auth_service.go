package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/extra1357/imobiliaria-str-sub001/internal/auth"
	"github.com/extra1357/imobiliaria-str-sub001/internal/models"
	pkgauth "github.com/extra1357/imobiliaria-str-sub001/pkg/auth"
	pkglogger "github.com/extra1357/imobiliaria-str-sub001/pkg/logger"
)

// AccountRepository defines the account persistence operations the
// authentication gate needs.
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByResetToken(ctx context.Context, token string) (*models.Account, error)
	List(ctx context.Context, limit, offset int) ([]*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockout time.Duration) (int, *time.Time, error)
	RecordLoginSuccess(ctx context.Context, id string) error
	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, token, passwordHash string) (*models.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Deactivate(ctx context.Context, id string) error
}

// AuditLogRepository persists the append-only audit trail.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) (*models.AuditLog, error)
}

// SessionDenyList revokes session ids ahead of natural expiry. Optional.
type SessionDenyList interface {
	Deny(ctx context.Context, jti string, expiresAt time.Time) error
}

// AuthPolicy carries the lockout and reset-token policy knobs.
type AuthPolicy struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	ResetTokenTTL    time.Duration
}

// AuthService implements the account authentication gate: credential checks,
// failure counting with temporary lockout, session issuance, and the
// password reset and change flows.
type AuthService struct {
	accounts    AccountRepository
	auditRepo   AuditLogRepository
	tm          *auth.TokenManager
	mailer      ResetMailer
	denyList    SessionDenyList
	timingDelay *auth.TimingDelay
	policy      AuthPolicy
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService. denyList may be nil, in which
// case logout is purely client-side cookie deletion.
func NewAuthService(
	accounts AccountRepository,
	auditRepo AuditLogRepository,
	tm *auth.TokenManager,
	mailer ResetMailer,
	denyList SessionDenyList,
	timingDelay *auth.TimingDelay,
	policy AuthPolicy,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		accounts:    accounts,
		auditRepo:   auditRepo,
		tm:          tm,
		mailer:      mailer,
		denyList:    denyList,
		timingDelay: timingDelay,
		policy:      policy,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// AccountResponse is the public-safe projection of an account. It never
// carries the password hash or reset-token fields.
type AccountResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	BrokerID    *string `json:"broker_id,omitempty"`
	BrokerName  *string `json:"broker_name,omitempty"`
	LastLoginAt *string `json:"last_login_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// LoginResult carries the signed session token and the account projection.
type LoginResult struct {
	Token   string
	Account *AccountResponse
}

// Login runs the authentication state machine. Precondition checks follow a
// fixed order so each failure mode maps to one distinct outcome; every
// branch that touches the failure counter persists before returning.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*LoginResult, error) {
	start := time.Now()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		s.wait(start, false)
		return nil, &models.CredentialsError{AttemptsRemaining: -1}
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Unknown email fails exactly like a wrong password.
			s.logger.Info("login failed: invalid credentials")
			s.recordAudit(ctx, models.AuditEventLoginFailed, nil, &email, ipAddress, userAgent, false, "invalid_credentials")
			s.wait(start, false)
			return nil, &models.CredentialsError{AttemptsRemaining: -1}
		}
		s.logger.Error("failed to get account by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !account.Active {
		s.logger.Info("login blocked: account disabled", slog.String("account_id", account.ID))
		s.recordAudit(ctx, models.AuditEventLoginFailed, &account.ID, &email, ipAddress, userAgent, false, "account_disabled")
		s.wait(start, false)
		return nil, models.ErrAccountDisabled
	}

	now := time.Now()
	if account.Locked(now) {
		retryAfter := account.LockedUntil.Sub(now)
		s.logger.Info("login blocked: account locked",
			slog.String("account_id", account.ID),
			slog.Duration("retry_after", retryAfter))
		s.recordAudit(ctx, models.AuditEventLoginFailed, &account.ID, &email, ipAddress, userAgent, false, "account_locked")
		s.wait(start, false)
		return nil, &models.AccountLockedError{RetryAfter: retryAfter}
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, password); err != nil {
		attempts, _, recErr := s.accounts.RecordLoginFailure(ctx, account.ID, s.policy.LockoutThreshold, s.policy.LockoutDuration)
		if recErr != nil {
			s.logger.Error("failed to record login failure",
				slog.String("account_id", account.ID),
				slog.Any("error", recErr))
			// The attempt still fails as a credential error; the counter
			// write is retried on the next attempt.
			attempts = account.FailedAttempts + 1
		}

		remaining := s.policy.LockoutThreshold - attempts
		if remaining < 0 {
			remaining = 0
		}

		s.logger.Info("login failed: invalid credentials",
			slog.String("account_id", account.ID),
			slog.Int("failed_attempts", attempts))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     models.AuditEventLoginFailed,
			AccountID:     account.ID,
			IPAddress:     ipAddress,
			FailureReason: "invalid_credentials",
		})
		s.recordAudit(ctx, models.AuditEventLoginFailed, &account.ID, &email, ipAddress, userAgent, false, "invalid_credentials")

		// The mismatch that arms the lockout still reads as a credential
		// failure with zero attempts remaining; 423 starts on the next try.
		s.wait(start, false)
		return nil, &models.CredentialsError{AttemptsRemaining: remaining}
	}

	if err := s.accounts.RecordLoginSuccess(ctx, account.ID); err != nil {
		s.logger.Error("failed to record login success",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := s.tm.GenerateSessionToken(account)
	if err != nil {
		s.logger.Error("failed to sign session token",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account logged in", slog.String("account_id", account.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: models.AuditEventLoginSuccess,
		AccountID: account.ID,
		IPAddress: ipAddress,
		Success:   true,
	})
	s.recordAudit(ctx, models.AuditEventLoginSuccess, &account.ID, &email, ipAddress, userAgent, true, "")

	lastLogin := time.Now()
	account.FailedAttempts = 0
	account.LockedUntil = nil
	account.LastLoginAt = &lastLogin

	return &LoginResult{
		Token:   token,
		Account: accountToResponse(account),
	}, nil
}

// Logout revokes the session via the deny-list when one is configured.
// The cookie deletion itself happens at the HTTP boundary either way.
func (s *AuthService) Logout(ctx context.Context, claims *models.SessionClaims) error {
	if s.denyList != nil && claims.ID != "" && claims.ExpiresAt != nil {
		if err := s.denyList.Deny(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			s.logger.Error("failed to deny session",
				slog.String("account_id", claims.AccountID),
				slog.Any("error", err))
			return models.ErrInternalServer
		}
	}

	s.logger.Info("account logged out", slog.String("account_id", claims.AccountID))
	s.recordAudit(ctx, models.AuditEventLogout, &claims.AccountID, &claims.Email, "", "", true, "")
	return nil
}

// RequestPasswordReset issues a fresh single-use reset token and dispatches
// it out of band. Unknown or inactive accounts are a silent no-op so the
// caller's acknowledgement stays identical; a dispatch failure surfaces as
// an internal error because the user would otherwise wait for a mail that
// never arrives.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("reset requested for unknown email")
			return nil
		}
		s.logger.Error("failed to get account for reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !account.Active {
		s.logger.Info("reset requested for disabled account", slog.String("account_id", account.ID))
		return nil
	}

	token, err := pkgauth.GenerateResetToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := time.Now().Add(s.policy.ResetTokenTTL)
	if err := s.accounts.SetResetToken(ctx, account.ID, token, expiresAt); err != nil {
		s.logger.Error("failed to store reset token",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.mailer.SendResetEmail(ctx, account.Email, token, expiresAt); err != nil {
		s.logger.Error("failed to dispatch reset email",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("reset token issued", slog.String("account_id", account.ID))
	s.recordAudit(ctx, models.AuditEventResetRequested, &account.ID, &account.Email, "", "", true, "")
	return nil
}

// ResetTokenInfo identifies the account behind a valid reset token.
type ResetTokenInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ValidateResetToken checks a token without consuming it.
func (s *AuthService) ValidateResetToken(ctx context.Context, token string) (*ResetTokenInfo, error) {
	if token == "" {
		return nil, models.ErrInvalidResetToken
	}

	account, err := s.accounts.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidResetToken
		}
		s.logger.Error("failed to look up reset token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !account.Active {
		return nil, models.ErrInvalidResetToken
	}

	return &ResetTokenInfo{Name: account.Name, Email: account.Email}, nil
}

// CompletePasswordReset consumes the token and sets the new password in one
// store update, so a token can never be used twice.
func (s *AuthService) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return models.ErrInvalidResetToken
	}

	if err := pkgauth.ValidatePasswordLength(newPassword, pkgauth.MinResetPasswordLen); err != nil {
		return models.ErrWeakPassword
	}

	passwordHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	account, err := s.accounts.ConsumeResetToken(ctx, token, passwordHash)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidResetToken
		}
		s.logger.Error("failed to consume reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password reset completed", slog.String("account_id", account.ID))
	s.auditLogger.LogPasswordChange(models.AuditEventPasswordReset, account.ID, "", true)
	s.recordAudit(ctx, models.AuditEventPasswordReset, &account.ID, &account.Email, "", "", true, "")
	return nil
}

// ChangePassword verifies the old secret and persists the new one. Lockout
// state is untouched: a legitimate change must not reset a pending lockout.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthenticated
		}
		s.logger.Error("failed to get account", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, oldPassword); err != nil {
		s.logger.Info("password change rejected: wrong current password", slog.String("account_id", accountID))
		s.auditLogger.LogPasswordChange(models.AuditEventPasswordChange, accountID, "", false)
		return models.ErrInvalidCredentials
	}

	if err := pkgauth.ValidatePasswordLength(newPassword, pkgauth.MinNewPasswordLen); err != nil {
		return models.ErrWeakPassword
	}

	passwordHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.accounts.UpdatePassword(ctx, accountID, passwordHash); err != nil {
		s.logger.Error("failed to update password", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password changed", slog.String("account_id", accountID))
	s.auditLogger.LogPasswordChange(models.AuditEventPasswordChange, accountID, "", true)
	s.recordAudit(ctx, models.AuditEventPasswordChange, &account.ID, &account.Email, "", "", true, "")
	return nil
}

// recordAudit persists an audit entry best-effort: failures are logged and
// swallowed so they never block the audited operation.
func (s *AuthService) recordAudit(ctx context.Context, eventType string, accountID, email *string, ipAddress, userAgent string, success bool, failureReason string) {
	if s.auditRepo == nil {
		return
	}

	entry := &models.AuditLog{
		EventType: eventType,
		AccountID: accountID,
		Email:     email,
		Success:   success,
	}
	if ipAddress != "" {
		entry.IPAddress = &ipAddress
	}
	if userAgent != "" {
		entry.UserAgent = &userAgent
	}
	if failureReason != "" {
		entry.FailureReason = &failureReason
	}

	if _, err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("audit log insert failed", slog.Any("error", err))
	}
}

func (s *AuthService) wait(start time.Time, success bool) {
	if s.timingDelay != nil {
		s.timingDelay.WaitFrom(start, success)
	}
}

func accountToResponse(account *models.Account) *AccountResponse {
	resp := &AccountResponse{
		ID:         account.ID,
		Email:      account.Email,
		Name:       account.Name,
		Role:       string(account.Role),
		BrokerID:   account.BrokerID,
		BrokerName: account.BrokerName,
		CreatedAt:  account.CreatedAt.Format(time.RFC3339),
	}
	if account.LastLoginAt != nil {
		lastLogin := account.LastLoginAt.Format(time.RFC3339)
		resp.LastLoginAt = &lastLogin
	}
	return resp
}
