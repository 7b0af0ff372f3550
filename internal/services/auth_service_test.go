package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/extra1357/imobiliaria-str-sub001/internal/auth"
	"github.com/extra1357/imobiliaria-str-sub001/internal/models"
	pkgauth "github.com/extra1357/imobiliaria-str-sub001/pkg/auth"
	pkglogger "github.com/extra1357/imobiliaria-str-sub001/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret-for-unit-tests-0123456789abcdef"

func testPasswordHash(t *testing.T, password string) string {
	t.Helper()
	// Minimum cost keeps the suite fast.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestAuthService(accounts *MockAccountRepository, auditRepo *MockAuditLogRepository, mailer *MockResetMailer, denyList SessionDenyList) *AuthService {
	logger := slog.Default()

	return NewAuthService(
		accounts,
		auditRepo,
		auth.NewTokenManager(testJWTSecret, 24*time.Hour),
		mailer,
		denyList,
		nil, // no timing delay in unit tests
		AuthPolicy{
			LockoutThreshold: 5,
			LockoutDuration:  15 * time.Minute,
			ResetTokenTTL:    time.Hour,
		},
		logger,
		pkglogger.NewAuditLogger(logger),
	)
}

// ============================================================================
// Login Tests
// ============================================================================

func TestAuthService_Login_Success(t *testing.T) {
	hash := testPasswordHash(t, "correct-password")
	account := NewTestAccountWithHash("acc123", "ana@example.com", "Ana Souza", hash)
	account.FailedAttempts = 3

	var successRecorded bool
	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			assert.Equal(t, "ana@example.com", email)
			return account, nil
		},
		RecordLoginSuccessFunc: func(ctx context.Context, id string) error {
			successRecorded = true
			assert.Equal(t, "acc123", id)
			return nil
		},
	}
	auditRepo := &MockAuditLogRepository{}

	svc := newTestAuthService(mockRepo, auditRepo, &MockResetMailer{}, nil)

	result, err := svc.Login(context.Background(), "  ANA@Example.com ", "correct-password", "10.0.0.1", "test-agent")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, successRecorded)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "acc123", result.Account.ID)
	assert.Equal(t, "corretor", result.Account.Role)

	// A fresh success counts in the audit trail.
	require.Len(t, auditRepo.Entries, 1)
	assert.Equal(t, models.AuditEventLoginSuccess, auditRepo.Entries[0].EventType)
	assert.True(t, auditRepo.Entries[0].Success)
}

func TestAuthService_Login_SessionTokenCarriesClaims(t *testing.T) {
	hash := testPasswordHash(t, "correct-password")
	brokerID := "broker42"
	brokerName := "Imobiliária Central"
	account := NewTestAccountWithHash("acc123", "ana@example.com", "Ana Souza", hash)
	account.Role = models.RoleGerente
	account.BrokerID = &brokerID
	account.BrokerName = &brokerName

	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	result, err := svc.Login(context.Background(), "ana@example.com", "correct-password", "", "")
	require.NoError(t, err)

	tm := auth.NewTokenManager(testJWTSecret, 24*time.Hour)
	claims, err := tm.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "acc123", claims.AccountID)
	assert.Equal(t, models.RoleGerente, claims.Role)
	assert.Equal(t, "broker42", claims.BrokerID)
	assert.Equal(t, "Imobiliária Central", claims.BrokerName)
	assert.NotEmpty(t, claims.ID)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return nil, models.ErrNotFound
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	result, err := svc.Login(context.Background(), "nobody@example.com", "whatever", "", "")

	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	var credErr *models.CredentialsError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, -1, credErr.AttemptsRemaining)
	// Generic message, nothing that distinguishes unknown email.
	assert.Equal(t, models.ErrInvalidCredentials.Error(), credErr.Error())
}

func TestAuthService_Login_WrongPassword_CountsFailure(t *testing.T) {
	hash := testPasswordHash(t, "correct-password")
	account := NewTestAccountWithHash("acc123", "ana@example.com", "Ana Souza", hash)

	var recordedID string
	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
		RecordLoginFailureFunc: func(ctx context.Context, id string, threshold int, lockout time.Duration) (int, *time.Time, error) {
			recordedID = id
			assert.Equal(t, 5, threshold)
			assert.Equal(t, 15*time.Minute, lockout)
			return 1, nil, nil
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	result, err := svc.Login(context.Background(), "ana@example.com", "wrong-password", "", "")

	assert.Nil(t, result)
	assert.Equal(t, "acc123", recordedID)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	var credErr *models.CredentialsError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, 4, credErr.AttemptsRemaining)
}

func TestAuthService_Login_FifthFailureArmsLockout(t *testing.T) {
	hash := testPasswordHash(t, "correct-password")
	account := NewTestAccountWithHash("acc123", "ana@example.com", "Ana Souza", hash)
	account.FailedAttempts = 4

	var lockoutArmed bool
	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
		RecordLoginFailureFunc: func(ctx context.Context, id string, threshold int, lockout time.Duration) (int, *time.Time, error) {
			lockoutArmed = true
			lockedUntil := time.Now().Add(lockout)
			return 5, &lockedUntil, nil
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	result, err := svc.Login(context.Background(), "ana@example.com", "wrong-password", "", "")

	assert.Nil(t, result)
	assert.True(t, lockoutArmed)

	// The attempt that reaches the threshold still reads as a credential
	// failure with zero attempts left; only later attempts see the lockout.
	var credErr *models.CredentialsError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, 0, credErr.AttemptsRemaining)

	var lockedErr *models.AccountLockedError
	assert.False(t, errors.As(err, &lockedErr))
}

func TestAuthService_Login_LockedRejectsCorrectPassword(t *testing.T) {
	hash := testPasswordHash(t, "correct-password")
	account := NewTestAccountLocked("acc123", "ana@example.com", "Ana Souza", 10*time.Minute)
	account.PasswordHash = hash

	loginFailureCalled := false
	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
		RecordLoginFailureFunc: func(ctx context.Context, id string, threshold int, lockout time.Duration) (int, *time.Time, error) {
			loginFailureCalled = true
			return 6, nil, nil
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	// The correct password during an active lockout is still rejected and
	// does not touch the counter.
	result, err := svc.Login(context.Background(), "ana@example.com", "correct-password", "", "")

	assert.Nil(t, result)
	assert.False(t, loginFailureCalled)

	var lockedErr *models.AccountLockedError
	require.ErrorAs(t, err, &lockedErr)
	assert.Equal(t, 10, lockedErr.RemainingMinutes())
}

func TestAuthService_Login_ExpiredLockoutAllowsLogin(t *testing.T) {
	hash := testPasswordHash(t, "correct-password")
	account := NewTestAccountWithHash("acc123", "ana@example.com", "Ana Souza", hash)
	lockedUntil := time.Now().Add(-1 * time.Minute)
	account.LockedUntil = &lockedUntil
	account.FailedAttempts = 5

	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	result, err := svc.Login(context.Background(), "ana@example.com", "correct-password", "", "")

	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestAuthService_Login_OneFailureBelowThresholdStillSucceeds(t *testing.T) {
	hash := testPasswordHash(t, "correct-password")
	account := NewTestAccountWithHash("acc123", "ana@example.com", "Ana Souza", hash)
	account.FailedAttempts = 4

	var successRecorded bool
	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
		RecordLoginSuccessFunc: func(ctx context.Context, id string) error {
			successRecorded = true
			return nil
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	result, err := svc.Login(context.Background(), "ana@example.com", "correct-password", "", "")

	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.True(t, successRecorded)
}

func TestAuthService_Login_DisabledAccount(t *testing.T) {
	hash := testPasswordHash(t, "correct-password")
	account := NewTestAccountDisabled("acc123", "ana@example.com", "Ana Souza")
	account.PasswordHash = hash

	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	result, err := svc.Login(context.Background(), "ana@example.com", "correct-password", "", "")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrAccountDisabled)
}

func TestAuthService_Login_ResponseOmitsPasswordHash(t *testing.T) {
	hash := testPasswordHash(t, "correct-password")
	account := NewTestAccountWithHash("acc123", "ana@example.com", "Ana Souza", hash)

	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	result, err := svc.Login(context.Background(), "ana@example.com", "correct-password", "", "")
	require.NoError(t, err)

	// AccountResponse has no hash field at all; make sure nothing leaks
	// through the string representations either.
	assert.NotContains(t, result.Token, hash)
	assert.Equal(t, "ana@example.com", result.Account.Email)
}

// ============================================================================
// Logout Tests
// ============================================================================

func TestAuthService_Logout_DeniesSession(t *testing.T) {
	denyList := &MockSessionDenyList{}
	svc := newTestAuthService(&MockAccountRepository{}, &MockAuditLogRepository{}, &MockResetMailer{}, denyList)

	account := NewTestAccount("acc123", "ana@example.com", "Ana Souza")
	token, err := auth.NewTokenManager(testJWTSecret, 24*time.Hour).GenerateSessionToken(account)
	require.NoError(t, err)

	claims, err := auth.NewTokenManager(testJWTSecret, 24*time.Hour).ValidateToken(token)
	require.NoError(t, err)

	err = svc.Logout(context.Background(), claims)
	require.NoError(t, err)
	require.Len(t, denyList.Denied, 1)
	assert.Equal(t, claims.ID, denyList.Denied[0])
}

func TestAuthService_Logout_WithoutDenyList(t *testing.T) {
	svc := newTestAuthService(&MockAccountRepository{}, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	claims := &models.SessionClaims{AccountID: "acc123", Email: "ana@example.com"}
	err := svc.Logout(context.Background(), claims)
	assert.NoError(t, err)
}

// ============================================================================
// Password Reset Tests
// ============================================================================

func TestAuthService_RequestPasswordReset_IssuesToken(t *testing.T) {
	account := NewTestAccount("acc123", "ana@example.com", "Ana Souza")

	var storedToken string
	var storedExpiry time.Time
	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
		SetResetTokenFunc: func(ctx context.Context, id, token string, expiresAt time.Time) error {
			storedToken = token
			storedExpiry = expiresAt
			return nil
		},
	}
	mailer := &MockResetMailer{}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, mailer, nil)

	err := svc.RequestPasswordReset(context.Background(), "ana@example.com")
	require.NoError(t, err)

	require.Len(t, mailer.SentTokens, 1)
	assert.Equal(t, storedToken, mailer.SentTokens[0])
	assert.NotEmpty(t, storedToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), storedExpiry, time.Minute)
}

func TestAuthService_RequestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return nil, models.ErrNotFound
		},
	}
	mailer := &MockResetMailer{}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, mailer, nil)

	err := svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
	assert.Empty(t, mailer.SentTokens)
}

func TestAuthService_RequestPasswordReset_DisabledAccountIsSilent(t *testing.T) {
	account := NewTestAccountDisabled("acc123", "ana@example.com", "Ana Souza")

	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
	}
	mailer := &MockResetMailer{}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, mailer, nil)

	err := svc.RequestPasswordReset(context.Background(), "ana@example.com")
	assert.NoError(t, err)
	assert.Empty(t, mailer.SentTokens)
}

func TestAuthService_RequestPasswordReset_DispatchFailure(t *testing.T) {
	account := NewTestAccount("acc123", "ana@example.com", "Ana Souza")

	mockRepo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
	}
	mailer := &MockResetMailer{
		SendResetEmailFunc: func(ctx context.Context, email, token string, expiresAt time.Time) error {
			return errors.New("ses unavailable")
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, mailer, nil)

	err := svc.RequestPasswordReset(context.Background(), "ana@example.com")
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestAuthService_ValidateResetToken(t *testing.T) {
	account := NewTestAccount("acc123", "ana@example.com", "Ana Souza")

	mockRepo := &MockAccountRepository{
		GetByResetTokenFunc: func(ctx context.Context, token string) (*models.Account, error) {
			if token == "valid-token" {
				return account, nil
			}
			return nil, models.ErrNotFound
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	info, err := svc.ValidateResetToken(context.Background(), "valid-token")
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", info.Name)
	assert.Equal(t, "ana@example.com", info.Email)

	_, err = svc.ValidateResetToken(context.Background(), "expired-or-bogus")
	assert.ErrorIs(t, err, models.ErrInvalidResetToken)

	_, err = svc.ValidateResetToken(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrInvalidResetToken)
}

func TestAuthService_CompletePasswordReset_Success(t *testing.T) {
	account := NewTestAccount("acc123", "ana@example.com", "Ana Souza")

	var consumedToken, newHash string
	mockRepo := &MockAccountRepository{
		ConsumeResetTokenFunc: func(ctx context.Context, token, passwordHash string) (*models.Account, error) {
			consumedToken = token
			newHash = passwordHash
			return account, nil
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	err := svc.CompletePasswordReset(context.Background(), "valid-token", "novasenha")
	require.NoError(t, err)
	assert.Equal(t, "valid-token", consumedToken)
	assert.NoError(t, pkgauth.ComparePassword(newHash, "novasenha"))
}

func TestAuthService_CompletePasswordReset_ShortPassword(t *testing.T) {
	consumeCalled := false
	mockRepo := &MockAccountRepository{
		ConsumeResetTokenFunc: func(ctx context.Context, token, passwordHash string) (*models.Account, error) {
			consumeCalled = true
			return nil, models.ErrNotFound
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	// 5 chars, below the reset-flow minimum of 6. The token must survive.
	err := svc.CompletePasswordReset(context.Background(), "valid-token", "curta")
	assert.ErrorIs(t, err, models.ErrWeakPassword)
	assert.False(t, consumeCalled)
}

func TestAuthService_CompletePasswordReset_TokenSingleUse(t *testing.T) {
	account := NewTestAccount("acc123", "ana@example.com", "Ana Souza")

	used := false
	mockRepo := &MockAccountRepository{
		ConsumeResetTokenFunc: func(ctx context.Context, token, passwordHash string) (*models.Account, error) {
			if used {
				return nil, models.ErrNotFound
			}
			used = true
			return account, nil
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	require.NoError(t, svc.CompletePasswordReset(context.Background(), "valid-token", "novasenha"))

	err := svc.CompletePasswordReset(context.Background(), "valid-token", "outrasenha")
	assert.ErrorIs(t, err, models.ErrInvalidResetToken)
}

// ============================================================================
// Change Password Tests
// ============================================================================

func TestAuthService_ChangePassword_Success(t *testing.T) {
	hash := testPasswordHash(t, "senha-antiga")
	account := NewTestAccountWithHash("acc123", "ana@example.com", "Ana Souza", hash)

	var newHash string
	mockRepo := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return account, nil
		},
		UpdatePasswordFunc: func(ctx context.Context, id, passwordHash string) error {
			newHash = passwordHash
			return nil
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	err := svc.ChangePassword(context.Background(), "acc123", "senha-antiga", "senha-nova-123")
	require.NoError(t, err)
	assert.NoError(t, pkgauth.ComparePassword(newHash, "senha-nova-123"))
}

func TestAuthService_ChangePassword_WrongOldPassword(t *testing.T) {
	hash := testPasswordHash(t, "senha-antiga")
	account := NewTestAccountWithHash("acc123", "ana@example.com", "Ana Souza", hash)

	updateCalled := false
	mockRepo := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return account, nil
		},
		UpdatePasswordFunc: func(ctx context.Context, id, passwordHash string) error {
			updateCalled = true
			return nil
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	err := svc.ChangePassword(context.Background(), "acc123", "senha-errada", "senha-nova-123")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.False(t, updateCalled)
}

func TestAuthService_ChangePassword_ShortNewPassword(t *testing.T) {
	hash := testPasswordHash(t, "senha-antiga")
	account := NewTestAccountWithHash("acc123", "ana@example.com", "Ana Souza", hash)

	updateCalled := false
	mockRepo := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return account, nil
		},
		UpdatePasswordFunc: func(ctx context.Context, id, passwordHash string) error {
			updateCalled = true
			return nil
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	// 7 chars meets the reset minimum but not the authenticated-change
	// minimum of 8.
	err := svc.ChangePassword(context.Background(), "acc123", "senha-antiga", "seteabc")
	assert.ErrorIs(t, err, models.ErrWeakPassword)
	assert.False(t, updateCalled)
}

func TestAuthService_ChangePassword_UnknownAccount(t *testing.T) {
	mockRepo := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return nil, models.ErrNotFound
		},
	}

	svc := newTestAuthService(mockRepo, &MockAuditLogRepository{}, &MockResetMailer{}, nil)

	err := svc.ChangePassword(context.Background(), "ghost", "old", "senha-nova-123")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}
