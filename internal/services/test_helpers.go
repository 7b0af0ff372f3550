package services

import (
	"context"
	"time"

	"github.com/extra1357/imobiliaria-str-sub001/internal/models"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	GetByEmailFunc         func(ctx context.Context, email string) (*models.Account, error)
	GetByIDFunc            func(ctx context.Context, id string) (*models.Account, error)
	GetByResetTokenFunc    func(ctx context.Context, token string) (*models.Account, error)
	ListFunc               func(ctx context.Context, limit, offset int) ([]*models.Account, error)
	CreateFunc             func(ctx context.Context, account *models.Account) (*models.Account, error)
	RecordLoginFailureFunc func(ctx context.Context, id string, threshold int, lockout time.Duration) (int, *time.Time, error)
	RecordLoginSuccessFunc func(ctx context.Context, id string) error
	SetResetTokenFunc      func(ctx context.Context, id, token string, expiresAt time.Time) error
	ConsumeResetTokenFunc  func(ctx context.Context, token, passwordHash string) (*models.Account, error)
	UpdatePasswordFunc     func(ctx context.Context, id, passwordHash string) error
	DeactivateFunc         func(ctx context.Context, id string) error
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByResetToken(ctx context.Context, token string) (*models.Account, error) {
	if m.GetByResetTokenFunc != nil {
		return m.GetByResetTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.Account{}, nil
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, lockout time.Duration) (int, *time.Time, error) {
	if m.RecordLoginFailureFunc != nil {
		return m.RecordLoginFailureFunc(ctx, id, threshold, lockout)
	}
	return 1, nil, nil
}

func (m *MockAccountRepository) RecordLoginSuccess(ctx context.Context, id string) error {
	if m.RecordLoginSuccessFunc != nil {
		return m.RecordLoginSuccessFunc(ctx, id)
	}
	return nil
}

func (m *MockAccountRepository) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	if m.SetResetTokenFunc != nil {
		return m.SetResetTokenFunc(ctx, id, token, expiresAt)
	}
	return nil
}

func (m *MockAccountRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string) (*models.Account, error) {
	if m.ConsumeResetTokenFunc != nil {
		return m.ConsumeResetTokenFunc(ctx, token, passwordHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockAccountRepository) Deactivate(ctx context.Context, id string) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, id)
	}
	return nil
}

// MockAuditLogRepository implements AuditLogRepository for testing
type MockAuditLogRepository struct {
	CreateFunc func(ctx context.Context, entry *models.AuditLog) (*models.AuditLog, error)

	Entries []*models.AuditLog
}

func (m *MockAuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) (*models.AuditLog, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	m.Entries = append(m.Entries, entry)
	return entry, nil
}

// MockResetMailer implements ResetMailer for testing
type MockResetMailer struct {
	SendResetEmailFunc func(ctx context.Context, email, token string, expiresAt time.Time) error

	SentTokens []string
}

func (m *MockResetMailer) SendResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendResetEmailFunc != nil {
		return m.SendResetEmailFunc(ctx, email, token, expiresAt)
	}
	m.SentTokens = append(m.SentTokens, token)
	return nil
}

// MockSessionDenyList implements SessionDenyList for testing
type MockSessionDenyList struct {
	DenyFunc func(ctx context.Context, jti string, expiresAt time.Time) error

	Denied []string
}

func (m *MockSessionDenyList) Deny(ctx context.Context, jti string, expiresAt time.Time) error {
	if m.DenyFunc != nil {
		return m.DenyFunc(ctx, jti, expiresAt)
	}
	m.Denied = append(m.Denied, jti)
	return nil
}

// NewTestAccount constructs an active account with defaults
func NewTestAccount(id, email, name string) *models.Account {
	now := time.Now()
	return &models.Account{
		ID:        id,
		Email:     email,
		Name:      name,
		Role:      models.RoleCorretor,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestAccountWithHash creates an account with a known password hash
func NewTestAccountWithHash(id, email, name, passwordHash string) *models.Account {
	account := NewTestAccount(id, email, name)
	account.PasswordHash = passwordHash
	return account
}

// NewTestAccountLocked creates an account locked for the given duration
func NewTestAccountLocked(id, email, name string, lockFor time.Duration) *models.Account {
	account := NewTestAccount(id, email, name)
	lockedUntil := time.Now().Add(lockFor)
	account.LockedUntil = &lockedUntil
	account.FailedAttempts = 5
	return account
}

// NewTestAccountDisabled creates a deactivated account
func NewTestAccountDisabled(id, email, name string) *models.Account {
	account := NewTestAccount(id, email, name)
	account.Active = false
	return account
}
