package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/extra1357/imobiliaria-str-sub001/internal/models"
	pkgauth "github.com/extra1357/imobiliaria-str-sub001/pkg/auth"
	pkglogger "github.com/extra1357/imobiliaria-str-sub001/pkg/logger"
)

// AccountService handles admin-side account provisioning.
type AccountService struct {
	accounts    AccountRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAccountService creates a new AccountService
func NewAccountService(accounts AccountRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AccountService {
	return &AccountService{
		accounts:    accounts,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// GetAccountByID retrieves an account by ID
func (s *AccountService) GetAccountByID(ctx context.Context, id string) (*AccountResponse, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("account not found", slog.String("account_id", id))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.String("account_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return accountToResponse(account), nil
}

// ListAccounts retrieves accounts with pagination
func (s *AccountService) ListAccounts(ctx context.Context, limit, offset int) ([]*AccountResponse, error) {
	accounts, err := s.accounts.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list accounts", slog.Int("limit", limit), slog.Int("offset", offset), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	responses := make([]*AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		responses = append(responses, accountToResponse(account))
	}

	return responses, nil
}

// CreateAccount provisions a new account with an initial password. actorID
// is the admin performing the action, recorded for the audit trail.
func (s *AccountService) CreateAccount(ctx context.Context, account *models.Account, password, actorID string) (*AccountResponse, error) {
	if !account.Role.Valid() {
		return nil, models.ErrValidation
	}

	if err := pkgauth.ValidatePasswordLength(password, pkgauth.MinNewPasswordLen); err != nil {
		return nil, models.ErrWeakPassword
	}

	existing, err := s.accounts.GetByEmail(ctx, account.Email)
	if err == nil && existing != nil {
		s.logger.Info("account already exists")
		return nil, models.ErrConflict
	}

	passwordHash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	account.PasswordHash = passwordHash
	account.Active = true

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account created", slog.String("account_id", created.ID))
	s.auditLogger.LogAccountAction(models.AuditEventAccountCreated, created.ID, actorID)
	return accountToResponse(created), nil
}

// DeactivateAccount disables an account. Disabled accounts keep their data
// but cannot authenticate. An admin cannot deactivate their own account.
func (s *AccountService) DeactivateAccount(ctx context.Context, id, actorID string) error {
	if id == actorID {
		s.logger.Info("refused self-deactivation", slog.String("account_id", id))
		return models.ErrForbidden
	}

	if err := s.accounts.Deactivate(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("account not found", slog.String("account_id", id))
			return models.ErrNotFound
		}
		s.logger.Error("failed to deactivate account", slog.String("account_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("account deactivated", slog.String("account_id", id))
	s.auditLogger.LogAccountAction(models.AuditEventAccountDisabled, id, actorID)
	return nil
}
