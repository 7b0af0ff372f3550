package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/extra1357/imobiliaria-str-sub001/internal/auth"
	"github.com/extra1357/imobiliaria-str-sub001/internal/models"
	"github.com/extra1357/imobiliaria-str-sub001/internal/services"
	pkghttp "github.com/extra1357/imobiliaria-str-sub001/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AccountServiceInterface defines the interface for account provisioning
type AccountServiceInterface interface {
	GetAccountByID(ctx context.Context, id string) (*services.AccountResponse, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]*services.AccountResponse, error)
	CreateAccount(ctx context.Context, account *models.Account, password, actorID string) (*services.AccountResponse, error)
	DeactivateAccount(ctx context.Context, id, actorID string) error
}

// AccountHandler handles admin-side account management requests. The router
// mounts it under the admin subtree, so every request here already carries
// verified admin claims.
type AccountHandler struct {
	service AccountServiceInterface
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// CreateAccountRequest represents the request body for account provisioning
type CreateAccountRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Name       string `json:"name" validate:"required,min=1"`
	Password   string `json:"password" validate:"required"`
	Role       string `json:"role" validate:"required,oneof=corretor gerente admin"`
	BrokerID   string `json:"broker_id"`
	BrokerName string `json:"broker_name"`
}

// List returns accounts with pagination
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r, "limit", 50)
	offset := parseQueryInt(r, "offset", 0)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	accounts, err := h.service.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"accounts": accounts,
		"limit":    limit,
		"offset":   offset,
	})
}

// Get returns one account by id
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	account, err := h.service.GetAccountByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Account not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(account)
}

// Create provisions a new account
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetSessionFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}

	var req CreateAccountRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	account := &models.Account{
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Name:  strings.TrimSpace(req.Name),
		Role:  models.Role(req.Role),
	}
	if req.BrokerID != "" {
		account.BrokerID = &req.BrokerID
	}
	if req.BrokerName != "" {
		account.BrokerName = &req.BrokerName
	}

	created, err := h.service.CreateAccount(r.Context(), account, req.Password, claims.AccountID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "An account with this email already exists")
		case errors.Is(err, models.ErrWeakPassword):
			pkghttp.WriteError(w, http.StatusBadRequest, "weak_password", "Password must have at least 8 characters")
		case errors.Is(err, models.ErrValidation):
			pkghttp.WriteBadRequest(w, "Invalid account data")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// Deactivate disables an account
func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetSessionFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}

	id := chi.URLParam(r, "id")

	if err := h.service.DeactivateAccount(r.Context(), id, claims.AccountID); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Account not found")
		case errors.Is(err, models.ErrForbidden):
			pkghttp.WriteForbidden(w, "Cannot deactivate your own account")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseQueryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
