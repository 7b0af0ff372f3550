package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/extra1357/imobiliaria-str-sub001/internal/auth"
	"github.com/extra1357/imobiliaria-str-sub001/internal/models"
	"github.com/extra1357/imobiliaria-str-sub001/internal/services"
	pkghttp "github.com/extra1357/imobiliaria-str-sub001/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error)
	Logout(ctx context.Context, claims *models.SessionClaims) error
	RequestPasswordReset(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, token string) (*services.ResetTokenInfo, error)
	CompletePasswordReset(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service      AuthServiceInterface
	cookieConfig auth.CookieConfig
	sessionTTL   time.Duration
	ipConfig     *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, sessionTTL time.Duration, cookieConfig auth.CookieConfig, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:      service,
		cookieConfig: cookieConfig,
		sessionTTL:   sessionTTL,
		ipConfig:     ipConfig,
	}
}

// Request DTOs

// LoginRequest represents the request body for login. The email is free
// text here; a malformed value simply fails the account lookup.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest asks for a reset link
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

// ResetPasswordRequest completes the reset flow
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest changes the password of the logged-in account
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// forgotAck is the fixed acknowledgement for the forgot-password endpoint.
// It must be byte-identical whether or not the email exists.
const forgotAck = "Se o e-mail informado estiver cadastrado, você receberá as instruções de redefinição."

// LoginResponse wraps the account projection returned on successful login.
type LoginResponse struct {
	Account *services.AccountResponse `json:"account"`
}

// Login authenticates the account and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	result, err := h.service.Login(r.Context(), req.Email, req.Password, ipAddress, userAgent)
	if err != nil {
		writeLoginError(w, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.sessionTTL, h.cookieConfig)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(LoginResponse{Account: result.Account})
}

func writeLoginError(w http.ResponseWriter, err error) {
	var lockedErr *models.AccountLockedError
	var credErr *models.CredentialsError

	switch {
	case errors.As(err, &lockedErr):
		pkghttp.WriteLocked(w, lockedErr.Error(), int(lockedErr.RetryAfter.Seconds()))
	case errors.As(err, &credErr):
		// One error code for unknown email and wrong password; the message
		// only varies by the attempts-remaining hint for known accounts.
		pkghttp.WriteInvalidCredentials(w, credErr.Error())
	case errors.Is(err, models.ErrAccountDisabled):
		pkghttp.WriteError(w, http.StatusForbidden, "account_disabled", "Account disabled. Contact your administrator.")
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteInvalidCredentials(w, models.ErrInvalidCredentials.Error())
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// Logout revokes the session and clears the cookie. Idempotent from the
// client's point of view: the cookie is cleared even if revocation fails.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetSessionFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}

	err := h.service.Logout(r.Context(), claims)
	auth.ClearSessionCookie(w, h.cookieConfig)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "logout successful"})
}

// SessionResponse mirrors the claims of the current session.
type SessionResponse struct {
	AccountID  string `json:"account_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	BrokerID   string `json:"broker_id,omitempty"`
	BrokerName string `json:"broker_name,omitempty"`
}

// Session returns the verified claims of the current session. Used by the
// front end to restore state after a page reload.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetSessionFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}

	resp := SessionResponse{
		AccountID:  claims.AccountID,
		Email:      claims.Email,
		Name:       claims.Name,
		Role:       string(claims.Role),
		BrokerID:   claims.BrokerID,
		BrokerName: claims.BrokerName,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// ForgotPassword requests a reset link. The acknowledgement is identical for
// known and unknown emails.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": forgotAck})
}

// ResetTokenResponse reports whether a reset token is usable and, when it
// is, who it belongs to so the form can greet the account holder.
type ResetTokenResponse struct {
	Valid bool   `json:"valid"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// ValidateResetToken checks a reset token before showing the reset form.
func (h *AuthHandler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	info, err := h.service.ValidateResetToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, models.ErrInvalidResetToken) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ResetTokenResponse{Valid: false})
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ResetTokenResponse{Valid: true, Name: info.Name, Email: info.Email})
}

// ResetPassword consumes the token and sets the new password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.CompletePasswordReset(r.Context(), req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, models.ErrWeakPassword):
			pkghttp.WriteError(w, http.StatusBadRequest, "weak_password", "Password must have at least 6 characters")
		case errors.Is(err, models.ErrInvalidResetToken):
			pkghttp.WriteError(w, http.StatusBadRequest, "invalid_reset_token", "Reset link is invalid or expired. Request a new one.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "password updated"})
}

// ChangePassword changes the password of the authenticated account.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetSessionFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}

	var req ChangePasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ChangePassword(r.Context(), claims.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteInvalidCredentials(w, "Current password is incorrect")
		case errors.Is(err, models.ErrWeakPassword):
			pkghttp.WriteError(w, http.StatusBadRequest, "weak_password", "Password must have at least 8 characters")
		case errors.Is(err, models.ErrUnauthenticated):
			pkghttp.WriteUnauthorized(w, "authentication required")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "password updated"})
}
