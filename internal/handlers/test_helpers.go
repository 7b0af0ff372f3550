package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/extra1357/imobiliaria-str-sub001/internal/auth"
	"github.com/extra1357/imobiliaria-str-sub001/internal/models"
	"github.com/extra1357/imobiliaria-str-sub001/internal/services"
	pkghttp "github.com/extra1357/imobiliaria-str-sub001/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSessionContext adds session claims to the request context for testing
// authenticated endpoints.
func WithSessionContext(req *http.Request, accountID, email string, role models.Role) *http.Request {
	claims := &models.SessionClaims{
		AccountID: accountID,
		Email:     email,
		Role:      role,
	}
	ctx := context.WithValue(req.Context(), auth.SessionContextKey, claims)
	return req.WithContext(ctx)
}

// AssertErrorResponse checks that the response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc                 func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error)
	LogoutFunc                func(ctx context.Context, claims *models.SessionClaims) error
	RequestPasswordResetFunc  func(ctx context.Context, email string) error
	ValidateResetTokenFunc    func(ctx context.Context, token string) (*services.ResetTokenInfo, error)
	CompletePasswordResetFunc func(ctx context.Context, token, newPassword string) error
	ChangePasswordFunc        func(ctx context.Context, accountID, oldPassword, newPassword string) error
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, ipAddress, userAgent)
	}
	return nil, &models.CredentialsError{AttemptsRemaining: -1}
}

func (m *MockAuthService) Logout(ctx context.Context, claims *models.SessionClaims) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, claims)
	}
	return nil
}

func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, email)
	}
	return nil
}

func (m *MockAuthService) ValidateResetToken(ctx context.Context, token string) (*services.ResetTokenInfo, error) {
	if m.ValidateResetTokenFunc != nil {
		return m.ValidateResetTokenFunc(ctx, token)
	}
	return nil, models.ErrInvalidResetToken
}

func (m *MockAuthService) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if m.CompletePasswordResetFunc != nil {
		return m.CompletePasswordResetFunc(ctx, token, newPassword)
	}
	return models.ErrInvalidResetToken
}

func (m *MockAuthService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, accountID, oldPassword, newPassword)
	}
	return nil
}

// MockAccountService implements AccountServiceInterface for testing
type MockAccountService struct {
	GetAccountByIDFunc    func(ctx context.Context, id string) (*services.AccountResponse, error)
	ListAccountsFunc      func(ctx context.Context, limit, offset int) ([]*services.AccountResponse, error)
	CreateAccountFunc     func(ctx context.Context, account *models.Account, password, actorID string) (*services.AccountResponse, error)
	DeactivateAccountFunc func(ctx context.Context, id, actorID string) error
}

func (m *MockAccountService) GetAccountByID(ctx context.Context, id string) (*services.AccountResponse, error) {
	if m.GetAccountByIDFunc != nil {
		return m.GetAccountByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountService) ListAccounts(ctx context.Context, limit, offset int) ([]*services.AccountResponse, error) {
	if m.ListAccountsFunc != nil {
		return m.ListAccountsFunc(ctx, limit, offset)
	}
	return []*services.AccountResponse{}, nil
}

func (m *MockAccountService) CreateAccount(ctx context.Context, account *models.Account, password, actorID string) (*services.AccountResponse, error) {
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, account, password, actorID)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountService) DeactivateAccount(ctx context.Context, id, actorID string) error {
	if m.DeactivateAccountFunc != nil {
		return m.DeactivateAccountFunc(ctx, id, actorID)
	}
	return nil
}

// NewTestLoginResult builds a LoginResult for handler tests
func NewTestLoginResult(accountID, email, name string) *services.LoginResult {
	return &services.LoginResult{
		Token: "signed-session-token",
		Account: &services.AccountResponse{
			ID:        accountID,
			Email:     email,
			Name:      name,
			Role:      string(models.RoleCorretor),
			CreatedAt: time.Now().Format(time.RFC3339),
		},
	}
}

func newTestAuthHandler(service AuthServiceInterface) *AuthHandler {
	return NewAuthHandler(service, 24*time.Hour, auth.CookieConfig{}, &pkghttp.IPConfig{})
}
