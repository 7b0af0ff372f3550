package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/extra1357/imobiliaria-str-sub001/internal/models"
	"github.com/extra1357/imobiliaria-str-sub001/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestAccountHandler_List(t *testing.T) {
	var gotLimit, gotOffset int
	mockService := &MockAccountService{
		ListAccountsFunc: func(ctx context.Context, limit, offset int) ([]*services.AccountResponse, error) {
			gotLimit, gotOffset = limit, offset
			return []*services.AccountResponse{
				{ID: "acc123", Email: "ana@example.com", Name: "Ana Souza", Role: "corretor"},
			}, nil
		},
	}
	handler := NewAccountHandler(mockService)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/accounts", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, gotLimit)
	assert.Equal(t, 0, gotOffset)
	assert.Contains(t, w.Body.String(), "ana@example.com")
}

func TestAccountHandler_List_ClampsPagination(t *testing.T) {
	var gotLimit int
	mockService := &MockAccountService{
		ListAccountsFunc: func(ctx context.Context, limit, offset int) ([]*services.AccountResponse, error) {
			gotLimit = limit
			return []*services.AccountResponse{}, nil
		},
	}
	handler := NewAccountHandler(mockService)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/accounts?limit=9999&offset=-5", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, gotLimit)
}

func TestAccountHandler_Get(t *testing.T) {
	mockService := &MockAccountService{
		GetAccountByIDFunc: func(ctx context.Context, id string) (*services.AccountResponse, error) {
			if id == "acc123" {
				return &services.AccountResponse{ID: "acc123", Email: "ana@example.com", Name: "Ana Souza"}, nil
			}
			return nil, models.ErrNotFound
		},
	}
	handler := NewAccountHandler(mockService)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/admin/accounts/acc123", nil), "id", "acc123")
	w := httptest.NewRecorder()
	handler.Get(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "acc123")

	req = withURLParam(httptest.NewRequest(http.MethodGet, "/api/admin/accounts/missing", nil), "id", "missing")
	w = httptest.NewRecorder()
	handler.Get(w, req)
	AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
}

func TestAccountHandler_Create_Success(t *testing.T) {
	mockService := &MockAccountService{
		CreateAccountFunc: func(ctx context.Context, account *models.Account, password, actorID string) (*services.AccountResponse, error) {
			assert.Equal(t, "novo@example.com", account.Email)
			assert.Equal(t, models.RoleCorretor, account.Role)
			assert.Equal(t, "admin1", actorID)
			require.NotNil(t, account.BrokerID)
			assert.Equal(t, "broker42", *account.BrokerID)
			return &services.AccountResponse{ID: "acc999", Email: account.Email, Name: account.Name, Role: string(account.Role)}, nil
		},
	}
	handler := NewAccountHandler(mockService)

	req := NewTestRequest(t, http.MethodPost, "/api/admin/accounts", CreateAccountRequest{
		Email:    " Novo@Example.com ",
		Name:     "Novo Corretor",
		Password: "senha-inicial",
		Role:     "corretor",
		BrokerID: "broker42",
	})
	req = WithSessionContext(req, "admin1", "admin@example.com", models.RoleAdmin)
	w := httptest.NewRecorder()
	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "acc999")
	assert.NotContains(t, w.Body.String(), "senha-inicial")
}

func TestAccountHandler_Create_DuplicateEmail(t *testing.T) {
	mockService := &MockAccountService{
		CreateAccountFunc: func(ctx context.Context, account *models.Account, password, actorID string) (*services.AccountResponse, error) {
			return nil, models.ErrConflict
		},
	}
	handler := NewAccountHandler(mockService)

	req := NewTestRequest(t, http.MethodPost, "/api/admin/accounts", CreateAccountRequest{
		Email:    "novo@example.com",
		Name:     "Novo",
		Password: "senha-inicial",
		Role:     "corretor",
	})
	req = WithSessionContext(req, "admin1", "admin@example.com", models.RoleAdmin)
	w := httptest.NewRecorder()
	handler.Create(w, req)

	AssertErrorResponse(t, w, http.StatusConflict, "conflict")
}

func TestAccountHandler_Create_InvalidRole(t *testing.T) {
	handler := NewAccountHandler(&MockAccountService{})

	req := NewTestRequest(t, http.MethodPost, "/api/admin/accounts", CreateAccountRequest{
		Email:    "novo@example.com",
		Name:     "Novo",
		Password: "senha-inicial",
		Role:     "diretor",
	})
	req = WithSessionContext(req, "admin1", "admin@example.com", models.RoleAdmin)
	w := httptest.NewRecorder()
	handler.Create(w, req)

	AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestAccountHandler_Create_WeakPassword(t *testing.T) {
	mockService := &MockAccountService{
		CreateAccountFunc: func(ctx context.Context, account *models.Account, password, actorID string) (*services.AccountResponse, error) {
			return nil, models.ErrWeakPassword
		},
	}
	handler := NewAccountHandler(mockService)

	req := NewTestRequest(t, http.MethodPost, "/api/admin/accounts", CreateAccountRequest{
		Email:    "novo@example.com",
		Name:     "Novo",
		Password: "curta12",
		Role:     "corretor",
	})
	req = WithSessionContext(req, "admin1", "admin@example.com", models.RoleAdmin)
	w := httptest.NewRecorder()
	handler.Create(w, req)

	AssertErrorResponse(t, w, http.StatusBadRequest, "weak_password")
}

func TestAccountHandler_Deactivate(t *testing.T) {
	var deactivatedID string
	mockService := &MockAccountService{
		DeactivateAccountFunc: func(ctx context.Context, id, actorID string) error {
			deactivatedID = id
			return nil
		},
	}
	handler := NewAccountHandler(mockService)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/admin/accounts/acc123", nil), "id", "acc123")
	req = WithSessionContext(req, "admin1", "admin@example.com", models.RoleAdmin)
	w := httptest.NewRecorder()
	handler.Deactivate(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "acc123", deactivatedID)
}

func TestAccountHandler_Deactivate_RefusesSelf(t *testing.T) {
	mockService := &MockAccountService{
		DeactivateAccountFunc: func(ctx context.Context, id, actorID string) error {
			return models.ErrForbidden
		},
	}
	handler := NewAccountHandler(mockService)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/admin/accounts/admin1", nil), "id", "admin1")
	req = WithSessionContext(req, "admin1", "admin@example.com", models.RoleAdmin)
	w := httptest.NewRecorder()
	handler.Deactivate(w, req)

	AssertErrorResponse(t, w, http.StatusForbidden, "forbidden")
}
