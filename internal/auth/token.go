package auth

import (
	"fmt"
	"time"

	"github.com/extra1357/imobiliaria-str-sub001/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager signs and verifies session tokens. Tokens are bearer-style
// and immutable: once issued they stay valid until natural expiry unless a
// deny-list is configured (see denylist.go).
type TokenManager struct {
	secret     string
	sessionTTL time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, sessionTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     secret,
		sessionTTL: sessionTTL,
	}
}

// SessionTTL returns the configured session lifetime.
func (tm *TokenManager) SessionTTL() time.Duration {
	return tm.sessionTTL
}

// GenerateSessionToken creates a signed session token for the account,
// embedding its role and display attributes plus the linked broker identity
// when present.
func (tm *TokenManager) GenerateSessionToken(account *models.Account) (string, error) {
	now := time.Now()

	claims := &models.SessionClaims{
		AccountID: account.ID,
		Email:     account.Email,
		Name:      account.Name,
		Role:      account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   account.ID,
		},
	}

	if account.BrokerID != nil {
		claims.BrokerID = *account.BrokerID
	}
	if account.BrokerName != nil {
		claims.BrokerName = *account.BrokerName
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken verifies signature and expiry and returns the claims.
// An expired or tampered token is reported the same way as a malformed one.
func (tm *TokenManager) ValidateToken(tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthenticated
	}

	if claims.AccountID == "" {
		return nil, fmt.Errorf("invalid token: missing subject")
	}

	return claims, nil
}
