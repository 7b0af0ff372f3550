package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the signed payload of the session cookie. The authorization
// path trusts these claims until natural expiry; no account lookup happens
// per request.
type SessionClaims struct {
	AccountID  string `json:"account_id"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	Role       Role   `json:"role"`
	BrokerID   string `json:"broker_id,omitempty"`
	BrokerName string `json:"broker_name,omitempty"`
	jwt.RegisteredClaims
}
