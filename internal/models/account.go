package models

import (
	"time"
)

// Account is an operator identity of the brokerage back office.
type Account struct {
	ID                  string
	Email               string // unique, stored lower-case
	PasswordHash        string
	Name                string
	Role                Role
	Active              bool
	FailedAttempts      int
	LockedUntil         *time.Time // lockout expiry, nil when not locked
	LastLoginAt         *time.Time
	ResetToken          *string
	ResetTokenExpiresAt *time.Time
	BrokerID            *string // set when the account is linked to a broker identity
	BrokerName          *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Locked reports whether the account has an unexpired lockout.
func (a *Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}
