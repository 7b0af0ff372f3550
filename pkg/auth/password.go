package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost          = 12
	ResetTokenBytes     = 32 // 256 bits of entropy, URL-safe encoded
	MinResetPasswordLen = 6  // minimum for a reset-flow password
	MinNewPasswordLen   = 8  // minimum for an authenticated password change
	MaxPasswordLen      = 128
)

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// GenerateResetToken returns a URL-safe random token suitable for a
// password-reset query parameter.
func GenerateResetToken() (string, error) {
	bytes := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// ValidatePasswordLength enforces the minimum length for the given flow.
// The two flows carry different minimums on purpose: the reset flow keeps the
// historical minimum of 6, an authenticated change requires 8.
func ValidatePasswordLength(password string, min int) error {
	if len(password) < min {
		return fmt.Errorf("password must be at least %d characters", min)
	}
	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLen)
	}
	return nil
}
