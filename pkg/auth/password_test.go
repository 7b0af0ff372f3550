package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("minha-senha")
	require.NoError(t, err)
	assert.NotEqual(t, "minha-senha", hash)

	assert.NoError(t, ComparePassword(hash, "minha-senha"))
	assert.Error(t, ComparePassword(hash, "outra-senha"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestGenerateResetToken(t *testing.T) {
	token, err := GenerateResetToken()
	require.NoError(t, err)

	// URL-safe: usable as a query parameter without escaping.
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")
	// 32 bytes base64url without padding is 43 characters.
	assert.Len(t, token, 43)

	other, err := GenerateResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestValidatePasswordLength(t *testing.T) {
	assert.NoError(t, ValidatePasswordLength("123456", MinResetPasswordLen))
	assert.Error(t, ValidatePasswordLength("12345", MinResetPasswordLen))

	assert.NoError(t, ValidatePasswordLength("12345678", MinNewPasswordLen))
	assert.Error(t, ValidatePasswordLength("1234567", MinNewPasswordLen))

	long := strings.Repeat("a", MaxPasswordLen+1)
	assert.Error(t, ValidatePasswordLength(long, MinResetPasswordLen))
}
