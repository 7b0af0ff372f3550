package integration

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/extra1357/imobiliaria-str-sub001/internal/auth"
	"github.com/extra1357/imobiliaria-str-sub001/internal/models"
	"github.com/extra1357/imobiliaria-str-sub001/internal/repositories"
	"github.com/extra1357/imobiliaria-str-sub001/internal/services"
	pkglogger "github.com/extra1357/imobiliaria-str-sub001/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipUnlessIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests")
	}
}

func newIntegrationAuthService(db *TestDB, mailer services.ResetMailer) (*services.AuthService, *repositories.AccountRepository) {
	logger := slog.Default()
	accountRepo := repositories.NewAccountRepository(db.DB)
	auditRepo := repositories.NewAuditLogRepository(db.DB)

	svc := services.NewAuthService(
		accountRepo,
		auditRepo,
		auth.NewTokenManager("integration-test-secret-0123456789abcdef", 24*time.Hour),
		mailer,
		nil,
		nil,
		services.AuthPolicy{
			LockoutThreshold: 5,
			LockoutDuration:  15 * time.Minute,
			ResetTokenTTL:    time.Hour,
		},
		logger,
		pkglogger.NewAuditLogger(logger),
	)
	return svc, accountRepo
}

func TestLockoutFlow(t *testing.T) {
	skipUnlessIntegration(t)

	ctx := context.Background()
	db, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer db.Teardown(ctx)

	svc, accountRepo := newIntegrationAuthService(db, &services.MockResetMailer{})

	account, err := SeedAccount(ctx, db.Pool, "corretor@example.com", "senha-correta", models.RoleCorretor, true)
	require.NoError(t, err)

	// Four wrong passwords count failures but do not lock.
	for i := 0; i < 4; i++ {
		_, err := svc.Login(ctx, "corretor@example.com", "senha-errada", "10.0.0.1", "test")
		var credErr *models.CredentialsError
		require.ErrorAs(t, err, &credErr)
		assert.Equal(t, 5-(i+1), credErr.AttemptsRemaining)
	}

	// The fifth arms the lockout but still reads as a credential failure
	// with zero attempts remaining.
	_, err = svc.Login(ctx, "corretor@example.com", "senha-errada", "10.0.0.1", "test")
	var credErr *models.CredentialsError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, 0, credErr.AttemptsRemaining)

	// The correct password is rejected during the lockout window.
	_, err = svc.Login(ctx, "corretor@example.com", "senha-correta", "10.0.0.1", "test")
	var lockedErr *models.AccountLockedError
	require.ErrorAs(t, err, &lockedErr)
	assert.Greater(t, lockedErr.RemainingMinutes(), 0)

	// Simulate the window expiring, then log in and verify the counter reset.
	_, err = db.Pool.Exec(ctx, "UPDATE accounts SET locked_until = now() - interval '1 second' WHERE id = $1", account.ID)
	require.NoError(t, err)

	result, err := svc.Login(ctx, "corretor@example.com", "senha-correta", "10.0.0.1", "test")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	fresh, err := accountRepo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.FailedAttempts)
	assert.Nil(t, fresh.LockedUntil)
	assert.NotNil(t, fresh.LastLoginAt)
}

func TestPasswordResetFlow(t *testing.T) {
	skipUnlessIntegration(t)

	ctx := context.Background()
	db, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer db.Teardown(ctx)

	mailer := &services.MockResetMailer{}
	svc, _ := newIntegrationAuthService(db, mailer)

	_, err = SeedAccount(ctx, db.Pool, "gerente@example.com", "senha-antiga", models.RoleGerente, true)
	require.NoError(t, err)

	// Request a reset; the token reaches the mailer.
	require.NoError(t, svc.RequestPasswordReset(ctx, "gerente@example.com"))
	require.Len(t, mailer.SentTokens, 1)
	token := mailer.SentTokens[0]

	// The token validates without being consumed.
	info, err := svc.ValidateResetToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "gerente@example.com", info.Email)

	// Complete the reset and log in with the new password.
	require.NoError(t, svc.CompletePasswordReset(ctx, token, "senha-nova"))

	result, err := svc.Login(ctx, "gerente@example.com", "senha-nova", "10.0.0.1", "test")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	// The old password no longer works.
	_, err = svc.Login(ctx, "gerente@example.com", "senha-antiga", "10.0.0.1", "test")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	// The token is single-use.
	err = svc.CompletePasswordReset(ctx, token, "outra-senha")
	assert.ErrorIs(t, err, models.ErrInvalidResetToken)
}

func TestUnknownEmailIndistinguishable(t *testing.T) {
	skipUnlessIntegration(t)

	ctx := context.Background()
	db, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	defer db.Teardown(ctx)

	svc, _ := newIntegrationAuthService(db, &services.MockResetMailer{})

	_, err = SeedAccount(ctx, db.Pool, "existe@example.com", "senha-correta", models.RoleCorretor, true)
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, "naoexiste@example.com", "qualquer", "10.0.0.1", "test")
	_, wrongErr := svc.Login(ctx, "existe@example.com", "senha-errada", "10.0.0.1", "test")

	// Both failures unwrap to the same sentinel.
	assert.ErrorIs(t, unknownErr, models.ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, models.ErrInvalidCredentials)

	// The reset acknowledgement is silent for unknown emails too.
	assert.NoError(t, svc.RequestPasswordReset(ctx, "naoexiste@example.com"))
}
