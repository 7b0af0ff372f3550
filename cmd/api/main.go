package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/extra1357/imobiliaria-str-sub001/internal/auth"
	"github.com/extra1357/imobiliaria-str-sub001/internal/background"
	"github.com/extra1357/imobiliaria-str-sub001/internal/config"
	"github.com/extra1357/imobiliaria-str-sub001/internal/database"
	"github.com/extra1357/imobiliaria-str-sub001/internal/handlers"
	middlewareCustom "github.com/extra1357/imobiliaria-str-sub001/internal/middleware"
	"github.com/extra1357/imobiliaria-str-sub001/internal/models"
	"github.com/extra1357/imobiliaria-str-sub001/internal/repositories"
	"github.com/extra1357/imobiliaria-str-sub001/internal/routes"
	"github.com/extra1357/imobiliaria-str-sub001/internal/services"
	pkgauth "github.com/extra1357/imobiliaria-str-sub001/pkg/auth"
	pkghttp "github.com/extra1357/imobiliaria-str-sub001/pkg/http"
	pkglogger "github.com/extra1357/imobiliaria-str-sub001/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Timing delay for failed logins
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayMs,
		RandomDelayMs: cfg.Auth.TimingJitterMs,
	})

	// Optional session deny-list; without Redis, logout is cookie-only.
	var denyList *auth.RedisDenyList
	if cfg.Redis.URL != "" {
		denyList, err = auth.NewRedisDenyList(cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer denyList.Close()
		logger.Info("session deny-list enabled")
	} else {
		logger.Info("REDIS_URL not set, session deny-list disabled")
	}

	// AWS SES email service
	emailService, err := services.NewAWSSESEmailService(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		cfg.Email.ResetURLBase,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	policy := services.AuthPolicy{
		LockoutThreshold: cfg.Auth.LockoutThreshold,
		LockoutDuration:  cfg.Auth.LockoutDuration,
		ResetTokenTTL:    cfg.Auth.ResetTokenTTL,
	}

	var denyListForService services.SessionDenyList
	var denyListForGate auth.DenyListChecker
	if denyList != nil {
		denyListForService = denyList
		denyListForGate = denyList
	}

	authService := services.NewAuthService(
		accountRepo, auditRepo, tokenManager, emailService,
		denyListForService, timingDelay, policy, logger, auditLogger,
	)
	accountService := services.NewAccountService(accountRepo, logger, auditLogger)

	// Initialize handlers
	cookieConfig := auth.CookieConfig{
		Domain: os.Getenv("COOKIE_DOMAIN"),
		Secure: cfg.Server.Env == "production",
	}
	ipConfig := &pkghttp.IPConfig{
		TrustedProxies: splitCSV(os.Getenv("TRUSTED_PROXIES")),
	}

	authHandler := handlers.NewAuthHandler(authService, cfg.Auth.SessionTTL, cookieConfig, ipConfig)
	accountHandler := handlers.NewAccountHandler(accountService)

	// Bootstrap first admin account if configured
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminAccount(bootCtx, accountRepo, logger); err != nil {
		logger.Error("failed to ensure admin account", slog.Any("error", err))
	}
	bootCancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.NewCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// The authorization gate wraps everything; only the static allow-list
	// passes through unauthenticated.
	router.Use(auth.Authorize(tokenManager, routes.PublicPaths(), denyListForGate))

	routes.RegisterRoutes(router, authHandler, accountHandler)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Background cleanup of expired reset tokens and old audit entries
	cleanupManager := background.NewCleanupManager(
		accountRepo, auditRepo, logger,
		cfg.Auth.CleanupInterval, cfg.Auth.AuditRetention,
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ensureAdminAccount creates the first admin account if ADMIN_EMAIL and
// ADMIN_PASSWORD are set. Runs on every boot, no-op when the email exists.
func ensureAdminAccount(ctx context.Context, accountRepo *repositories.AccountRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin account creation")
		return nil
	}

	_, err := accountRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin account already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.Account{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Name:         "Administrador",
		Role:         models.RoleAdmin,
		Active:       true,
	}

	if _, err := accountRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	logger.Info("admin account created successfully")
	return nil
}
