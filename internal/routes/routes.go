package routes

import (
	"github.com/extra1357/imobiliaria-str-sub001/internal/auth"
	"github.com/extra1357/imobiliaria-str-sub001/internal/handlers"
	"github.com/extra1357/imobiliaria-str-sub001/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// PublicPaths returns the static allow-list of paths that skip the
// authorization gate. Everything not listed requires a valid session.
func PublicPaths() *auth.PublicPaths {
	return auth.NewPublicPaths(
		[]string{
			"/health",
			"/api/auth/login",
			"/api/auth/password/forgot",
		},
		[]string{
			// GET validation and POST completion, both keyed by the token
			// itself rather than a session.
			"/api/auth/password/reset",
		},
	)
}

// RegisterRoutes registers all application routes. The authorization gate is
// installed router-wide by the caller; the groups here only add per-route
// concerns such as rate limits.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	accountHandler *handlers.AccountHandler,
) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Credential-bearing public endpoints get a per-IP budget.
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimitConfig))
		r.Post("/api/auth/login", authHandler.Login)
		r.Post("/api/auth/password/forgot", authHandler.ForgotPassword)
		r.Get("/api/auth/password/reset", authHandler.ValidateResetToken)
		r.Post("/api/auth/password/reset", authHandler.ResetPassword)
	})

	// Authenticated session endpoints
	router.Delete("/api/auth/logout", authHandler.Logout)
	router.Get("/api/auth/session", authHandler.Session)
	router.Post("/api/auth/password/change", authHandler.ChangePassword)

	// Admin subtree; the authorization gate already enforces the admin role
	// for everything under /api/admin.
	router.Route("/api/admin/accounts", func(r chi.Router) {
		r.Get("/", accountHandler.List)
		r.Post("/", accountHandler.Create)
		r.Get("/{id}", accountHandler.Get)
		r.Delete("/{id}", accountHandler.Deactivate)
	})
}
