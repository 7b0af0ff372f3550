package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/extra1357/imobiliaria-str-sub001/internal/models"
	pkghttp "github.com/extra1357/imobiliaria-str-sub001/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// SessionContextKey is the key for storing verified session claims in context
	SessionContextKey contextKey = "session"
	// rawTokenContextKey holds the raw token string, needed for logout revocation
	rawTokenContextKey contextKey = "session_token"
)

// PublicPaths is the process-wide static allow-list. Exact entries match the
// full path; prefix entries match any path beneath them.
type PublicPaths struct {
	Exact    map[string]struct{}
	Prefixes []string
}

// NewPublicPaths builds an allow-list from exact and prefix entries.
func NewPublicPaths(exact []string, prefixes []string) *PublicPaths {
	set := make(map[string]struct{}, len(exact))
	for _, p := range exact {
		set[p] = struct{}{}
	}
	return &PublicPaths{Exact: set, Prefixes: prefixes}
}

// Contains reports whether the path skips authorization entirely.
func (pp *PublicPaths) Contains(path string) bool {
	if _, ok := pp.Exact[path]; ok {
		return true
	}
	for _, prefix := range pp.Prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// DenyListChecker reports whether a session id (jti) has been revoked.
// A nil checker means no deny-list is configured and tokens stay valid
// until natural expiry.
type DenyListChecker interface {
	IsDenied(ctx context.Context, jti string) (bool, error)
}

// Authorize gates every request. Allow-listed paths pass through untouched;
// everything else needs a valid session cookie. The decision trusts the
// signed claims and performs no account lookup, so role changes and
// deactivation take effect only when the token expires.
func Authorize(tm *TokenManager, public *PublicPaths, denyList DenyListChecker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public.Contains(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, err := GetSessionCookie(r)
			if err != nil || tokenString == "" {
				writeUnauthenticated(w, r)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				writeUnauthenticated(w, r)
				return
			}

			if denyList != nil && claims.ID != "" {
				denied, err := denyList.IsDenied(r.Context(), claims.ID)
				if err == nil && denied {
					writeUnauthenticated(w, r)
					return
				}
				// Deny-list errors fail open: the signed token alone decides.
			}

			if strings.HasPrefix(r.URL.Path, AdminPathPrefix) && !claims.Role.Meets(models.RoleAdmin) {
				pkghttp.WriteForbidden(w, "insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, claims)
			ctx = context.WithValue(ctx, rawTokenContextKey, tokenString)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminPathPrefix marks the route subtree that requires the admin role.
const AdminPathPrefix = "/api/admin"

// RequireRole enforces a minimum role from the verified claims. Used for
// handler-level guards beyond the admin path prefix.
func RequireRole(min models.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetSessionFromContext(r)
			if claims == nil {
				writeUnauthenticated(w, r)
				return
			}

			if !claims.Role.Meets(min) {
				pkghttp.WriteForbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeUnauthenticated answers API requests with a JSON 401 and page
// requests with a redirect to the login page.
func writeUnauthenticated(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		pkghttp.WriteUnauthorized(w, "authentication required")
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func isAPIRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// GetSessionFromContext extracts verified session claims from request context
func GetSessionFromContext(r *http.Request) *models.SessionClaims {
	claims, ok := r.Context().Value(SessionContextKey).(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

// GetTokenFromContext extracts the raw session token from request context
func GetTokenFromContext(r *http.Request) string {
	token, ok := r.Context().Value(rawTokenContextKey).(string)
	if !ok {
		return ""
	}
	return token
}
