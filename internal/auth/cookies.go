package auth

import (
	"net/http"
	"time"
)

// SessionCookieName is the single canonical session cookie. The legacy login
// surface with its own cookie name was retired when the endpoints were
// unified.
const SessionCookieName = "imob_session"

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain string // Empty string = current host only
	Secure bool   // HTTPS only, set in production
}

// SetSessionCookie sets the session token as an httpOnly SameSite=Lax cookie.
func SetSessionCookie(w http.ResponseWriter, token string, maxAge time.Duration, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.Domain,
		Expires:  time.Now().Add(maxAge),
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true, // prevents JavaScript access
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)
}

// ClearSessionCookie deletes the session cookie. Server-side the token stays
// valid until expiry unless a deny-list is configured.
func ClearSessionCookie(w http.ResponseWriter, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1, // Negative MaxAge deletes the cookie
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)
}

// GetSessionCookie retrieves the session token from the request cookies.
func GetSessionCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
