package middleware

import (
	"net/http"
	"time"
)

// RefreshCookieName is the cookie that carries the refresh token on
// browser channels.
const RefreshCookieName = "refresh_token"

// SetRefreshCookie writes the refresh token as an HTTP-only, secure,
// same-site-strict cookie whose max-age matches the refresh TTL. Access
// tokens never travel in cookies.
func SetRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearRefreshCookie expires the refresh cookie immediately.
func ClearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// RefreshTokenFromRequest extracts the refresh token from the cookie.
// Non-browser clients send it in the JSON body instead, which handlers
// parse themselves.
func RefreshTokenFromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
