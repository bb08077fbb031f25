package cookie

import (
	"net/http"
	"time"

	"github.com/dgellow/movie-gateway/internal/log"
)

// Cookie names used by the gateway
const (
	TokenCookie = "token"
	StateCookie = "oauth_state"
)

// statePath scopes the OAuth state cookie to the provider routes
const statePath = "/auth"

// Policy holds the environment-dependent cookie flags
type Policy struct {
	// Dev drops HttpOnly and Secure from the token cookie so it can be
	// inspected over plain HTTP while developing.
	Dev bool
}

// SetToken sets the session token cookie
func (p Policy) SetToken(w http.ResponseWriter, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: !p.Dev,
		Secure:   !p.Dev,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})

	log.LogTraceWithFields("cookie", "Token cookie set", map[string]any{
		"maxAge": maxAge.String(),
		"secure": !p.Dev,
	})
}

// SetState sets the signed OAuth state cookie
func (p Policy) SetState(w http.ResponseWriter, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    value,
		Path:     statePath,
		HttpOnly: true,
		Secure:   !p.Dev,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

// ClearState removes the OAuth state cookie
func (p Policy) ClearState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    "",
		Path:     statePath,
		HttpOnly: true,
		Secure:   !p.Dev,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// Get retrieves a cookie value from the request
func Get(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// GetToken retrieves the session token cookie value
func GetToken(r *http.Request) (string, error) {
	return Get(r, TokenCookie)
}

// GetState retrieves the OAuth state cookie value
func GetState(r *http.Request) (string, error) {
	return Get(r, StateCookie)
}
