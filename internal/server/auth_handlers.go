package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dgellow/movie-gateway/internal/apperr"
	"github.com/dgellow/movie-gateway/internal/auth"
	"github.com/dgellow/movie-gateway/internal/cookie"
	jsonwriter "github.com/dgellow/movie-gateway/internal/json"
	"github.com/dgellow/movie-gateway/internal/log"
	"github.com/dgellow/movie-gateway/internal/metrics"
	"github.com/dgellow/movie-gateway/internal/upstream"
)

const (
	// basicRealm is advertised when Basic credentials are refused
	basicRealm = "movie-gateway"

	// maxAuthBodySize limits sign-in and sign-up request bodies
	maxAuthBodySize = 1 << 20

	// localStrategy labels local sign-ins in metrics
	localStrategy = "local"
)

// CredentialVerifier authenticates local credentials
type CredentialVerifier interface {
	Authenticate(ctx context.Context, cred auth.Credential) (*auth.AuthResult, error)
}

// SignUpAPI creates accounts upstream
type SignUpAPI interface {
	SignUp(ctx context.Context, body io.Reader, contentType string) error
}

// SignInObserver counts sign-in outcomes
type SignInObserver interface {
	ObserveSignIn(strategy, outcome string)
}

// AuthHandlers dispatches every sign-in route to its strategy and turns the
// result into a cookie and a user object.
type AuthHandlers struct {
	local    CredentialVerifier
	signUp   SignUpAPI
	flows    map[string]auth.ProviderFlow
	states   *auth.StateCodec
	cookies  cookie.Policy
	observer SignInObserver
}

// NewAuthHandlers creates auth handlers. flows maps a provider route key to
// its flow and is never modified afterwards.
func NewAuthHandlers(
	local CredentialVerifier,
	signUp SignUpAPI,
	flows map[string]auth.ProviderFlow,
	states *auth.StateCodec,
	cookies cookie.Policy,
	observer SignInObserver,
) *AuthHandlers {
	return &AuthHandlers{
		local:    local,
		signUp:   signUp,
		flows:    flows,
		states:   states,
		cookies:  cookies,
		observer: observer,
	}
}

// signInRequest is the local sign-in body
type signInRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
	RememberMe bool   `json:"rememberMe"`
}

// SignInHandler handles POST /auth/sign-in. Credentials come from the JSON
// body, or from HTTP Basic auth when the body carries none.
func (h *AuthHandlers) SignInHandler(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSignInRequest(w, r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	cred := auth.Credential{Identifier: req.Identifier, Secret: req.Secret}
	fromBasic := false
	if cred.Identifier == "" && cred.Secret == "" {
		if user, pass, ok := r.BasicAuth(); ok {
			cred = auth.Credential{Identifier: user, Secret: pass}
			fromBasic = true
		}
	}

	result, err := h.local.Authenticate(r.Context(), cred)
	if err != nil {
		h.observe(localStrategy, err)
		if fromBasic && apperr.KindOf(err) == apperr.KindUnauthorized {
			w.Header().Set("WWW-Authenticate", jsonwriter.BasicChallenge(basicRealm))
		}
		apperr.Write(w, err)
		return
	}
	h.observe(localStrategy, nil)

	h.cookies.SetToken(w, result.Token, auth.SessionTTL(req.RememberMe))
	log.LogInfoWithFields("auth", "Local sign-in succeeded", map[string]any{
		"user_id":    result.User.ID,
		"rememberMe": req.RememberMe,
	})
	if err := jsonwriter.Write(w, result.User); err != nil {
		log.LogError("Failed to write sign-in response: %v", err)
	}
}

func decodeSignInRequest(w http.ResponseWriter, r *http.Request) (signInRequest, error) {
	var req signInRequest
	if r.Body == nil {
		return req, nil
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAuthBodySize))
	if err != nil {
		return req, apperr.BadRequest("Request body too large", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, apperr.BadRequest("Malformed JSON body", err)
	}
	return req, nil
}

// SignUpHandler handles POST /auth/sign-up by forwarding the body verbatim
func (h *AuthHandlers) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAuthBodySize))
	if err != nil {
		apperr.Write(w, apperr.BadRequest("Request body too large", err))
		return
	}

	if err := h.signUp.SignUp(r.Context(), bytes.NewReader(body), r.Header.Get("Content-Type")); err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			apperr.Write(w, apperr.Upstream(statusErr.Status, err))
			return
		}
		apperr.Write(w, apperr.Unexpected(err))
		return
	}

	if err := jsonwriter.WriteResponse(w, http.StatusCreated, "user created"); err != nil {
		log.LogError("Failed to write sign-up response: %v", err)
	}
}

// ProviderAuthHandler handles GET /auth/{provider}: it stores a signed state
// cookie and redirects to the provider.
func (h *AuthHandlers) ProviderAuthHandler(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("provider")
	flow, ok := h.flows[key]
	if !ok {
		apperr.Write(w, apperr.NotFound(fmt.Sprintf("Unknown provider %q", key)))
		return
	}

	cookieValue, nonce, verifier, err := h.states.Issue(key)
	if err != nil {
		apperr.Write(w, apperr.Unexpected(err))
		return
	}
	h.cookies.SetState(w, cookieValue, auth.OAuthStateExpiry)

	log.LogDebugWithFields("auth", "Redirecting to provider", map[string]any{
		"provider": key,
	})
	http.Redirect(w, r, flow.AuthURL(nonce, verifier), http.StatusFound)
}

// CallbackHandler returns the handler for the callback route of routeKey
func (h *AuthHandlers) CallbackHandler(routeKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.handleCallback(w, r, routeKey)
	}
}

func (h *AuthHandlers) handleCallback(w http.ResponseWriter, r *http.Request, routeKey string) {
	stateCookie, _ := cookie.GetState(r)
	h.cookies.ClearState(w)

	flow, ok := h.flows[routeKey]
	if !ok {
		apperr.Write(w, apperr.NotFound(fmt.Sprintf("Unknown provider %q", routeKey)))
		return
	}

	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		err := fmt.Errorf("provider returned error %q: %s", providerErr, query.Get("error_description"))
		h.fail(w, routeKey, apperr.Unauthorized(err))
		return
	}

	verifier, err := h.states.Verify(stateCookie, routeKey, query.Get("state"))
	if err != nil {
		h.fail(w, routeKey, apperr.Unauthorized(err))
		return
	}

	code := query.Get("code")
	if code == "" {
		err := errors.New("callback has no authorization code")
		h.fail(w, routeKey, apperr.Unauthorized(err))
		return
	}

	result, err := flow.Complete(r.Context(), code, verifier)
	if err != nil {
		h.fail(w, routeKey, err)
		return
	}
	h.observe(routeKey, nil)

	h.cookies.SetToken(w, result.Token, auth.DefaultSessionTTL)
	if err := jsonwriter.Write(w, result.User); err != nil {
		log.LogError("Failed to write callback response: %v", err)
	}
}

func (h *AuthHandlers) fail(w http.ResponseWriter, strategy string, err error) {
	h.observe(strategy, err)
	apperr.Write(w, err)
}

func (h *AuthHandlers) observe(strategy string, err error) {
	if h.observer == nil {
		return
	}
	switch {
	case err == nil:
		h.observer.ObserveSignIn(strategy, metrics.OutcomeSuccess)
	case apperr.KindOf(err) == apperr.KindUnauthorized:
		h.observer.ObserveSignIn(strategy, metrics.OutcomeFailure)
	default:
		h.observer.ObserveSignIn(strategy, metrics.OutcomeError)
	}
}
