package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgellow/movie-gateway/internal/crypto"
	"golang.org/x/oauth2"
)

// OAuthStateExpiry is how long OAuth state parameters remain valid
const OAuthStateExpiry = 10 * time.Minute

// ErrStateMismatch is returned when a callback does not belong to the flow
// recorded in the state cookie.
var ErrStateMismatch = errors.New("oauth state mismatch")

// oauthState is carried in the signed state cookie between the initiate and
// callback requests.
type oauthState struct {
	Nonce    string `json:"nonce"`
	Provider string `json:"provider"`
	Verifier string `json:"verifier"`
}

// StateCodec mints and checks signed OAuth state
type StateCodec struct {
	signer crypto.TokenSigner
}

// NewStateCodec creates a codec keyed with signingKey
func NewStateCodec(signingKey []byte) *StateCodec {
	return &StateCodec{signer: crypto.NewTokenSigner(signingKey, OAuthStateExpiry)}
}

// Issue starts a flow for routeKey. It returns the cookie value, the nonce
// to send as the state parameter and the PKCE verifier.
func (c *StateCodec) Issue(routeKey string) (cookieValue, nonce, verifier string, err error) {
	nonce, err = crypto.GenerateSecureToken()
	if err != nil {
		return "", "", "", fmt.Errorf("generating state nonce: %w", err)
	}
	verifier = oauth2.GenerateVerifier()

	cookieValue, err = c.signer.Sign(oauthState{Nonce: nonce, Provider: routeKey, Verifier: verifier})
	if err != nil {
		return "", "", "", fmt.Errorf("signing state: %w", err)
	}
	return cookieValue, nonce, verifier, nil
}

// Verify checks a callback against the state cookie and returns the PKCE
// verifier of the flow.
func (c *StateCodec) Verify(cookieValue, routeKey, nonce string) (string, error) {
	if cookieValue == "" || nonce == "" {
		return "", ErrStateMismatch
	}

	var state oauthState
	if err := c.signer.Verify(cookieValue, &state); err != nil {
		return "", fmt.Errorf("verifying state cookie: %w", err)
	}
	if state.Provider != routeKey || state.Nonce != nonce {
		return "", ErrStateMismatch
	}
	return state.Verifier, nil
}
