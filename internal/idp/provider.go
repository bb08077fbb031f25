package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// Kind identifies a provider integration
type Kind string

const (
	KindGoogleOIDC  Kind = "google-oidc"
	KindGoogleOAuth Kind = "google-oauth"
	KindTwitter     Kind = "twitter"
	KindLinkedIn    Kind = "linkedin"
	KindFacebook    Kind = "facebook"
)

// Profile is the normalized identity returned by every provider
type Profile struct {
	ProviderUserID string
	DisplayName    string
	Email          string
}

// Provider abstracts identity provider operations.
type Provider interface {
	// Kind returns the provider kind.
	Kind() Kind

	// AuthURL generates the authorization URL. Providers that support PKCE
	// derive the S256 challenge from verifier; the others ignore it.
	AuthURL(state, verifier string) string

	// Exchange exchanges an authorization code for tokens.
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)

	// Profile fetches or verifies the user's identity.
	Profile(ctx context.Context, token *oauth2.Token) (*Profile, error)
}

// codeFlow is the authorization code plumbing shared by all adapters.
type codeFlow struct {
	config oauth2.Config
	pkce   bool
	// authParams are extra provider-specific authorization parameters.
	authParams []oauth2.AuthCodeOption
}

func (f *codeFlow) authURL(state, verifier string) string {
	opts := append([]oauth2.AuthCodeOption{}, f.authParams...)
	if f.pkce && verifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	return f.config.AuthCodeURL(state, opts...)
}

func (f *codeFlow) exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	var opts []oauth2.AuthCodeOption
	if f.pkce && verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	token, err := f.config.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	return token, nil
}

// getJSON fetches url with the token-bound client and decodes the body into v
func getJSON(client *http.Client, url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("failed to get %s: status %d: %s", url, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return nil
}
