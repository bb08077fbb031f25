package idp

import (
	"fmt"
	"strings"

	"github.com/dgellow/movie-gateway/internal/config"
)

// NewProvider creates a Provider for one configured route. The redirect URI
// is the gateway base URL joined with the route's callback path.
func NewProvider(cfg *config.ProviderConfig, baseURL string) (Provider, error) {
	redirectURI := strings.TrimRight(baseURL, "/") + cfg.CallbackPath
	clientSecret := string(cfg.ClientSecret)

	var (
		provider Provider
		flow     *codeFlow
		apiURL   *string
	)
	switch Kind(cfg.Kind) {
	case KindGoogleOIDC:
		p := NewGoogleOIDCProvider(cfg.ClientID, clientSecret, redirectURI, cfg.Scopes)
		provider, flow = p, &p.codeFlow
	case KindGoogleOAuth:
		p := NewGoogleOAuthProvider(cfg.ClientID, clientSecret, redirectURI, cfg.Scopes)
		provider, flow, apiURL = p, &p.codeFlow, &p.apiBaseURL
	case KindTwitter:
		p := NewTwitterProvider(cfg.ClientID, clientSecret, redirectURI, cfg.Scopes)
		provider, flow, apiURL = p, &p.codeFlow, &p.apiBaseURL
	case KindLinkedIn:
		p := NewLinkedInProvider(cfg.ClientID, clientSecret, redirectURI, cfg.Scopes)
		provider, flow, apiURL = p, &p.codeFlow, &p.apiBaseURL
	case KindFacebook:
		p := NewFacebookProvider(cfg.ClientID, clientSecret, redirectURI, cfg.Scopes)
		provider, flow, apiURL = p, &p.codeFlow, &p.graphBaseURL
	default:
		return nil, fmt.Errorf("unknown provider kind: %s", cfg.Kind)
	}

	if e := cfg.Endpoints; e != nil {
		if e.AuthURL != "" {
			flow.config.Endpoint.AuthURL = e.AuthURL
		}
		if e.TokenURL != "" {
			flow.config.Endpoint.TokenURL = e.TokenURL
		}
		if e.APIURL != "" && apiURL != nil {
			*apiURL = strings.TrimRight(e.APIURL, "/")
		}
	}
	return provider, nil
}
