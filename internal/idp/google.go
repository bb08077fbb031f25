package idp

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var googleDefaultScopes = []string{"openid", "email", "profile"}

// IDTokenValidator verifies a Google ID token for the given audience.
type IDTokenValidator func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleOIDCProvider signs users in with Google OpenID Connect. The
// profile comes from the verified ID token, not from an API call.
type GoogleOIDCProvider struct {
	codeFlow
	validate IDTokenValidator
}

// NewGoogleOIDCProvider creates a new Google OpenID Connect provider.
func NewGoogleOIDCProvider(clientID, clientSecret, redirectURI string, scopes []string) *GoogleOIDCProvider {
	if len(scopes) == 0 {
		scopes = googleDefaultScopes
	}
	return &GoogleOIDCProvider{
		codeFlow: codeFlow{
			config: oauth2.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				RedirectURL:  redirectURI,
				Scopes:       scopes,
				Endpoint:     google.Endpoint,
			},
			pkce: true,
		},
		validate: idtoken.Validate,
	}
}

// Kind returns the provider kind.
func (p *GoogleOIDCProvider) Kind() Kind {
	return KindGoogleOIDC
}

// AuthURL generates the authorization URL.
func (p *GoogleOIDCProvider) AuthURL(state, verifier string) string {
	return p.authURL(state, verifier)
}

// Exchange exchanges an authorization code for tokens.
func (p *GoogleOIDCProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	return p.exchange(ctx, code, verifier)
}

// Profile verifies the id_token returned with the access token.
func (p *GoogleOIDCProvider) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("no id_token in token response")
	}

	payload, err := p.validate(ctx, rawIDToken, p.config.ClientID)
	if err != nil {
		return nil, fmt.Errorf("invalid id_token: %w", err)
	}

	name, _ := payload.Claims["name"].(string)
	email, _ := payload.Claims["email"].(string)

	return &Profile{
		ProviderUserID: payload.Subject,
		DisplayName:    name,
		Email:          email,
	}, nil
}

// GoogleOAuthProvider signs users in with plain Google OAuth2 and reads the
// profile from the userinfo API.
type GoogleOAuthProvider struct {
	codeFlow
	apiBaseURL string // defaults to the client library endpoint, overridden in tests
}

// NewGoogleOAuthProvider creates a new Google OAuth2 provider.
func NewGoogleOAuthProvider(clientID, clientSecret, redirectURI string, scopes []string) *GoogleOAuthProvider {
	if len(scopes) == 0 {
		scopes = googleDefaultScopes
	}
	return &GoogleOAuthProvider{
		codeFlow: codeFlow{
			config: oauth2.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				RedirectURL:  redirectURI,
				Scopes:       scopes,
				Endpoint:     google.Endpoint,
			},
			pkce: true,
		},
	}
}

// Kind returns the provider kind.
func (p *GoogleOAuthProvider) Kind() Kind {
	return KindGoogleOAuth
}

// AuthURL generates the authorization URL.
func (p *GoogleOAuthProvider) AuthURL(state, verifier string) string {
	return p.authURL(state, verifier)
}

// Exchange exchanges an authorization code for tokens.
func (p *GoogleOAuthProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	return p.exchange(ctx, code, verifier)
}

// Profile fetches user information from Google's userinfo endpoint.
func (p *GoogleOAuthProvider) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	opts := []option.ClientOption{option.WithHTTPClient(p.config.Client(ctx, token))}
	if p.apiBaseURL != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(p.apiBaseURL, "/")+"/"))
	}

	svc, err := googleoauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	return &Profile{
		ProviderUserID: info.Id,
		DisplayName:    info.Name,
		Email:          info.Email,
	}, nil
}
