package idp

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// twitterEndpoint is the OAuth 2.0 authorization code endpoint pair.
// Twitter requires PKCE and client credentials in the Authorization header.
var twitterEndpoint = oauth2.Endpoint{
	AuthURL:   "https://twitter.com/i/oauth2/authorize",
	TokenURL:  "https://api.twitter.com/2/oauth2/token",
	AuthStyle: oauth2.AuthStyleInHeader,
}

// TwitterProvider implements the Provider interface for Twitter (X).
type TwitterProvider struct {
	codeFlow
	apiBaseURL string // defaults to https://api.twitter.com, can be overridden for testing
}

type twitterUserResponse struct {
	Data struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
}

// NewTwitterProvider creates a new Twitter OAuth 2.0 provider.
func NewTwitterProvider(clientID, clientSecret, redirectURI string, scopes []string) *TwitterProvider {
	if len(scopes) == 0 {
		scopes = []string{"users.read", "tweet.read"}
	}
	return &TwitterProvider{
		codeFlow: codeFlow{
			config: oauth2.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				RedirectURL:  redirectURI,
				Scopes:       scopes,
				Endpoint:     twitterEndpoint,
			},
			pkce: true,
		},
		apiBaseURL: "https://api.twitter.com",
	}
}

// Kind returns the provider kind.
func (p *TwitterProvider) Kind() Kind {
	return KindTwitter
}

// AuthURL generates the authorization URL.
func (p *TwitterProvider) AuthURL(state, verifier string) string {
	return p.authURL(state, verifier)
}

// Exchange exchanges an authorization code for tokens.
func (p *TwitterProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	return p.exchange(ctx, code, verifier)
}

// Profile fetches the authenticated user. Twitter never returns an email
// address, so the handle stands in for one.
func (p *TwitterProvider) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	var user twitterUserResponse
	if err := getJSON(p.config.Client(ctx, token), p.apiBaseURL+"/2/users/me", &user); err != nil {
		return nil, err
	}
	if user.Data.ID == "" {
		return nil, fmt.Errorf("twitter user response has no id")
	}

	return &Profile{
		ProviderUserID: user.Data.ID,
		DisplayName:    user.Data.Name,
		Email:          user.Data.Username + "@twitter.com",
	}, nil
}
