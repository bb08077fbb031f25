package idp

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

// FacebookProvider implements the Provider interface for Facebook Login.
type FacebookProvider struct {
	codeFlow
	graphBaseURL string // defaults to https://graph.facebook.com, can be overridden for testing
}

type facebookUserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewFacebookProvider creates a new Facebook OAuth2 provider.
func NewFacebookProvider(clientID, clientSecret, redirectURI string, scopes []string) *FacebookProvider {
	if len(scopes) == 0 {
		scopes = []string{"email"}
	}
	return &FacebookProvider{
		codeFlow: codeFlow{
			config: oauth2.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				RedirectURL:  redirectURI,
				Scopes:       scopes,
				Endpoint:     facebook.Endpoint,
			},
		},
		graphBaseURL: "https://graph.facebook.com",
	}
}

// Kind returns the provider kind.
func (p *FacebookProvider) Kind() Kind {
	return KindFacebook
}

// AuthURL generates the authorization URL.
func (p *FacebookProvider) AuthURL(state, verifier string) string {
	return p.authURL(state, verifier)
}

// Exchange exchanges an authorization code for tokens.
func (p *FacebookProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	return p.exchange(ctx, code, verifier)
}

// Profile fetches id, name and email from the Graph API.
func (p *FacebookProvider) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	var user facebookUserResponse
	if err := getJSON(p.config.Client(ctx, token), p.graphBaseURL+"/me?fields=id,name,email", &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("facebook user response has no id")
	}

	return &Profile{
		ProviderUserID: user.ID,
		DisplayName:    user.Name,
		Email:          user.Email,
	}, nil
}
