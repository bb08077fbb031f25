package idp

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

// LinkedInProvider implements the Provider interface for LinkedIn.
// LinkedIn splits the profile and the email address across two endpoints.
type LinkedInProvider struct {
	codeFlow
	apiBaseURL string // defaults to https://api.linkedin.com, can be overridden for testing
}

type linkedInProfileResponse struct {
	ID                 string `json:"id"`
	LocalizedFirstName string `json:"localizedFirstName"`
	LocalizedLastName  string `json:"localizedLastName"`
}

type linkedInEmailResponse struct {
	Elements []struct {
		Handle struct {
			EmailAddress string `json:"emailAddress"`
		} `json:"handle~"`
	} `json:"elements"`
}

// NewLinkedInProvider creates a new LinkedIn OAuth2 provider.
func NewLinkedInProvider(clientID, clientSecret, redirectURI string, scopes []string) *LinkedInProvider {
	if len(scopes) == 0 {
		scopes = []string{"r_emailaddress", "r_liteprofile"}
	}
	return &LinkedInProvider{
		codeFlow: codeFlow{
			config: oauth2.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				RedirectURL:  redirectURI,
				Scopes:       scopes,
				Endpoint:     linkedin.Endpoint,
			},
		},
		apiBaseURL: "https://api.linkedin.com",
	}
}

// Kind returns the provider kind.
func (p *LinkedInProvider) Kind() Kind {
	return KindLinkedIn
}

// AuthURL generates the authorization URL.
func (p *LinkedInProvider) AuthURL(state, verifier string) string {
	return p.authURL(state, verifier)
}

// Exchange exchanges an authorization code for tokens.
func (p *LinkedInProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	return p.exchange(ctx, code, verifier)
}

// Profile fetches the lite profile and the primary email address.
func (p *LinkedInProvider) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	client := p.config.Client(ctx, token)

	var me linkedInProfileResponse
	if err := getJSON(client, p.apiBaseURL+"/v2/me", &me); err != nil {
		return nil, err
	}
	if me.ID == "" {
		return nil, fmt.Errorf("linkedin profile response has no id")
	}

	var emails linkedInEmailResponse
	if err := getJSON(client, p.apiBaseURL+"/v2/emailAddress?q=members&projection=(elements*(handle~))", &emails); err != nil {
		return nil, err
	}

	var email string
	if len(emails.Elements) > 0 {
		email = emails.Elements[0].Handle.EmailAddress
	}

	return &Profile{
		ProviderUserID: me.ID,
		DisplayName:    strings.TrimSpace(me.LocalizedFirstName + " " + me.LocalizedLastName),
		Email:          email,
	}, nil
}
