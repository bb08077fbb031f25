package idp

import (
	"strings"
	"testing"

	"github.com/dgellow/movie-gateway/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		kind     config.ProviderKind
		wantKind Kind
	}{
		{config.ProviderKindGoogleOIDC, KindGoogleOIDC},
		{config.ProviderKindGoogleOAuth, KindGoogleOAuth},
		{config.ProviderKindTwitter, KindTwitter},
		{config.ProviderKindLinkedIn, KindLinkedIn},
		{config.ProviderKindFacebook, KindFacebook},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			provider, err := NewProvider(&config.ProviderConfig{
				Kind:         tt.kind,
				ClientID:     "client-id",
				ClientSecret: config.Secret("client-secret"),
				CallbackPath: "/auth/" + string(tt.kind) + "/callback",
			}, "https://gateway.example.com/")
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, provider.Kind())
			assert.Contains(t, provider.AuthURL("s", "v"), "redirect_uri=https%3A%2F%2Fgateway.example.com%2Fauth%2F"+string(tt.kind)+"%2Fcallback")
		})
	}
}

func TestNewProvider_UnknownKind(t *testing.T) {
	_, err := NewProvider(&config.ProviderConfig{Kind: "myspace"}, "https://gateway.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider kind")
}

func TestNewProvider_Endpoints(t *testing.T) {
	provider, err := NewProvider(&config.ProviderConfig{
		Kind:         config.ProviderKindFacebook,
		ClientID:     "client-id",
		ClientSecret: config.Secret("client-secret"),
		CallbackPath: "/auth/facebook/callback",
		Endpoints: &config.ProviderEndpoints{
			AuthURL:  "http://idp.local/authorize",
			TokenURL: "http://idp.local/token",
			APIURL:   "http://idp.local/graph/",
		},
	}, "https://gateway.example.com")
	require.NoError(t, err)

	fb := provider.(*FacebookProvider)
	assert.Equal(t, "http://idp.local/authorize", fb.config.Endpoint.AuthURL)
	assert.Equal(t, "http://idp.local/token", fb.config.Endpoint.TokenURL)
	assert.Equal(t, "http://idp.local/graph", fb.graphBaseURL)
	assert.True(t, strings.HasPrefix(fb.AuthURL("s", "v"), "http://idp.local/authorize?"))

	t.Run("partial override keeps defaults", func(t *testing.T) {
		provider, err := NewProvider(&config.ProviderConfig{
			Kind:         config.ProviderKindTwitter,
			ClientID:     "client-id",
			CallbackPath: "/auth/twitter/callback",
			Endpoints:    &config.ProviderEndpoints{APIURL: "http://api.local"},
		}, "https://gateway.example.com")
		require.NoError(t, err)

		tw := provider.(*TwitterProvider)
		assert.Equal(t, twitterEndpoint.AuthURL, tw.config.Endpoint.AuthURL)
		assert.Equal(t, "http://api.local", tw.apiBaseURL)
	})
}
