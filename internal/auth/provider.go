package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgellow/movie-gateway/internal/apperr"
	"github.com/dgellow/movie-gateway/internal/idp"
	"github.com/dgellow/movie-gateway/internal/log"
	"github.com/dgellow/movie-gateway/internal/upstream"
)

// exchangeTimeout bounds the provider code exchange
const exchangeTimeout = 30 * time.Second

// ProviderFlow is what the dispatcher needs from a provider route
type ProviderFlow interface {
	// AuthURL returns the provider authorization URL for state and verifier.
	AuthURL(state, verifier string) string
	// Complete turns an authorization code into an AuthResult.
	Complete(ctx context.Context, code, verifier string) (*AuthResult, error)
}

// SignProviderAPI registers provider identities with the upstream API
type SignProviderAPI interface {
	SignProvider(ctx context.Context, user upstream.ProviderUser) ([]byte, error)
}

// ProviderStrategy runs one identity provider and maps its profile onto an
// upstream account.
type ProviderStrategy struct {
	provider idp.Provider
	api      SignProviderAPI
}

// NewProviderStrategy creates a new provider strategy
func NewProviderStrategy(provider idp.Provider, api SignProviderAPI) *ProviderStrategy {
	return &ProviderStrategy{provider: provider, api: api}
}

// AuthURL returns the provider authorization URL
func (s *ProviderStrategy) AuthURL(state, verifier string) string {
	return s.provider.AuthURL(state, verifier)
}

// Complete exchanges the code, reads the profile and signs the user in
// upstream. A refusal by the provider or the upstream API is Unauthorized;
// a broken upstream connection is Unexpected.
func (s *ProviderStrategy) Complete(ctx context.Context, code, verifier string) (*AuthResult, error) {
	kind := string(s.provider.Kind())

	exchangeCtx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	token, err := s.provider.Exchange(exchangeCtx, code, verifier)
	if err != nil {
		log.LogWarnWithFields("auth", "Provider code exchange failed", map[string]any{
			"provider": kind,
			"error":    err.Error(),
		})
		return nil, apperr.Unauthorized(err)
	}

	profile, err := s.provider.Profile(ctx, token)
	if err != nil {
		log.LogWarnWithFields("auth", "Provider profile lookup failed", map[string]any{
			"provider": kind,
			"error":    err.Error(),
		})
		return nil, apperr.Unauthorized(err)
	}
	if profile.ProviderUserID == "" {
		return nil, apperr.Unauthorized(fmt.Errorf("%s profile has no user id", kind))
	}

	body, err := s.api.SignProvider(ctx, upstream.ProviderUser{
		Name:     profile.DisplayName,
		Email:    profile.Email,
		Password: profile.ProviderUserID,
	})
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			return nil, apperr.Unauthorized(err)
		}
		return nil, apperr.Unexpected(err)
	}
	if len(body) == 0 {
		return nil, apperr.Unauthorized(errors.New("empty sign-provider response"))
	}

	result, err := ParseAuthResult(body)
	if err != nil {
		return nil, apperr.Unauthorized(fmt.Errorf("decoding sign-provider response: %w", err))
	}

	log.LogInfoWithFields("auth", "Provider sign-in completed", map[string]any{
		"provider": kind,
		"user_id":  result.User.ID,
	})
	return result, nil
}
