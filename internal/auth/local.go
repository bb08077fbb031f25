package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgellow/movie-gateway/internal/apperr"
	"github.com/dgellow/movie-gateway/internal/log"
)

// SignInAPI verifies local credentials against the upstream API
type SignInAPI interface {
	SignIn(ctx context.Context, identifier, secret string) ([]byte, error)
}

// LocalStrategy authenticates identifier/secret pairs
type LocalStrategy struct {
	api SignInAPI
}

// NewLocalStrategy creates a new local strategy
func NewLocalStrategy(api SignInAPI) *LocalStrategy {
	return &LocalStrategy{api: api}
}

// Authenticate exchanges a credential for an AuthResult. Every failure,
// including an unreachable upstream, is Unauthorized.
func (s *LocalStrategy) Authenticate(ctx context.Context, cred Credential) (*AuthResult, error) {
	if cred.Identifier == "" || cred.Secret == "" {
		return nil, apperr.Unauthorized(errors.New("missing credentials"))
	}

	body, err := s.api.SignIn(ctx, cred.Identifier, cred.Secret)
	if err != nil {
		log.LogDebugWithFields("auth", "Local sign-in rejected", map[string]any{
			"error": err.Error(),
		})
		return nil, apperr.Unauthorized(err)
	}

	result, err := ParseAuthResult(body)
	if err != nil {
		return nil, apperr.Unauthorized(fmt.Errorf("decoding sign-in response: %w", err))
	}
	return result, nil
}
