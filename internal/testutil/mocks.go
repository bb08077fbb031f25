package testutil

import (
	"context"
	"io"

	"github.com/dgellow/movie-gateway/internal/auth"
	"github.com/dgellow/movie-gateway/internal/idp"
	"github.com/dgellow/movie-gateway/internal/upstream"
	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"
)

// MockProvider mocks idp.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Kind() idp.Kind {
	args := m.Called()
	return args.Get(0).(idp.Kind)
}

func (m *MockProvider) AuthURL(state, verifier string) string {
	args := m.Called(state, verifier)
	return args.String(0)
}

func (m *MockProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	args := m.Called(ctx, code, verifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

func (m *MockProvider) Profile(ctx context.Context, token *oauth2.Token) (*idp.Profile, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*idp.Profile), args.Error(1)
}

// MockProviderFlow mocks auth.ProviderFlow
type MockProviderFlow struct {
	mock.Mock
}

func (m *MockProviderFlow) AuthURL(state, verifier string) string {
	args := m.Called(state, verifier)
	return args.String(0)
}

func (m *MockProviderFlow) Complete(ctx context.Context, code, verifier string) (*auth.AuthResult, error) {
	args := m.Called(ctx, code, verifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.AuthResult), args.Error(1)
}

// MockCredentialVerifier mocks the local sign-in strategy
type MockCredentialVerifier struct {
	mock.Mock
}

func (m *MockCredentialVerifier) Authenticate(ctx context.Context, cred auth.Credential) (*auth.AuthResult, error) {
	args := m.Called(ctx, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.AuthResult), args.Error(1)
}

// MockUpstreamAPI mocks the upstream client
type MockUpstreamAPI struct {
	mock.Mock
}

func (m *MockUpstreamAPI) SignIn(ctx context.Context, identifier, secret string) ([]byte, error) {
	args := m.Called(ctx, identifier, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockUpstreamAPI) SignProvider(ctx context.Context, user upstream.ProviderUser) ([]byte, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockUpstreamAPI) SignUp(ctx context.Context, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	args := m.Called(ctx, string(data), contentType)
	return args.Error(0)
}

func (m *MockUpstreamAPI) ListMovies(ctx context.Context, bearer, rawQuery string) (*upstream.Response, error) {
	args := m.Called(ctx, bearer, rawQuery)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upstream.Response), args.Error(1)
}

func (m *MockUpstreamAPI) CreateUserMovie(ctx context.Context, bearer string, body io.Reader, contentType string) (*upstream.Response, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	args := m.Called(ctx, bearer, string(data), contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upstream.Response), args.Error(1)
}

func (m *MockUpstreamAPI) DeleteUserMovie(ctx context.Context, bearer, userMovieID string) (*upstream.Response, error) {
	args := m.Called(ctx, bearer, userMovieID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upstream.Response), args.Error(1)
}
