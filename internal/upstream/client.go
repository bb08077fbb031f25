// Package upstream is the HTTP client for the movie API behind the gateway.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgellow/movie-gateway/internal/log"
)

// maxBodySize bounds how much of an upstream response is buffered
const maxBodySize = 10 << 20

// Operation names, also used as metric labels
const (
	OpSignIn          = "sign_in"
	OpSignUp          = "sign_up"
	OpSignProvider    = "sign_provider"
	OpListMovies      = "list_movies"
	OpCreateUserMovie = "create_user_movie"
	OpDeleteUserMovie = "delete_user_movie"
)

// Observer is notified of every upstream round trip. Status is 0 when the
// request never got a response.
type Observer interface {
	ObserveUpstream(operation string, status int)
}

// Config configures a Client
type Config struct {
	BaseURL     string
	APIKeyToken string
	// Timeout bounds each request; zero means no timeout.
	Timeout time.Duration
	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
	Observer   Observer
}

// Client calls the upstream movie API
type Client struct {
	baseURL     string
	apiKeyToken string
	httpClient  *http.Client
	observer    Observer
}

// Response is a buffered upstream response
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// StatusError reports an upstream status outside an operation's contract
type StatusError struct {
	Operation string
	Status    int
	// Body is a truncated copy of the response, for logs only.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.Operation, e.Status)
}

// NewClient creates a new upstream client
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			// Don't follow redirects automatically
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKeyToken: cfg.APIKeyToken,
		httpClient:  httpClient,
		observer:    cfg.Observer,
	}
}

// SignIn verifies local credentials with HTTP Basic auth. It returns the
// raw session payload on 200.
func (c *Client) SignIn(ctx context.Context, identifier, secret string) ([]byte, error) {
	body, err := c.apiKeyBody(nil)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/sign-in", "", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(identifier, secret)

	resp, err := c.do(OpSignIn, req)
	if err != nil {
		return nil, err
	}
	if err := expect(OpSignIn, resp, http.StatusOK); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// ProviderUser is the identity a provider strategy registers upstream
type ProviderUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignProvider finds or creates the upstream user for a provider identity
func (c *Client) SignProvider(ctx context.Context, user ProviderUser) ([]byte, error) {
	body, err := c.apiKeyBody(map[string]any{
		"name":     user.Name,
		"email":    user.Email,
		"password": user.Password,
	})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/sign-provider", "", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(OpSignProvider, req)
	if err != nil {
		return nil, err
	}
	if err := expect(OpSignProvider, resp, http.StatusOK); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// SignUp forwards a registration body verbatim
func (c *Client) SignUp(ctx context.Context, body io.Reader, contentType string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/sign-up", "", body)
	if err != nil {
		return err
	}
	setContentType(req, contentType)

	resp, err := c.do(OpSignUp, req)
	if err != nil {
		return err
	}
	if resp.Status < 200 || resp.Status > 299 {
		return newStatusError(OpSignUp, resp)
	}
	return nil
}

// ListMovies fetches the movie list on behalf of the bearer
func (c *Client) ListMovies(ctx context.Context, bearer, rawQuery string) (*Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/movies", rawQuery, nil)
	if err != nil {
		return nil, err
	}
	setBearer(req, bearer)

	resp, err := c.do(OpListMovies, req)
	if err != nil {
		return nil, err
	}
	return resp, expect(OpListMovies, resp, http.StatusOK)
}

// CreateUserMovie adds a movie to the bearer's list
func (c *Client) CreateUserMovie(ctx context.Context, bearer string, body io.Reader, contentType string) (*Response, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/user-movies", "", body)
	if err != nil {
		return nil, err
	}
	setContentType(req, contentType)
	setBearer(req, bearer)

	resp, err := c.do(OpCreateUserMovie, req)
	if err != nil {
		return nil, err
	}
	return resp, expect(OpCreateUserMovie, resp, http.StatusCreated)
}

// DeleteUserMovie removes an entry from the bearer's list
func (c *Client) DeleteUserMovie(ctx context.Context, bearer, userMovieID string) (*Response, error) {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/user-movies/"+url.PathEscape(userMovieID), "", nil)
	if err != nil {
		return nil, err
	}
	setBearer(req, bearer)

	resp, err := c.do(OpDeleteUserMovie, req)
	if err != nil {
		return nil, err
	}
	return resp, expect(OpDeleteUserMovie, resp, http.StatusOK)
}

func (c *Client) apiKeyBody(fields map[string]any) ([]byte, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["apiKeyToken"] = c.apiKeyToken
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path, rawQuery string, body io.Reader) (*http.Request, error) {
	target := c.baseURL + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(operation string, req *http.Request) (*Response, error) {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(operation, 0)
		return nil, fmt.Errorf("upstream %s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.observe(operation, resp.StatusCode)
	if err != nil {
		return nil, fmt.Errorf("reading upstream %s response: %w", operation, err)
	}

	log.LogDebugWithFields("upstream", "Upstream request completed", map[string]any{
		"operation":   operation,
		"method":      req.Method,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (c *Client) observe(operation string, status int) {
	if c.observer != nil {
		c.observer.ObserveUpstream(operation, status)
	}
}

func expect(operation string, resp *Response, status int) error {
	if resp.Status != status {
		return newStatusError(operation, resp)
	}
	return nil
}

func newStatusError(operation string, resp *Response) *StatusError {
	return &StatusError{
		Operation: operation,
		Status:    resp.Status,
		Body:      truncate(resp.Body, 512),
	}
}

// truncate keeps error bodies short enough for log lines
func truncate(body []byte, limit int) string {
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}

func setBearer(req *http.Request, bearer string) {
	req.Header.Set("Authorization", "Bearer "+bearer)
}

func setContentType(req *http.Request, contentType string) {
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
}
