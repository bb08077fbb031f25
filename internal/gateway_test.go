package internal

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dgellow/movie-gateway/internal/config"
	"github.com/dgellow/movie-gateway/internal/cookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionSecret = "0123456789abcdef0123456789abcdef"

// fakeUpstream is a minimal stand-in for the movie API
func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/sign-in", func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		if user != "ana@example.com" || pass != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"token":"session-token","user":{"id":"u-1","name":"Ana","email":"ana@example.com"}}`))
	})
	mux.HandleFunc("POST /api/auth/sign-provider", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["password"] != "fb-1" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"token":"provider-token","user":{"id":42,"name":"` + body["name"] + `","email":"` + body["email"] + `","roles":["viewer"]}}`))
	})
	mux.HandleFunc("GET /api/movies", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"auth":"` + r.Header.Get("Authorization") + `","query":"` + r.URL.RawQuery + `"}`))
	})
	mux.HandleFunc("DELETE /api/user-movies/{id}", func(w http.ResponseWriter, r *http.Request) {
		// Answers outside the contract
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(upstreamURL string) config.Config {
	return config.Config{
		Version: config.Version,
		Gateway: config.GatewayConfig{
			Addr:           "127.0.0.1:0",
			BaseURL:        "https://gateway.example.com",
			AllowedOrigins: []string{"http://localhost:3000"},
			SessionSecret:  config.Secret(testSessionSecret),
		},
		Upstream: config.UpstreamConfig{
			URL:         upstreamURL,
			APIKeyToken: config.Secret("service-key"),
		},
		Providers: map[string]*config.ProviderConfig{
			"facebook": {
				Kind:         config.ProviderKindFacebook,
				ClientID:     "fb-client",
				ClientSecret: config.Secret("fb-secret"),
				CallbackPath: "/auth/facebook/callback",
			},
			"google": {
				Kind:         config.ProviderKindGoogleOIDC,
				ClientID:     "google-client",
				ClientSecret: config.Secret("google-secret"),
				CallbackPath: "/auth/google/callback",
			},
		},
	}
}

func newTestGateway(t *testing.T) http.Handler {
	t.Helper()
	upstream := fakeUpstream(t)
	gateway, err := NewGateway(testConfig(upstream.URL))
	require.NoError(t, err)
	return gateway.Handler()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGateway_LocalSignInThenListMovies(t *testing.T) {
	h := newTestGateway(t)

	signIn := httptest.NewRequest(http.MethodPost, "/auth/sign-in",
		strings.NewReader(`{"identifier":"ana@example.com","secret":"pw","rememberMe":true}`))
	signIn.Header.Set("Origin", "http://localhost:3000")
	w := serve(h, signIn)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u-1","name":"Ana","email":"ana@example.com"}`, w.Body.String())
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var token *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == cookie.TokenCookie {
			token = c
		}
	}
	require.NotNil(t, token)
	assert.Equal(t, 2592000, token.MaxAge)

	list := httptest.NewRequest(http.MethodGet, "/movies?tags=drama", nil)
	list.AddCookie(token)
	w = serve(h, list)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"auth":"Bearer session-token","query":"tags=drama"}`, w.Body.String())
}

func TestGateway_Rejections(t *testing.T) {
	h := newTestGateway(t)

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
	}{
		{
			name:       "wrong password",
			req:        httptest.NewRequest(http.MethodPost, "/auth/sign-in", strings.NewReader(`{"identifier":"ana@example.com","secret":"nope"}`)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown provider",
			req:        httptest.NewRequest(http.MethodGet, "/auth/myspace", nil),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "callback without state",
			req:        httptest.NewRequest(http.MethodGet, "/auth/facebook/callback?code=c&state=s", nil),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "upstream breaks contract",
			req:        httptest.NewRequest(http.MethodDelete, "/user-movies/um-1", nil),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "wrong method",
			req:        httptest.NewRequest(http.MethodGet, "/auth/sign-up", nil),
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h, tt.req)
			assert.Equal(t, tt.wantStatus, w.Code)
			for _, c := range w.Result().Cookies() {
				assert.NotEqual(t, cookie.TokenCookie, c.Name)
			}
		})
	}
}

func TestGateway_ProviderRedirect(t *testing.T) {
	h := newTestGateway(t)

	w := serve(h, httptest.NewRequest(http.MethodGet, "/auth/facebook", nil))
	require.Equal(t, http.StatusFound, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "www.facebook.com", location.Host)
	assert.Equal(t, "fb-client", location.Query().Get("client_id"))
	assert.Equal(t, "https://gateway.example.com/auth/facebook/callback", location.Query().Get("redirect_uri"))
	assert.NotEmpty(t, location.Query().Get("state"))

	var state *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == cookie.StateCookie {
			state = c
		}
	}
	require.NotNil(t, state)
	assert.True(t, state.Secure)
}

// fakeFacebook plays the identity provider: it approves every authorization
// request and serves a fixed Graph profile.
func fakeFacebook(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /authorize", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "fb-client", q.Get("client_id"))
		target, err := url.Parse(q.Get("redirect_uri"))
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		target.RawQuery = url.Values{"code": {"fb-code"}, "state": {q.Get("state")}}.Encode()
		http.Redirect(w, r, target.String(), http.StatusFound)
	})
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "fb-code" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fb-access","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fb-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"fb-1","name":"Ana Lima","email":"ana@example.com"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestGateway_ProviderSignInFlow(t *testing.T) {
	idpServer := fakeFacebook(t)
	upstream := fakeUpstream(t)

	var handler http.Handler
	gatewayServer := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(gatewayServer.Close)

	cfg := testConfig(upstream.URL)
	cfg.Gateway.BaseURL = gatewayServer.URL
	cfg.Providers["facebook"].Endpoints = &config.ProviderEndpoints{
		AuthURL:  idpServer.URL + "/authorize",
		TokenURL: idpServer.URL + "/token",
		APIURL:   idpServer.URL,
	}
	require.NoError(t, config.ValidateConfig(&cfg))

	gateway, err := NewGateway(cfg)
	require.NoError(t, err)
	handler = gateway.Handler()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := gatewayServer.Client()
	client.Jar = jar

	resp, err := client.Get(gatewayServer.URL + "/auth/facebook")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "/auth/facebook/callback", resp.Request.URL.Path)
	assert.JSONEq(t, `{"id":42,"name":"Ana Lima","email":"ana@example.com","roles":["viewer"]}`, string(body))
	assert.NotContains(t, string(body), "provider-token")

	var token, state *http.Cookie
	for _, c := range resp.Cookies() {
		switch c.Name {
		case cookie.TokenCookie:
			token = c
		case cookie.StateCookie:
			state = c
		}
	}
	require.NotNil(t, token)
	assert.Equal(t, "provider-token", token.Value)
	assert.Equal(t, 7200, token.MaxAge)
	assert.True(t, token.Secure)
	assert.True(t, token.HttpOnly)
	require.NotNil(t, state)
	assert.Negative(t, state.MaxAge)

	resp, err = client.Get(gatewayServer.URL + "/movies")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.JSONEq(t, `{"auth":"Bearer provider-token","query":""}`, string(body))

	t.Run("replayed callback is rejected", func(t *testing.T) {
		resp, err := client.Get(gatewayServer.URL + "/auth/facebook/callback?code=fb-code&state=anything")
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestGateway_HealthAndMetrics(t *testing.T) {
	h := newTestGateway(t)

	w := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	serve(h, httptest.NewRequest(http.MethodPost, "/auth/sign-in",
		strings.NewReader(`{"identifier":"ana@example.com","secret":"pw"}`)))

	w = serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gateway_signin_total{outcome="success",strategy="local"} 1`)
	assert.Contains(t, string(body), `gateway_upstream_requests_total{operation="sign_in",status="200"} 1`)
	assert.Contains(t, string(body), `gateway_http_request_duration_seconds_count{method="GET",route="GET /health"} 1`)
}

func TestBuildProviderFlows(t *testing.T) {
	cfg := testConfig("http://localhost:3000")
	flows, err := buildProviderFlows(cfg, nil)
	require.NoError(t, err)

	keys := make([]string, 0, len(flows))
	for k := range flows {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"facebook", "google"}, keys)

	cfg.Providers["bogus"] = &config.ProviderConfig{Kind: "myspace", CallbackPath: "/cb"}
	_, err = buildProviderFlows(cfg, nil)
	assert.Error(t, err)
}

func TestGateway_SignInBodyHasNoToken(t *testing.T) {
	h := newTestGateway(t)
	w := serve(h, httptest.NewRequest(http.MethodPost, "/auth/sign-in",
		strings.NewReader(`{"identifier":"ana@example.com","secret":"pw"}`)))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotContains(t, body, "token")
}
