package server

import (
	"context"
	"io"
	"net/http"

	"github.com/dgellow/movie-gateway/internal/apperr"
	"github.com/dgellow/movie-gateway/internal/auth"
	jsonwriter "github.com/dgellow/movie-gateway/internal/json"
	"github.com/dgellow/movie-gateway/internal/upstream"
)

// ResourceAPI is the part of the upstream API reached with the caller's token
type ResourceAPI interface {
	ListMovies(ctx context.Context, bearer, rawQuery string) (*upstream.Response, error)
	CreateUserMovie(ctx context.Context, bearer string, body io.Reader, contentType string) (*upstream.Response, error)
	DeleteUserMovie(ctx context.Context, bearer, userMovieID string) (*upstream.Response, error)
}

// ResourceHandlers forwards resource calls upstream on behalf of the caller.
// A missing token cookie is forwarded as an empty bearer; the upstream API
// decides what that means.
type ResourceHandlers struct {
	api ResourceAPI
}

// NewResourceHandlers creates resource handlers
func NewResourceHandlers(api ResourceAPI) *ResourceHandlers {
	return &ResourceHandlers{api: api}
}

// ListMoviesHandler handles GET /movies
func (h *ResourceHandlers) ListMoviesHandler(w http.ResponseWriter, r *http.Request) {
	bearer := auth.BearerFromRequest(r)
	resp, err := h.api.ListMovies(r.Context(), bearer.Token(), r.URL.RawQuery)
	writeUpstream(w, resp, err)
}

// CreateUserMovieHandler handles POST /user-movies
func (h *ResourceHandlers) CreateUserMovieHandler(w http.ResponseWriter, r *http.Request) {
	bearer := auth.BearerFromRequest(r)
	resp, err := h.api.CreateUserMovie(r.Context(), bearer.Token(), r.Body, r.Header.Get("Content-Type"))
	writeUpstream(w, resp, err)
}

// DeleteUserMovieHandler handles DELETE /user-movies/{userMovieId}
func (h *ResourceHandlers) DeleteUserMovieHandler(w http.ResponseWriter, r *http.Request) {
	bearer := auth.BearerFromRequest(r)
	resp, err := h.api.DeleteUserMovie(r.Context(), bearer.Token(), r.PathValue("userMovieId"))
	writeUpstream(w, resp, err)
}

// writeUpstream passes a successful upstream response through unchanged.
// Every failure is the upstream API breaking its contract.
func writeUpstream(w http.ResponseWriter, resp *upstream.Response, err error) {
	if err != nil {
		apperr.Write(w, apperr.BadImplementation(err))
		return
	}
	jsonwriter.WriteRaw(w, resp.Status, resp.ContentType, resp.Body)
}
