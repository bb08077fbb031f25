package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrite(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:3000: connection refused")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "unauthorized",
			err:        Unauthorized(cause),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"unauthorized","message":"Unauthorized"}`,
		},
		{
			name:       "bad implementation",
			err:        BadImplementation(cause),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"bad_implementation","message":"An internal server error occurred"}`,
		},
		{
			name:       "upstream conflict",
			err:        Upstream(http.StatusConflict, cause),
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"conflict","message":"Conflict"}`,
		},
		{
			name:       "wrapped apperr",
			err:        fmt.Errorf("sign-in: %w", Unauthorized(nil)),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"unauthorized","message":"Unauthorized"}`,
		},
		{
			name:       "plain error is unexpected",
			err:        cause,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal_server_error","message":"An internal server error occurred"}`,
		},
		{
			name:       "not found",
			err:        NotFound("Unknown provider"),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"not_found","message":"Unknown provider"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Write(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnauthorized, KindOf(Unauthorized(nil)))
	assert.Equal(t, KindBadImplementation, KindOf(fmt.Errorf("x: %w", BadImplementation(nil))))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("boom")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := Unexpected(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "cause")
}
