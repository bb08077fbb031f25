package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dgellow/movie-gateway/internal/cookie"
)

const (
	// DefaultSessionTTL is the token cookie lifetime without remember-me
	DefaultSessionTTL = 2 * time.Hour

	// RememberMeSessionTTL is the token cookie lifetime with remember-me
	RememberMeSessionTTL = 30 * 24 * time.Hour
)

// SessionTTL returns the cookie lifetime for a sign-in
func SessionTTL(rememberMe bool) time.Duration {
	if rememberMe {
		return RememberMeSessionTTL
	}
	return DefaultSessionTTL
}

// Credential is a local identifier/secret pair. It lives for one request.
type Credential struct {
	Identifier string
	Secret     string
}

// User is the public part of an authentication result. The upstream user
// object is passed through as received, minus the token. ID, Name and Email
// are read out of it for logging.
type User struct {
	ID    string
	Name  string
	Email string

	fields map[string]json.RawMessage
}

// MarshalJSON writes the upstream user object. A User built without one
// encodes its typed fields.
func (u User) MarshalJSON() ([]byte, error) {
	if u.fields == nil {
		return json.Marshal(map[string]string{"id": u.ID, "name": u.Name, "email": u.Email})
	}
	return json.Marshal(u.fields)
}

// AuthResult is what the upstream API returns for a successful sign-in.
// Token only ever leaves the gateway in the token cookie.
type AuthResult struct {
	Token string `json:"-"`
	User  User   `json:"user"`
}

var (
	errMissingToken = errors.New("authentication result has no token")
	errInvalidUser  = errors.New("authentication result user is not an object")
)

// ParseAuthResult decodes an upstream payload. Both the nested
// {token, user:{...}} and the flat {token, id, name, ...} shapes are accepted.
func ParseAuthResult(data []byte) (*AuthResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	var token string
	if raw, ok := fields["token"]; ok {
		if err := json.Unmarshal(raw, &token); err != nil {
			return nil, fmt.Errorf("decoding token: %w", err)
		}
	}
	if token == "" {
		return nil, errMissingToken
	}

	if raw, ok := fields["user"]; ok {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err != nil || nested == nil {
			return nil, errInvalidUser
		}
		fields = nested
	}
	delete(fields, "token")

	return &AuthResult{Token: token, User: newUser(fields)}, nil
}

func newUser(fields map[string]json.RawMessage) User {
	return User{
		ID:     scalarField(fields["id"]),
		Name:   scalarField(fields["name"]),
		Email:  scalarField(fields["email"]),
		fields: fields,
	}
}

// scalarField renders a JSON string or number as text. Anything else is empty.
func scalarField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// Bearer is the caller's session token, read once per request and passed
// explicitly to every upstream resource call.
type Bearer struct {
	token string
}

// NewBearer wraps a raw token
func NewBearer(token string) Bearer {
	return Bearer{token: token}
}

// BearerFromRequest reads the token cookie. A missing cookie yields the
// empty bearer.
func BearerFromRequest(r *http.Request) Bearer {
	token, _ := cookie.GetToken(r)
	return Bearer{token: token}
}

// Token returns the raw token
func (b Bearer) Token() string {
	return b.token
}

// Empty reports whether the request carried no token
func (b Bearer) Empty() bool {
	return b.token == ""
}
