package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Version is the only config schema version this build accepts.
const Version = "v1"

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// ProviderKind identifies an identity provider integration
type ProviderKind string

const (
	ProviderKindGoogleOIDC  ProviderKind = "google-oidc"
	ProviderKindGoogleOAuth ProviderKind = "google-oauth"
	ProviderKindTwitter     ProviderKind = "twitter"
	ProviderKindLinkedIn    ProviderKind = "linkedin"
	ProviderKindFacebook    ProviderKind = "facebook"
)

// Valid reports whether k is one of the supported provider kinds.
func (k ProviderKind) Valid() bool {
	switch k {
	case ProviderKindGoogleOIDC, ProviderKindGoogleOAuth, ProviderKindTwitter,
		ProviderKindLinkedIn, ProviderKindFacebook:
		return true
	}
	return false
}

// GatewayConfig holds the listener and cookie settings
type GatewayConfig struct {
	Addr           string   `json:"addr"`
	BaseURL        string   `json:"baseURL"`
	Dev            bool     `json:"dev"`
	AllowedOrigins []string `json:"allowedOrigins"`
	SessionSecret  Secret   `json:"sessionSecret"`
	LogLevel       string   `json:"logLevel,omitempty"`
	LogFormat      string   `json:"logFormat,omitempty"`
}

// UpstreamConfig describes the movie API the gateway fronts
type UpstreamConfig struct {
	URL         string        `json:"url"`
	APIKeyToken Secret        `json:"apiKeyToken"`
	Timeout     time.Duration `json:"timeout"`
}

// ProviderConfig is the static configuration of one identity provider route
type ProviderConfig struct {
	Kind         ProviderKind `json:"kind"`
	ClientID     string       `json:"clientId"`
	ClientSecret Secret       `json:"clientSecret"`
	CallbackPath string       `json:"callbackPath"`
	Scopes       []string     `json:"scopes,omitempty"`

	// Endpoints moves the provider off its public hosts, e.g. to a
	// regional API host or a mock identity provider.
	Endpoints *ProviderEndpoints `json:"endpoints,omitempty"`
}

// ProviderEndpoints overrides provider URLs. Empty fields keep the default.
type ProviderEndpoints struct {
	AuthURL  string `json:"authURL,omitempty"`
	TokenURL string `json:"tokenURL,omitempty"`
	// APIURL is the profile API base. google-oidc reads the ID token and has none.
	APIURL string `json:"apiURL,omitempty"`
}

// Config represents the config structure with resolved values
type Config struct {
	Version   string                     `json:"version"`
	Gateway   GatewayConfig              `json:"gateway"`
	Upstream  UpstreamConfig             `json:"upstream"`
	Providers map[string]*ProviderConfig `json:"providers"`
}

// RawConfigValue is a config value after reference resolution.
// It is only used during parsing, not in the final config.
type RawConfigValue struct {
	value   string
	fromEnv bool
}

// Value returns the resolved string.
func (r *RawConfigValue) Value() string { return r.value }

// FromEnv reports whether the value came from an {"$env": ...} reference.
func (r *RawConfigValue) FromEnv() bool { return r.fromEnv }

// ParseConfigValue parses a JSON value that could be a string or reference object
func ParseConfigValue(raw json.RawMessage) (*RawConfigValue, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return &RawConfigValue{value: str}, nil
	}

	var ref map[string]string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("config value must be string or reference object")
	}

	envVar, ok := ref["$env"]
	if !ok {
		return nil, fmt.Errorf("unknown reference type in config value")
	}
	value := os.Getenv(envVar)
	if value == "" {
		return nil, fmt.Errorf("environment variable %s not set", envVar)
	}
	// Strip surrounding quotes if present (only matching pairs)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return &RawConfigValue{value: value, fromEnv: true}, nil
}

// ParseConfigValueSlice parses a slice that may contain references
func ParseConfigValueSlice(raw []json.RawMessage) ([]string, error) {
	values := make([]string, len(raw))
	for i, item := range raw {
		parsed, err := ParseConfigValue(item)
		if err != nil {
			return nil, fmt.Errorf("parsing item %d: %w", i, err)
		}
		values[i] = parsed.value
	}
	return values, nil
}
