package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgellow/movie-gateway/internal/envutil"
)

func parseString(raw json.RawMessage, field string) (string, error) {
	if raw == nil {
		return "", nil
	}
	parsed, err := ParseConfigValue(raw)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", field, err)
	}
	return parsed.value, nil
}

// UnmarshalJSON resolves env references in the gateway section. A missing
// "dev" flag falls back to the process environment.
func (g *GatewayConfig) UnmarshalJSON(data []byte) error {
	type rawGateway struct {
		Addr           json.RawMessage   `json:"addr"`
		BaseURL        json.RawMessage   `json:"baseURL"`
		Dev            *bool             `json:"dev"`
		AllowedOrigins []json.RawMessage `json:"allowedOrigins"`
		SessionSecret  json.RawMessage   `json:"sessionSecret"`
		LogLevel       string            `json:"logLevel"`
		LogFormat      string            `json:"logFormat"`
	}

	var raw rawGateway
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	g.LogLevel = raw.LogLevel
	g.LogFormat = raw.LogFormat

	if raw.Dev != nil {
		g.Dev = *raw.Dev
	} else {
		g.Dev = envutil.IsDev()
	}

	var err error
	if g.Addr, err = parseString(raw.Addr, "addr"); err != nil {
		return err
	}
	if g.BaseURL, err = parseString(raw.BaseURL, "baseURL"); err != nil {
		return err
	}

	if len(raw.AllowedOrigins) > 0 {
		origins, err := ParseConfigValueSlice(raw.AllowedOrigins)
		if err != nil {
			return fmt.Errorf("parsing allowedOrigins: %w", err)
		}
		g.AllowedOrigins = origins
	}

	secret, err := parseString(raw.SessionSecret, "sessionSecret")
	if err != nil {
		return err
	}
	g.SessionSecret = Secret(secret)

	return nil
}

// UnmarshalJSON implements custom unmarshaling for UpstreamConfig
func (u *UpstreamConfig) UnmarshalJSON(data []byte) error {
	type rawUpstream struct {
		URL         json.RawMessage `json:"url"`
		APIKeyToken json.RawMessage `json:"apiKeyToken"`
		Timeout     string          `json:"timeout"`
	}

	var raw rawUpstream
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var err error
	if u.URL, err = parseString(raw.URL, "url"); err != nil {
		return err
	}

	key, err := parseString(raw.APIKeyToken, "apiKeyToken")
	if err != nil {
		return err
	}
	u.APIKeyToken = Secret(key)

	if raw.Timeout != "" {
		timeout, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
		u.Timeout = timeout
	}

	return nil
}

// UnmarshalJSON implements custom unmarshaling for ProviderConfig
func (p *ProviderConfig) UnmarshalJSON(data []byte) error {
	type rawProvider struct {
		Kind         ProviderKind       `json:"kind"`
		ClientID     json.RawMessage    `json:"clientId"`
		ClientSecret json.RawMessage    `json:"clientSecret"`
		CallbackPath string             `json:"callbackPath"`
		Scopes       []string           `json:"scopes"`
		Endpoints    *ProviderEndpoints `json:"endpoints"`
	}

	var raw rawProvider
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Kind = raw.Kind
	p.CallbackPath = raw.CallbackPath
	p.Scopes = raw.Scopes
	p.Endpoints = raw.Endpoints

	var err error
	if p.ClientID, err = parseString(raw.ClientID, "clientId"); err != nil {
		return err
	}

	secret, err := parseString(raw.ClientSecret, "clientSecret")
	if err != nil {
		return err
	}
	p.ClientSecret = Secret(secret)

	return nil
}
