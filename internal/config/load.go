package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/dgellow/movie-gateway/internal/log"
)

// MinSessionSecretLength is the minimum size of gateway.sessionSecret.
const MinSessionSecretLength = 32

// reservedRouteKeys collide with the local authentication routes.
var reservedRouteKeys = map[string]bool{
	"sign-in": true,
	"sign-up": true,
}

// CallbackPrefix is the path every provider callback lives under. The OAuth
// state cookie is only sent back on this prefix.
const CallbackPrefix = "/auth/"

// reservedPaths are served by the gateway itself and cannot be callbacks.
var reservedPaths = map[string]bool{
	"/auth/sign-in": true,
	"/auth/sign-up": true,
}

// Load loads and processes the config with immediate env var resolution
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	version, ok := rawConfig["version"].(string)
	if !ok {
		return Config{}, fmt.Errorf("config version is required")
	}
	if version != Version {
		return Config{}, fmt.Errorf("unsupported config version: %s", version)
	}

	if err := validateRawConfig(rawConfig); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	// The custom UnmarshalJSON methods resolve env vars immediately
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validateRawConfig rejects secrets written inline, before env resolution
func validateRawConfig(rawConfig map[string]any) error {
	check := func(value any, name string) error {
		if value == nil {
			return nil
		}
		if _, isString := value.(string); isString {
			return fmt.Errorf("%s must use environment variable reference for security", name)
		}
		if refMap, isMap := value.(map[string]any); isMap {
			if _, hasEnv := refMap["$env"]; !hasEnv {
				return fmt.Errorf("%s must use {\"$env\": \"VAR_NAME\"} format", name)
			}
		}
		return nil
	}

	if gateway, ok := rawConfig["gateway"].(map[string]any); ok {
		if err := check(gateway["sessionSecret"], "gateway.sessionSecret"); err != nil {
			return err
		}
	}
	if upstream, ok := rawConfig["upstream"].(map[string]any); ok {
		if err := check(upstream["apiKeyToken"], "upstream.apiKeyToken"); err != nil {
			return err
		}
	}
	if providers, ok := rawConfig["providers"].(map[string]any); ok {
		for key, p := range providers {
			provider, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if err := check(provider["clientSecret"], "providers."+key+".clientSecret"); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateConfig validates the resolved configuration
func ValidateConfig(config *Config) error {
	if config.Gateway.Addr == "" {
		return fmt.Errorf("gateway.addr is required")
	}
	if config.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.baseURL is required")
	}
	if err := validateHTTPURL(config.Gateway.BaseURL); err != nil {
		return fmt.Errorf("gateway.baseURL: %w", err)
	}
	if len(config.Gateway.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("gateway.sessionSecret must be at least %d bytes, got %d", MinSessionSecretLength, len(config.Gateway.SessionSecret))
	}
	if config.Gateway.LogLevel != "" {
		if err := log.ValidateLevel(config.Gateway.LogLevel); err != nil {
			return fmt.Errorf("gateway.logLevel: %w", err)
		}
	}
	switch strings.ToLower(config.Gateway.LogFormat) {
	case "", "json", "text":
	default:
		return fmt.Errorf("gateway.logFormat must be 'json' or 'text', got '%s'", config.Gateway.LogFormat)
	}

	if config.Upstream.URL == "" {
		return fmt.Errorf("upstream.url is required")
	}
	if err := validateHTTPURL(config.Upstream.URL); err != nil {
		return fmt.Errorf("upstream.url: %w", err)
	}
	if config.Upstream.APIKeyToken == "" {
		return fmt.Errorf("upstream.apiKeyToken is required")
	}
	if config.Upstream.Timeout < 0 {
		return fmt.Errorf("upstream.timeout cannot be negative")
	}

	if len(config.Providers) == 0 {
		log.LogWarn("No identity providers configured, only local sign-in is available")
	}
	callbacks := make(map[string]string, len(config.Providers))
	for key, provider := range config.Providers {
		if err := validateProvider(key, provider); err != nil {
			return err
		}
		if other, ok := callbacks[provider.CallbackPath]; ok {
			return fmt.Errorf("providers %s and %s share callbackPath '%s'", other, key, provider.CallbackPath)
		}
		callbacks[provider.CallbackPath] = key
	}
	for path, key := range callbacks {
		if _, ok := config.Providers[strings.TrimPrefix(path, CallbackPrefix)]; ok {
			return fmt.Errorf("provider %s: callbackPath '%s' shadows a provider route", key, path)
		}
	}

	return nil
}

func validateProvider(key string, provider *ProviderConfig) error {
	if key == "" || strings.Contains(key, "/") {
		return fmt.Errorf("provider route key '%s' must be a single path segment", key)
	}
	if reservedRouteKeys[key] {
		return fmt.Errorf("provider route key '%s' is reserved", key)
	}
	if provider == nil {
		return fmt.Errorf("provider %s: configuration is required", key)
	}
	if !provider.Kind.Valid() {
		return fmt.Errorf("provider %s: unknown kind '%s'", key, provider.Kind)
	}
	if provider.ClientID == "" {
		return fmt.Errorf("provider %s: clientId is required", key)
	}
	if provider.ClientSecret == "" {
		return fmt.Errorf("provider %s: clientSecret is required", key)
	}
	if !strings.HasPrefix(provider.CallbackPath, "/") {
		return fmt.Errorf("provider %s: callbackPath must start with '/'", key)
	}
	if !strings.HasPrefix(provider.CallbackPath, CallbackPrefix) || provider.CallbackPath == CallbackPrefix {
		return fmt.Errorf("provider %s: callbackPath '%s' must be under '%s'", key, provider.CallbackPath, CallbackPrefix)
	}
	if strings.ContainsAny(provider.CallbackPath, "{}?# ") {
		return fmt.Errorf("provider %s: callbackPath '%s' contains invalid characters", key, provider.CallbackPath)
	}
	if reservedPaths[provider.CallbackPath] {
		return fmt.Errorf("provider %s: callbackPath '%s' is reserved", key, provider.CallbackPath)
	}
	if provider.Endpoints != nil {
		return validateEndpoints(key, provider)
	}
	return nil
}

func validateEndpoints(key string, provider *ProviderConfig) error {
	endpoints := map[string]string{
		"authURL":  provider.Endpoints.AuthURL,
		"tokenURL": provider.Endpoints.TokenURL,
		"apiURL":   provider.Endpoints.APIURL,
	}
	for name, raw := range endpoints {
		if raw == "" {
			continue
		}
		if err := validateHTTPURL(raw); err != nil {
			return fmt.Errorf("provider %s: endpoints.%s: %w", key, name, err)
		}
	}
	if provider.Kind == ProviderKindGoogleOIDC && provider.Endpoints.APIURL != "" {
		return fmt.Errorf("provider %s: endpoints.apiURL is not used by %s", key, provider.Kind)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
