package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// ValidationResult holds validation errors and warnings
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// ValidationError represents a validation issue
type ValidationError struct {
	Path    string
	Message string
}

// IsValid returns true if there are no errors
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

var bashStyleRegex = regexp.MustCompile(`\$\{?([A-Z_][A-Z0-9_]*)\}?`)

// ValidateFile validates a config file structure without requiring env vars
func ValidateFile(path string) (*ValidationResult, error) {
	result := &ValidationResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
		})
		return result, nil
	}

	checkBashStyleSyntax(rawConfig, "", result)

	version, ok := rawConfig["version"].(string)
	if !ok {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "version",
			Message: fmt.Sprintf("version field is required. Hint: Add \"version\": \"%s\"", Version),
		})
	} else if version != Version {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "version",
			Message: fmt.Sprintf("unsupported version '%s' - use '%s'", version, Version),
		})
	}

	validateGatewayStructure(rawConfig, result)
	validateUpstreamStructure(rawConfig, result)
	validateProvidersStructure(rawConfig, result)

	return result, nil
}

func validateGatewayStructure(rawConfig map[string]any, result *ValidationResult) {
	gateway, ok := rawConfig["gateway"].(map[string]any)
	if !ok {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "gateway",
			Message: "gateway field is required and must be an object",
		})
		return
	}

	if _, ok := gateway["addr"]; !ok {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "gateway.addr",
			Message: "addr is required. Example: \":8000\" or \"0.0.0.0:8000\"",
		})
	}
	if _, ok := gateway["baseURL"]; !ok {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "gateway.baseURL",
			Message: "baseURL is required. Example: \"https://auth.example.com\"",
		})
	}

	if secret, ok := gateway["sessionSecret"]; ok {
		if err := validateEnvVarReference(secret, "sessionSecret", "gateway.sessionSecret"); err != nil {
			result.Errors = append(result.Errors, *err)
		}
	} else {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "gateway.sessionSecret",
			Message: "sessionSecret is required. Hint: {\"$env\": \"SESSION_SECRET\"} with at least 32 random bytes",
		})
	}

	if dev, ok := gateway["dev"]; ok {
		if _, isBool := dev.(bool); !isBool {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "gateway.dev",
				Message: fmt.Sprintf("dev must be a boolean, not %T", dev),
			})
		}
	} else {
		result.Warnings = append(result.Warnings, ValidationError{
			Path:    "gateway.dev",
			Message: "dev is not set - falling back to GATEWAY_ENV/NODE_ENV at startup",
		})
	}

	if origins, ok := gateway["allowedOrigins"]; ok {
		if _, isArray := origins.([]any); !isArray {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "gateway.allowedOrigins",
				Message: "allowedOrigins must be an array of origins",
			})
		}
	}
}

func validateUpstreamStructure(rawConfig map[string]any, result *ValidationResult) {
	upstream, ok := rawConfig["upstream"].(map[string]any)
	if !ok {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "upstream",
			Message: "upstream field is required and must be an object",
		})
		return
	}

	if _, ok := upstream["url"]; !ok {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "upstream.url",
			Message: "url is required. Example: \"http://localhost:3000\"",
		})
	}

	if key, ok := upstream["apiKeyToken"]; ok {
		if err := validateEnvVarReference(key, "apiKeyToken", "upstream.apiKeyToken"); err != nil {
			result.Errors = append(result.Errors, *err)
		}
	} else {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "upstream.apiKeyToken",
			Message: "apiKeyToken is required. Hint: {\"$env\": \"API_KEY_TOKEN\"}",
		})
	}

	if timeout, ok := upstream["timeout"].(string); ok {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "upstream.timeout",
				Message: fmt.Sprintf("invalid duration '%s'. Example: \"10s\"", timeout),
			})
		} else if d == 0 {
			result.Warnings = append(result.Warnings, ValidationError{
				Path:    "upstream.timeout",
				Message: "timeout is 0 - upstream calls are only bounded by the client connection",
			})
		}
	}
}

func validateProvidersStructure(rawConfig map[string]any, result *ValidationResult) {
	raw, ok := rawConfig["providers"]
	if !ok {
		result.Warnings = append(result.Warnings, ValidationError{
			Path:    "providers",
			Message: "no providers configured - only local sign-in will be available",
		})
		return
	}
	providers, ok := raw.(map[string]any)
	if !ok {
		result.Errors = append(result.Errors, ValidationError{
			Path:    "providers",
			Message: "providers must be an object keyed by route name",
		})
		return
	}

	for key, p := range providers {
		path := "providers." + key
		provider, ok := p.(map[string]any)
		if !ok {
			result.Errors = append(result.Errors, ValidationError{
				Path:    path,
				Message: "provider must be an object",
			})
			continue
		}

		if reservedRouteKeys[key] || strings.Contains(key, "/") {
			result.Errors = append(result.Errors, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("'%s' cannot be used as a provider route key", key),
			})
		}

		kind, _ := provider["kind"].(string)
		if !ProviderKind(kind).Valid() {
			result.Errors = append(result.Errors, ValidationError{
				Path:    path + ".kind",
				Message: fmt.Sprintf("kind '%s' is not supported. Options: google-oidc, google-oauth, twitter, linkedin, facebook", kind),
			})
		}

		if _, ok := provider["clientId"]; !ok {
			result.Errors = append(result.Errors, ValidationError{
				Path:    path + ".clientId",
				Message: "clientId is required",
			})
		}

		if secret, ok := provider["clientSecret"]; ok {
			if err := validateEnvVarReference(secret, "clientSecret", path+".clientSecret"); err != nil {
				result.Errors = append(result.Errors, *err)
			}
		} else {
			result.Errors = append(result.Errors, ValidationError{
				Path:    path + ".clientSecret",
				Message: "clientSecret is required",
			})
		}

		callback, _ := provider["callbackPath"].(string)
		if !strings.HasPrefix(callback, "/") {
			result.Errors = append(result.Errors, ValidationError{
				Path:    path + ".callbackPath",
				Message: fmt.Sprintf("callbackPath must be an absolute path. Example: \"/auth/%s/callback\"", key),
			})
		} else if !strings.HasPrefix(callback, CallbackPrefix) || callback == CallbackPrefix {
			result.Errors = append(result.Errors, ValidationError{
				Path:    path + ".callbackPath",
				Message: fmt.Sprintf("callbackPath must be under %s. Example: \"/auth/%s/callback\"", CallbackPrefix, key),
			})
		}

		if scopes, ok := provider["scopes"]; ok {
			if list, isArray := scopes.([]any); !isArray || len(list) == 0 {
				result.Errors = append(result.Errors, ValidationError{
					Path:    path + ".scopes",
					Message: "scopes must be a non-empty array when set",
				})
			}
		}
	}
}

// validateEnvVarReference validates that a field uses proper env var reference format
func validateEnvVarReference(value any, fieldName, path string) *ValidationError {
	switch v := value.(type) {
	case string:
		if matches := bashStyleRegex.FindStringSubmatch(v); len(matches) > 1 {
			return &ValidationError{
				Path:    path,
				Message: fmt.Sprintf("found bash-style syntax '%s' - use {\"$env\": \"%s\"} instead", v, matches[1]),
			}
		}
		return &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("%s must use environment variable reference {\"$env\": \"YOUR_ENV_VAR\"} instead of plain text. Hint: This prevents secrets from being stored in config files", fieldName),
		}
	case map[string]any:
		if _, hasEnv := v["$env"]; !hasEnv {
			return &ValidationError{
				Path:    path,
				Message: fmt.Sprintf("%s must use {\"$env\": \"YOUR_ENV_VAR\"} format", fieldName),
			}
		}
		return nil
	default:
		return &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("%s must be an environment variable reference {\"$env\": \"YOUR_ENV_VAR\"}, not %T", fieldName, value),
		}
	}
}

// checkBashStyleSyntax recursively checks for bash-style env var syntax
func checkBashStyleSyntax(value any, path string, result *ValidationResult) {
	switch v := value.(type) {
	case string:
		for _, match := range bashStyleRegex.FindAllString(v, -1) {
			varName := strings.Trim(match, "${}")
			result.Warnings = append(result.Warnings, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("found bash-style syntax '%s' - use {\"$env\": \"%s\"} instead", match, varName),
			})
		}
	case map[string]any:
		if _, hasEnv := v["$env"]; hasEnv {
			return
		}
		for key, val := range v {
			newPath := key
			if path != "" {
				newPath = path + "." + key
			}
			checkBashStyleSyntax(val, newPath, result)
		}
	case []any:
		for i, item := range v {
			checkBashStyleSyntax(item, fmt.Sprintf("%s[%d]", path, i), result)
		}
	}
}
