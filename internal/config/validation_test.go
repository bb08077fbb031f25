package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name          string
		config        string
		wantErrors    []string
		wantWarnings  []string
		wantErrCount  int
		wantWarnCount int
	}{
		{
			name: "valid_config",
			config: `{
				"version": "v1",
				"gateway": {
					"addr": ":8000",
					"baseURL": "http://localhost:8000",
					"dev": true,
					"sessionSecret": {"$env": "SESSION_SECRET"}
				},
				"upstream": {
					"url": "http://localhost:3000",
					"apiKeyToken": {"$env": "API_KEY_TOKEN"},
					"timeout": "10s"
				},
				"providers": {
					"google": {
						"kind": "google-oidc",
						"clientId": {"$env": "GOOGLE_CLIENT_ID"},
						"clientSecret": {"$env": "GOOGLE_CLIENT_SECRET"},
						"callbackPath": "/auth/google/callback",
						"scopes": ["openid", "email", "profile"]
					}
				}
			}`,
			wantErrCount:  0,
			wantWarnCount: 0,
		},
		{
			name: "missing_sections",
			config: `{
				"version": "v1"
			}`,
			wantErrors:    []string{"gateway field is required", "upstream field is required"},
			wantWarnings:  []string{"no providers configured"},
			wantErrCount:  2,
			wantWarnCount: 1,
		},
		{
			name: "wrong_version",
			config: `{
				"version": "v0.0.1-DEV_EDITION",
				"gateway": {"addr": ":8000", "baseURL": "http://x", "dev": false, "sessionSecret": {"$env": "S"}},
				"upstream": {"url": "http://api", "apiKeyToken": {"$env": "K"}},
				"providers": {}
			}`,
			wantErrors:   []string{"unsupported version"},
			wantErrCount: 1,
		},
		{
			name: "plain_text_secrets",
			config: `{
				"version": "v1",
				"gateway": {"addr": ":8000", "baseURL": "http://x", "dev": false, "sessionSecret": "hunter2"},
				"upstream": {"url": "http://api", "apiKeyToken": "key"},
				"providers": {}
			}`,
			wantErrors: []string{
				"sessionSecret must use environment variable reference",
				"apiKeyToken must use environment variable reference",
			},
			wantErrCount: 2,
		},
		{
			name: "bash_style_secret",
			config: `{
				"version": "v1",
				"gateway": {"addr": ":8000", "baseURL": "http://x", "dev": false, "sessionSecret": "${SESSION_SECRET}"},
				"upstream": {"url": "http://api", "apiKeyToken": {"$env": "K"}},
				"providers": {}
			}`,
			wantErrors:    []string{"found bash-style syntax"},
			wantWarnings:  []string{"found bash-style syntax"},
			wantErrCount:  1,
			wantWarnCount: 1,
		},
		{
			name: "bad_provider",
			config: `{
				"version": "v1",
				"gateway": {"addr": ":8000", "baseURL": "http://x", "dev": false, "sessionSecret": {"$env": "S"}},
				"upstream": {"url": "http://api", "apiKeyToken": {"$env": "K"}},
				"providers": {
					"myspace": {
						"kind": "myspace",
						"clientSecret": {"$env": "MS"},
						"callbackPath": "callback"
					}
				}
			}`,
			wantErrors: []string{
				"kind 'myspace' is not supported",
				"clientId is required",
				"callbackPath must be an absolute path",
			},
			wantErrCount: 3,
		},
		{
			name: "callback_outside_auth",
			config: `{
				"version": "v1",
				"gateway": {"addr": ":8000", "baseURL": "http://x", "dev": false, "sessionSecret": {"$env": "S"}},
				"upstream": {"url": "http://api", "apiKeyToken": {"$env": "K"}},
				"providers": {
					"facebook": {
						"kind": "facebook",
						"clientId": "fb",
						"clientSecret": {"$env": "FB"},
						"callbackPath": "/oauth/facebook/callback"
					}
				}
			}`,
			wantErrors:   []string{"callbackPath must be under /auth/"},
			wantErrCount: 1,
		},
		{
			name: "dev_unset_and_zero_timeout",
			config: `{
				"version": "v1",
				"gateway": {"addr": ":8000", "baseURL": "http://x", "sessionSecret": {"$env": "S"}},
				"upstream": {"url": "http://api", "apiKeyToken": {"$env": "K"}, "timeout": "0s"},
				"providers": {}
			}`,
			wantWarnings:  []string{"falling back to GATEWAY_ENV", "timeout is 0"},
			wantWarnCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateFile(writeConfig(t, tt.config))
			require.NoError(t, err)

			assert.Len(t, result.Errors, tt.wantErrCount, "errors: %v", result.Errors)
			assert.Len(t, result.Warnings, tt.wantWarnCount, "warnings: %v", result.Warnings)
			assert.Equal(t, tt.wantErrCount == 0, result.IsValid())

			for _, want := range tt.wantErrors {
				assert.True(t, containsMessage(result.Errors, want), "expected error containing '%s' not found in %v", want, result.Errors)
			}
			for _, want := range tt.wantWarnings {
				assert.True(t, containsMessage(result.Warnings, want), "expected warning containing '%s' not found in %v", want, result.Warnings)
			}
		})
	}
}

func TestValidateFile_InvalidJSON(t *testing.T) {
	result, err := ValidateFile(writeConfig(t, `{invalid json`))
	assert.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "invalid JSON")
}

func TestValidateFile_FileNotFound(t *testing.T) {
	result, err := ValidateFile("/nonexistent/file.json")
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "reading config file")
}

func containsMessage(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
