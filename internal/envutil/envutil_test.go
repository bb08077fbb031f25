package envutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDev(t *testing.T) {
	tests := []struct {
		name       string
		gatewayEnv string
		nodeEnv    string
		want       bool
	}{
		{"unset", "", "", false},
		{"gateway development", "development", "", true},
		{"gateway dev shorthand", "DEV", "", true},
		{"gateway production", "production", "development", false},
		{"node fallback", "", "development", true},
		{"node production", "", "production", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GATEWAY_ENV", tt.gatewayEnv)
			t.Setenv("NODE_ENV", tt.nodeEnv)
			assert.Equal(t, tt.want, IsDev())
		})
	}
}
