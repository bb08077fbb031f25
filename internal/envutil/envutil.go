package envutil

import (
	"os"
	"strings"
)

// IsDev reports whether GATEWAY_ENV, or NODE_ENV when it is unset, selects
// development mode. Development relaxes cookie flags so the gateway can be
// exercised over plain HTTP.
func IsDev() bool {
	env := os.Getenv("GATEWAY_ENV")
	if env == "" {
		env = os.Getenv("NODE_ENV")
	}
	switch strings.ToLower(env) {
	case "development", "dev":
		return true
	}
	return false
}
