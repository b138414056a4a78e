package env

import (
	"os"
	"strings"

	"github.com/ekisa-team/litegen/internal/envvar"
)

// Environment is the runtime environment the tool is running in.
type Environment string

const (
	// Development enables human-friendly console logging.
	Development Environment = "development"

	// Production switches logging to JSON.
	Production Environment = "production"
)

// FromEnv reads the environment from LITEGEN_ENV, defaulting to Development.
func FromEnv() Environment {
	return Parse(os.Getenv(envvar.LitegenEnv))
}

// Parse maps a raw value to an Environment. Unknown values fall back to Development.
func Parse(raw string) Environment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prod", "production":
		return Production
	default:
		return Development
	}
}

// IsProduction reports whether e is the production environment.
func (e Environment) IsProduction() bool {
	return e == Production
}
