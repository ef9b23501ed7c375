package config

import (
	"github.com/caarlos0/env/v11"

	"agency-hub/internal/config/configs"
)

// Config aggregates all configuration sections for the application. Fields
// are populated from environment variables using the caarlos0/env library.
// The nested structs are tagged with envPrefix so their fields are parsed
// with the given prefix. Use Load to construct a Config.
type Config struct {
	// Env specifies the deployment environment (e.g. prod, dev).
	Env string `env:"ENV" envDefault:"prod"`

	// HTTP holds configuration for the HTTP server. Environment variables
	// prefixed with HTTP_ will populate this struct.
	HTTP configs.HTTP `envPrefix:"HTTP_"`

	// Log configures the structured logger (LOG_).
	Log configs.Logger `envPrefix:"LOG_"`

	// Storage selects the backing store and broadcast backends (STORAGE_).
	Storage configs.Storage `envPrefix:"STORAGE_"`

	// Psql configures the PostgreSQL connection (PSQL_).
	Psql configs.Postgres `envPrefix:"PSQL_"`

	// Redis configures the Redis connection (REDIS_).
	Redis configs.Redis `envPrefix:"REDIS_"`

	// Quota configures account limits (QUOTA_).
	Quota configs.Quota `envPrefix:"QUOTA_"`
}

// Load reads configuration from environment variables into a Config. If
// parsing fails, an error is returned. All fields are loaded with their
// specified defaults when no environment variable is provided.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
