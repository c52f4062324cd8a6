package config

import (
	"time"

	"github.com/joho/godotenv"

	"github.com/Serdarq1/calendar-api/internal/envconfig"
)

type Config struct {
	Port            string `validate:"required"`
	DataStore       string `validate:"required,oneof=postgres memory"`
	DatabaseURL     string `validate:"required_if=DataStore postgres"`
	ShutdownTimeout time.Duration
	Auth            AuthConfig
}

type AuthConfig struct {
	Mode      string `validate:"required,oneof=clerk noop"`
	JWKSURL   string `validate:"required_if=Mode clerk"`
	Audience  string
	Issuer    string
	SecretKey string
}

func Load() (Config, error) {
	// Local development keeps secrets in a .env file; absent is fine.
	_ = godotenv.Load()

	cfg := Config{
		Port:            envconfig.Get("PORT", "8080"),
		DataStore:       envconfig.Get("DATASTORE", "postgres"),
		DatabaseURL:     envconfig.Get("DATABASE_URL", ""),
		ShutdownTimeout: envconfig.GetDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Auth: AuthConfig{
			Mode:      envconfig.Get("AUTH_MODE", "clerk"),
			JWKSURL:   envconfig.Get("CLERK_JWKS_URL", ""),
			Audience:  envconfig.Get("CLERK_AUDIENCE", ""),
			Issuer:    envconfig.Get("CLERK_ISSUER", ""),
			SecretKey: envconfig.Get("CLERK_SECRET_KEY", ""),
		},
	}
	return cfg, envconfig.Validate(cfg)
}
