package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds all configuration for the identity module.
type Config struct {
	// JWT configuration for the authentication guard
	JWTSecretKey   string        `env:"JWT_SECRET_KEY,required"`
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"filmlog-identity"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`

	// Password hashing cost for the local identity provider
	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load identity configuration from environment: " + err.Error())
	}

	if cfg.JWTSecretKey == "" {
		return nil, errors.New("jwt_secret_key is required")
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, errors.New("access token TTL must be positive")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("bcrypt cost out of range")
	}

	return cfg, nil
}
