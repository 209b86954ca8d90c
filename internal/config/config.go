// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageSQLite = "sqlite"
	StorageBadger = "badger"
)

var validate = validator.New()

// Config holds every setting the server reads at startup.
type Config struct {
	Port       int           `env:"ROOMIESPLIT_PORT"        envDefault:"8080"                   validate:"min=1,max=65535"`
	Storage    string        `env:"ROOMIESPLIT_STORAGE"     envDefault:"sqlite"                 validate:"oneof=sqlite badger"`
	DBPath     string        `env:"ROOMIESPLIT_DB_PATH"     envDefault:"./data/roomiesplit.db"  validate:"required_if=Storage sqlite"`
	BadgerDir  string        `env:"ROOMIESPLIT_BADGER_DIR"  envDefault:"./data/badger"          validate:"required_if=Storage badger"`
	MaxMembers int           `env:"ROOMIESPLIT_MAX_MEMBERS" envDefault:"5"                      validate:"min=1,max=19"`
	JWTSecret  string        `env:"ROOMIESPLIT_JWT_SECRET"                                      validate:"required,min=32"`
	TokenTTL   time.Duration `env:"ROOMIESPLIT_TOKEN_TTL"   envDefault:"24h"                    validate:"gt=0s"`
	LoginSkew  time.Duration `env:"ROOMIESPLIT_LOGIN_SKEW"  envDefault:"5m"                     validate:"gt=0s"`
	LogLevel   string        `env:"ROOMIESPLIT_LOG_LEVEL"   envDefault:"info"                   validate:"oneof=debug info warn error"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return parse(env.Options{})
}

// LoadFrom reads settings from environ instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
