package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	BackendConfig
	StorageConfig
	DevBackendConfig
}

type mainConfig struct {
	EnvVars
	Backend
	Storage
	DevBackend
}

var _ Config = mainConfig{}

// New loads an optional .env file and parses the process environment.
func New() (Config, error) {
	_ = godotenv.Load() // .env is optional

	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("config.New parse environment: %w", err)
	}
	if err := c.Storage.validate(); err != nil {
		return nil, fmt.Errorf("config.New: %w", err)
	}
	return c, nil
}

func MustNew() Config {
	c, err := New()
	if err != nil {
		panic(err)
	}
	return c
}
