package config

import (
	"fmt"
	"time"
)

type DevBackendConfig interface {
	GetDevAddr() string
	GetDevSecret() string
	GetDevAccessTokenExpiry() time.Duration
	GetDevRefreshTokenExpiry() time.Duration
	GetDevRotateRefresh() bool
}

// DevBackend configures the local stand-in for the auth API
type DevBackend struct {
	Port            string        `env:"DEV_PORT" envDefault:"8081"`
	Secret          string        `env:"DEV_SECRET" envDefault:"dev-signing-secret"`
	AccessTokenTTL  time.Duration `env:"DEV_ACCESS_TTL" envDefault:"5m"`
	RefreshTokenTTL time.Duration `env:"DEV_REFRESH_TTL" envDefault:"168h"`
	RotateRefresh   bool          `env:"DEV_ROTATE_REFRESH" envDefault:"false"`
}

var _ DevBackendConfig = DevBackend{}

func (d DevBackend) GetDevAddr() string {
	port := d.Port
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (d DevBackend) GetDevSecret() string {
	return d.Secret
}

func (d DevBackend) GetDevAccessTokenExpiry() time.Duration {
	return d.AccessTokenTTL
}

func (d DevBackend) GetDevRefreshTokenExpiry() time.Duration {
	return d.RefreshTokenTTL
}

func (d DevBackend) GetDevRotateRefresh() bool {
	return d.RotateRefresh
}
