package config

import (
	"strings"
	"time"
)

type BackendConfig interface {
	GetBaseURL() string
	GetRefreshPath() string
	GetIdentityPath() string
	GetRequestTimeout() time.Duration
}

// Backend locates the remote auth API
type Backend struct {
	BaseURL        string        `env:"API_BASE_URL" envDefault:"http://localhost:8081"`
	RefreshPath    string        `env:"API_REFRESH_PATH" envDefault:"/token/refresh"`
	IdentityPath   string        `env:"API_IDENTITY_PATH" envDefault:"/users/me"`
	RequestTimeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
}

var _ BackendConfig = Backend{}

func (b Backend) GetBaseURL() string {
	return strings.TrimRight(b.BaseURL, "/")
}

func (b Backend) GetRefreshPath() string {
	return b.RefreshPath
}

func (b Backend) GetIdentityPath() string {
	return b.IdentityPath
}

func (b Backend) GetRequestTimeout() time.Duration {
	if b.RequestTimeout <= 0 {
		return 10 * time.Second
	}
	return b.RequestTimeout
}
