package config

import "fmt"

type StoreBackend string

const (
	StoreFile   StoreBackend = "file"
	StoreRedis  StoreBackend = "redis"
	StoreMemory StoreBackend = "memory"
)

type StorageConfig interface {
	GetStoreBackend() StoreBackend
	GetStorePath() string
	GetStoreSecret() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
}

type Storage struct {
	Backend       StoreBackend `env:"STORE_BACKEND" envDefault:"file"`
	Path          string       `env:"STORE_PATH" envDefault:"./data/credentials.json"`
	Secret        string       `env:"STORE_SECRET"`
	RedisAddr     string       `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string       `env:"REDIS_PASSWORD"`
	RedisDB       int          `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string       `env:"REDIS_PREFIX" envDefault:"session-client:"`
}

var _ StorageConfig = Storage{}

func (s Storage) validate() error {
	switch s.Backend {
	case StoreFile, StoreRedis, StoreMemory:
		return nil
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", s.Backend)
	}
}

func (s Storage) GetStoreBackend() StoreBackend {
	return s.Backend
}

func (s Storage) GetStorePath() string {
	return s.Path
}

func (s Storage) GetStoreSecret() string {
	return s.Secret
}

func (s Storage) GetRedisAddr() string {
	return s.RedisAddr
}

func (s Storage) GetRedisPassword() string {
	return s.RedisPassword
}

func (s Storage) GetRedisDB() int {
	return s.RedisDB
}

func (s Storage) GetRedisPrefix() string {
	return s.RedisPrefix
}
