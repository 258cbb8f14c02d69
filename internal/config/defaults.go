package config

import (
	"time"

	"github.com/Gustavo032/leankeep-api-guard/internal/session"
)

const (
	// DefaultExpiryCheckInterval is how often the console checks the token.
	DefaultExpiryCheckInterval = 60 * time.Second

	// DefaultRequestTimeout bounds a single HTTP exchange.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultRedisPrefix namespaces session slots in Redis.
	DefaultRedisPrefix = "lkp"

	// DefaultLogLevel keeps the CLI quiet unless something goes wrong.
	DefaultLogLevel = "warn"
)

// GetDefaultConfig returns the configuration used when no file exists.
func GetDefaultConfig() Config {
	return Config{
		AuthHost: session.DefaultAuthHost,
		APIHost:  session.DefaultAPIHost,
		Storage: StorageConfig{
			Backend:     StorageFile,
			RedisPrefix: DefaultRedisPrefix,
			RedisTTL:    session.DefaultRedisTTL,
		},
		ExpiryCheckInterval: DefaultExpiryCheckInterval,
		RequestTimeout:      DefaultRequestTimeout,
		LogLevel:            DefaultLogLevel,
	}
}
