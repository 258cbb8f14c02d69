package config

import "time"

// StorageBackend selects where the session slot lives.
type StorageBackend string

const (
	StorageFile   StorageBackend = "file"
	StorageMemory StorageBackend = "memory"
	StorageRedis  StorageBackend = "redis"
)

// Config is the top-level configuration structure for lkp.
type Config struct {
	AuthHost            string        `yaml:"authHost" validate:"required,url"`
	APIHost             string        `yaml:"apiHost" validate:"required,url"`
	Storage             StorageConfig `yaml:"storage"`
	ExpiryCheckInterval time.Duration `yaml:"expiryCheckInterval" validate:"gt=0"`
	RequestTimeout      time.Duration `yaml:"requestTimeout" validate:"gt=0"`
	LogLevel            string        `yaml:"logLevel" validate:"omitempty,oneof=debug info warn warning error"`
}

// StorageConfig configures the session storage backend.
type StorageConfig struct {
	Backend     StorageBackend `yaml:"backend" validate:"oneof=file memory redis"`
	Dir         string         `yaml:"dir,omitempty"`
	RedisAddr   string         `yaml:"redisAddr,omitempty" validate:"required_if=Backend redis"`
	RedisPrefix string         `yaml:"redisPrefix,omitempty"`
	RedisTTL    time.Duration  `yaml:"redisTTL,omitempty" validate:"gte=0"`
}
