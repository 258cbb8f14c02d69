package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Gustavo032/leankeep-api-guard/pkg/logging"
)

const (
	userConfigDir  = ".config/lkp"
	configFileName = "config.yaml"
)

// Environment variables that override config.yaml.
const (
	EnvAuthHost  = "LKP_AUTH_HOST"
	EnvAPIHost   = "LKP_API_HOST"
	EnvStorage   = "LKP_STORAGE"
	EnvRedisAddr = "LKP_REDIS_ADDR"
)

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads configuration from configPath/config.yaml over the
// defaults, applies environment overrides and validates the result.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, &ConfigurationError{
				FilePath:    configFilePath,
				ErrorType:   "parse",
				Message:     "malformed YAML",
				Details:     err.Error(),
				Suggestions: []string{"Check indentation and that durations are written like 60s or 12h"},
				Err:         err,
			}
		}
		logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	default:
		return Config{}, &ConfigurationError{
			FilePath:  configFilePath,
			ErrorType: "io",
			Message:   "cannot read configuration file",
			Details:   err.Error(),
			Err:       err,
		}
	}

	ApplyEnv(&config, os.LookupEnv)

	if err := Validate(config); err != nil {
		return Config{}, &ConfigurationError{
			FilePath:  configFilePath,
			ErrorType: "validation",
			Message:   err.Error(),
			Err:       err,
		}
	}
	return config, nil
}

// ApplyEnv overrides cfg with the LKP_* variables found by lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookupNonEmpty(lookup, EnvAuthHost); ok {
		cfg.AuthHost = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvAPIHost); ok {
		cfg.APIHost = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvStorage); ok {
		cfg.Storage.Backend = StorageBackend(strings.ToLower(v))
	}
	if v, ok := lookupNonEmpty(lookup, EnvRedisAddr); ok {
		cfg.Storage.RedisAddr = v
	}
}

func lookupNonEmpty(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
