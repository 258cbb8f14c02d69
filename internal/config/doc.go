// Package config provides configuration loading for lkp.
//
// Configuration is read from a single directory. The default directory is
// ~/.config/lkp; users can point elsewhere with the --config-path flag.
//
// # Configuration File
//
// The directory may contain a config.yaml:
//
//	authHost: https://auth.lkp.app.br
//	apiHost: https://api.lkp.app.br
//	storage:
//	  backend: file        # file, memory or redis
//	  dir: ""              # default ~/.config/lkp/session
//	  redisAddr: ""        # host:port, required for redis
//	  redisPrefix: lkp
//	  redisTTL: 12h
//	expiryCheckInterval: 60s
//	requestTimeout: 30s
//	logLevel: warn
//
// A missing file means defaults. A file that cannot be parsed, or that
// fails validation, is an error; lkp does not fall back to defaults in that
// case.
//
// # Environment Overrides
//
// The following variables override the file:
//   - LKP_AUTH_HOST
//   - LKP_API_HOST
//   - LKP_STORAGE (backend name)
//   - LKP_REDIS_ADDR
//
// Hosts configured here are the starting values of a new session. Hosts set
// with `lkp env set` are stored in the session and win over the file.
package config
