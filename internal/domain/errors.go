package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports context identifiers that must be configured before
// an operation can be sent.
type ConfigError struct {
	Operation string
	Missing   []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s must be configured", e.Operation, strings.Join(e.Missing, ", "))
}

// IsConfigError reports whether err is a *ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// InputError wraps a rejected operation argument.
type InputError struct {
	Operation string
	Err       error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: invalid input: %v", e.Operation, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}
