package config

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError represents a structured error that occurs during configuration loading
type ConfigurationError struct {
	FilePath    string   `json:"filePath"`    // Full path to the file that caused the error
	ErrorType   string   `json:"errorType"`   // Type of error (parse, validation, io)
	Message     string   `json:"message"`     // Human-readable error message
	Details     string   `json:"details"`     // Additional details about the error
	Suggestions []string `json:"suggestions"` // Actionable suggestions to fix the error
	Err         error    `json:"-"`
}

// Error implements the error interface
func (ce *ConfigurationError) Error() string {
	if ce.FilePath == "" {
		return fmt.Sprintf("[%s] %s", ce.ErrorType, ce.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", ce.ErrorType, ce.FilePath, ce.Message)
}

func (ce *ConfigurationError) Unwrap() error {
	return ce.Err
}

// DetailedError returns a detailed error message with all context
func (ce *ConfigurationError) DetailedError() string {
	var parts []string

	parts = append(parts, "Configuration Error")
	if ce.FilePath != "" {
		parts = append(parts, fmt.Sprintf("  File: %s", ce.FilePath))
	}
	parts = append(parts, fmt.Sprintf("  Type: %s", ce.ErrorType))
	parts = append(parts, fmt.Sprintf("  Error: %s", ce.Message))

	if ce.Details != "" {
		parts = append(parts, fmt.Sprintf("  Details: %s", ce.Details))
	}

	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}

	return strings.Join(parts, "\n")
}

// IsConfigurationError reports whether err is a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
