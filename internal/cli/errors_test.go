package cli

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthRequiredError(t *testing.T) {
	t.Run("error message includes host and guidance", func(t *testing.T) {
		err := &AuthRequiredError{Host: "https://auth.example.com"}
		msg := err.Error()

		if !strings.Contains(msg, "https://auth.example.com") {
			t.Error("expected error message to contain host")
		}
		if !strings.Contains(msg, "lkp auth login") {
			t.Error("expected error message to contain login command")
		}
		if !strings.Contains(msg, "lkp auth status") {
			t.Error("expected error message to contain status command")
		}
	})

	t.Run("Is returns true for same type", func(t *testing.T) {
		err1 := &AuthRequiredError{Host: "https://example.com"}
		err2 := &AuthRequiredError{Host: "https://other.com"}

		if !err1.Is(err2) {
			t.Error("expected Is to return true for same type")
		}
	})

	t.Run("Is returns false for different type", func(t *testing.T) {
		err1 := &AuthRequiredError{Host: "https://example.com"}

		if err1.Is(errors.New("some error")) {
			t.Error("expected Is to return false for different type")
		}
	})

	t.Run("errors.Is works with wrapped error", func(t *testing.T) {
		wrappedErr := fmt.Errorf("wrapped: %w", &AuthRequiredError{Host: "https://example.com"})

		if !errors.Is(wrappedErr, &AuthRequiredError{}) {
			t.Error("expected errors.Is to find wrapped AuthRequiredError")
		}
	})
}

func TestAuthExpiredError(t *testing.T) {
	t.Run("refresh hint only when a refresh token is held", func(t *testing.T) {
		withRefresh := (&AuthExpiredError{Host: "https://auth.example.com", CanRefresh: true}).Error()
		without := (&AuthExpiredError{Host: "https://auth.example.com"}).Error()

		assert.Contains(t, withRefresh, "expired")
		assert.Contains(t, withRefresh, "lkp auth login")
		assert.Contains(t, withRefresh, "lkp auth refresh")
		assert.Contains(t, without, "lkp auth login")
		assert.NotContains(t, without, "lkp auth refresh")
	})

	t.Run("Is returns false for AuthRequiredError", func(t *testing.T) {
		err := &AuthExpiredError{Host: "https://example.com"}
		assert.False(t, err.Is(&AuthRequiredError{}))
	})
}

func TestAuthFailedError(t *testing.T) {
	reason := errors.New("Usuário ou senha inválidos")
	err := &AuthFailedError{Host: "https://auth.example.com", Reason: reason}

	t.Run("error message includes host and reason", func(t *testing.T) {
		msg := err.Error()
		assert.Contains(t, msg, "https://auth.example.com")
		assert.Contains(t, msg, "Usuário ou senha inválidos")
		assert.Contains(t, msg, "lkp auth login")
	})

	t.Run("Unwrap returns underlying error", func(t *testing.T) {
		assert.Same(t, reason, errors.Unwrap(err))
		assert.ErrorIs(t, fmt.Errorf("login: %w", err), reason)
	})

	t.Run("errors.As finds the wrapped error", func(t *testing.T) {
		var target *AuthFailedError
		assert.True(t, errors.As(fmt.Errorf("outer: %w", err), &target))
		assert.Equal(t, "https://auth.example.com", target.Host)
	})
}

func TestConnectionErrorType(t *testing.T) {
	tests := []struct {
		name     string
		errType  ConnectionErrorType
		expected string
	}{
		{"unknown", ConnectionErrorUnknown, "Connection error"},
		{"tls", ConnectionErrorTLS, "TLS certificate error"},
		{"network", ConnectionErrorNetwork, "Network error"},
		{"timeout", ConnectionErrorTimeout, "Connection timeout"},
		{"dns", ConnectionErrorDNS, "DNS resolution error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.errType.String())
		})
	}
}

func TestConnectionError(t *testing.T) {
	t.Run("message names the host and the cause", func(t *testing.T) {
		err := &ConnectionError{
			Host:   "https://api.example.com",
			Type:   ConnectionErrorNetwork,
			Reason: errors.New("dial tcp 127.0.0.1:443: connect: connection refused"),
		}
		msg := err.Error()

		assert.Contains(t, msg, "Network error")
		assert.Contains(t, msg, "https://api.example.com")
		assert.Contains(t, msg, "connection refused")
		assert.Contains(t, msg, "lkp env show")
	})

	t.Run("timeout mentions the request timeout setting", func(t *testing.T) {
		err := &ConnectionError{Host: "h", Type: ConnectionErrorTimeout, Reason: context.DeadlineExceeded}
		assert.Contains(t, err.Error(), "requestTimeout")
	})

	t.Run("unknown shows basic info only", func(t *testing.T) {
		err := &ConnectionError{Host: "h", Type: ConnectionErrorUnknown, Reason: errors.New("boom")}
		assert.Equal(t, "Connection error: could not reach h: boom", err.Error())
	})

	t.Run("Unwrap returns underlying error", func(t *testing.T) {
		reason := errors.New("boom")
		err := &ConnectionError{Reason: reason}
		assert.ErrorIs(t, err, reason)
	})
}

func TestClassifyConnectionError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		assert.Nil(t, ClassifyConnectionError(nil, "https://h"))
	})

	tests := []struct {
		name     string
		err      error
		expected ConnectionErrorType
	}{
		{
			name:     "x509 unknown authority is TLS",
			err:      fmt.Errorf("Get: %w", x509.UnknownAuthorityError{}),
			expected: ConnectionErrorTLS,
		},
		{
			name:     "x509 HostnameError is TLS",
			err:      &x509.HostnameError{Host: "api.example.com", Certificate: &x509.Certificate{}},
			expected: ConnectionErrorTLS,
		},
		{
			name:     "TLS handshake message is TLS",
			err:      errors.New("remote error: tls: handshake failure"),
			expected: ConnectionErrorTLS,
		},
		{
			name:     "DNS error",
			err:      fmt.Errorf("Get: %w", &net.DNSError{Err: "no such host", Name: "api.invalid"}),
			expected: ConnectionErrorDNS,
		},
		{
			name:     "deadline is timeout",
			err:      fmt.Errorf("Get: %w", context.DeadlineExceeded),
			expected: ConnectionErrorTimeout,
		},
		{
			name:     "connection refused is network",
			err:      errors.New("dial tcp 127.0.0.1:1: connect: connection refused"),
			expected: ConnectionErrorNetwork,
		},
		{
			name:     "anything else is unknown",
			err:      errors.New("unexpected EOF"),
			expected: ConnectionErrorUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := ClassifyConnectionError(tt.err, "https://api.example.com")
			assert.Equal(t, tt.expected, ce.Type)
			assert.Equal(t, "https://api.example.com", ce.Host)
			assert.Same(t, tt.err, ce.Reason)
		})
	}
}
