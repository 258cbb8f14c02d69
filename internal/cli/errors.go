package cli

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ConnectionErrorType categorizes the type of connection error.
type ConnectionErrorType int

const (
	// ConnectionErrorUnknown indicates an unclassified connection error.
	ConnectionErrorUnknown ConnectionErrorType = iota
	// ConnectionErrorTLS indicates a TLS/certificate verification error.
	ConnectionErrorTLS
	// ConnectionErrorNetwork indicates a network connectivity error (e.g., refused, unreachable).
	ConnectionErrorNetwork
	// ConnectionErrorTimeout indicates a connection timeout.
	ConnectionErrorTimeout
	// ConnectionErrorDNS indicates a DNS resolution failure.
	ConnectionErrorDNS
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "Network error"
	case ConnectionErrorTimeout:
		return "Connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// ConnectionError indicates a host could not be reached at all, as opposed
// to a host that answered with an error status.
type ConnectionError struct {
	// Host is the base URL that could not be reached.
	Host string
	// Type categorizes the connection error.
	Type ConnectionErrorType
	// Reason is the underlying error.
	Reason error
}

// Error returns the category, host and cause on one line followed by a hint.
func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("%s: could not reach %s: %v", e.Type, e.Host, e.Reason)
	switch e.Type {
	case ConnectionErrorTLS:
		return msg + "\n\nCheck the host URL and the system certificate store."
	case ConnectionErrorDNS, ConnectionErrorNetwork:
		return msg + "\n\nCheck the host with:\n  lkp env show"
	case ConnectionErrorTimeout:
		return msg + "\n\nRaise requestTimeout in the config file if the API is slow."
	default:
		return msg
	}
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// ClassifyConnectionError analyzes an error and returns a ConnectionError with the appropriate type.
// If the error is nil, returns nil.
func ClassifyConnectionError(err error, host string) *ConnectionError {
	if err == nil {
		return nil
	}

	ce := &ConnectionError{Host: host, Type: ConnectionErrorUnknown, Reason: err}

	var dnsErr *net.DNSError
	switch {
	case isTLSError(err):
		ce.Type = ConnectionErrorTLS
	case errors.As(err, &dnsErr):
		ce.Type = ConnectionErrorDNS
	case isTimeoutError(err):
		ce.Type = ConnectionErrorTimeout
	case isNetworkError(err.Error()):
		ce.Type = ConnectionErrorNetwork
	}
	return ce
}

// isTLSError checks if the error is related to TLS/certificate issues.
func isTLSError(err error) bool {
	if err == nil {
		return false
	}

	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError
	var systemRootsErr *x509.SystemRootsError

	if errors.As(err, &certErr) || errors.As(err, &hostErr) ||
		errors.As(err, &unknownAuthErr) || errors.As(err, &systemRootsErr) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{"x509:", "certificate", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// isTimeoutError checks if the error is a timeout.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if the error string indicates a network connectivity issue.
func isNetworkError(errStr string) bool {
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
		"connect:",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// AuthRequiredError indicates a command needs a session token and none is held.
type AuthRequiredError struct {
	// Host is the identity host the user should log in against.
	Host string
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf(`Authentication required for %s

To authenticate, run:
  lkp auth login --login <user>

To check current authentication status:
  lkp auth status`, e.Host)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthRequiredError) Is(target error) bool {
	_, ok := target.(*AuthRequiredError)
	return ok
}

// AuthExpiredError indicates the held token is past its expiry.
type AuthExpiredError struct {
	// Host is the identity host that issued the token.
	Host string
	// CanRefresh is set when a refresh token is still held.
	CanRefresh bool
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthExpiredError) Error() string {
	msg := fmt.Sprintf(`Authentication expired for %s

To re-authenticate, run:
  lkp auth login --login <user>`, e.Host)
	if e.CanRefresh {
		msg += `

Or try to refresh your token:
  lkp auth refresh`
	}
	return msg
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthExpiredError) Is(target error) bool {
	_, ok := target.(*AuthExpiredError)
	return ok
}

// AuthFailedError indicates a login or refresh attempt was rejected.
type AuthFailedError struct {
	// Host is the identity host that rejected the attempt.
	Host string
	// Reason is the underlying error.
	Reason error
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthFailedError) Error() string {
	return fmt.Sprintf(`Authentication failed for %s: %v

To retry authentication, run:
  lkp auth login --login <user>`, e.Host, e.Reason)
}

// Unwrap returns the underlying error.
func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthFailedError) Is(target error) bool {
	_, ok := target.(*AuthFailedError)
	return ok
}
