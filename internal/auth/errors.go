package auth

import (
	"errors"
	"fmt"
)

const (
	// OpLogin identifies a failed login.
	OpLogin = "login"
	// OpRefresh identifies a failed refresh.
	OpRefresh = "refresh"
)

var (
	// ErrBusy is returned when a login or refresh is already in flight.
	ErrBusy = errors.New("an authentication request is already in progress")

	// ErrNoRefreshToken is returned by Refresh when the session holds no
	// refresh token. No request is sent.
	ErrNoRefreshToken = errors.New("refresh token not available")

	// ErrSuperseded is returned by Refresh when the session changed while the
	// request was in flight (logout or a newer login). The answer is discarded.
	ErrSuperseded = errors.New("refresh result discarded: session changed while the request was in flight")

	// ErrMalformedResponse is returned when the identity surface answers 2xx
	// without a usable token pair.
	ErrMalformedResponse = errors.New("malformed identity response")
)

// Error is a failed login or refresh. Message is what the user sees: the
// server-provided message when there is one, otherwise a generic fallback.
type Error struct {
	Op      string
	Message string
	Err     error

	// showCause appends Err to Error() when Message is only the fallback.
	showCause bool
}

func (e *Error) Error() string {
	if e.showCause && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fallbackMessage(op string) string {
	if op == OpRefresh {
		return "token refresh failed"
	}
	return "login failed"
}

// IsAuthError reports whether err is an *Error.
func IsAuthError(err error) bool {
	var authErr *Error
	return errors.As(err, &authErr)
}
