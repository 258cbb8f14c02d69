// Package transport is the request interceptor layer between the console and
// the two HTTP surfaces it talks to: the identity surface (login, refresh)
// and the domain surface (occurrences, corrections, activities).
//
// A request travels through a chain of middlewares before reaching the
// Doer that performs the HTTP exchange:
//
//	WithBaseHost -> WithBearer -> WithLogging -> HTTPDoer
//
// The chain only reads the session. Nothing in this package writes tokens
// or clears state; failed calls are reported as *Error and never retried.
package transport
