// Package logging provides the structured logging used across the API
// console, built on Go's standard slog package.
//
// Messages are tagged with a subsystem so entries from the session store,
// the transport layer and the auth controller can be told apart:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//	logging.Info("Session", "Restored session from %s", key)
//	logging.Error("Auth", err, "Login failed")
//
// Structured entries (the request/response log lines) go through Attrs:
//
//	logging.Attrs(logging.LevelInfo, "Transport", "request",
//	    slog.String("method", "GET"),
//	    slog.Any("headers", redactedHeaders))
//
// Nothing in this package redacts. Callers pass values that are already
// safe to print; see package redact.
//
// # Audit Logging
//
// Session lifecycle events (token stored, cleared, expired) are logged with
// Audit at INFO level and an [AUDIT] prefix. Audit events never carry token
// values.
package logging
