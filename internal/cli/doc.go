// Package cli holds the presentation layer shared by lkp commands and the
// console.
//
// # Output
//
// Printer writes response bodies as indented JSON, YAML or plain columns
// (PlainTableWriter). When redaction is on, bodies go through the display
// redaction rules before they are written, and request panels and cURL
// exports show a placeholder in place of the bearer token.
//
// RenderAuthStatus and RenderEnv draw the session as go-pretty key/value
// tables with colored status text.
//
// # Errors
//
// AuthRequiredError, AuthExpiredError and AuthFailedError carry the guidance
// text printed to the user; the command layer maps them to exit codes.
// ClassifyConnectionError separates TLS, DNS, timeout and plain network
// failures so an unreachable host is reported as such.
package cli
