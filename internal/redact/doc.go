// Package redact masks sensitive values before they reach logs, the terminal
// or a copied cURL command.
//
// There are two independent policies and they are deliberately kept apart:
//
//   - Transport redaction (Value, Headers, HTTPHeader, Body) is applied to
//     every request and response before logging. Keys are matched against a
//     deny-list after lower-casing and stripping '-' and '_'; matching values
//     become "[REDACTED]" whatever their type.
//
//   - Display redaction (Response, TruncateToken) is applied on demand to
//     what the user sees. It uses a narrower field list, keeps a short prefix
//     and suffix of long values so tokens stay recognisable, and masks email
//     addresses anywhere in string values.
//
// BuildCurl only ever redacts the Authorization header. A caller that asks
// for secrets gets the full body.
//
// Values of unexpected shape are passed through unchanged rather than
// causing an error.
package redact
