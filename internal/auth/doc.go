// Package auth drives the session through its two states, unauthenticated
// and authenticated.
//
// Controller performs login and refresh against the identity surface and
// writes the normalized token pair into the session. Watcher polls the
// session on a fixed interval and clears it once the bearer token expires.
//
// Failed calls never touch the stored tokens. Overlapping login or refresh
// calls are rejected with ErrBusy, and a refresh answer that arrives after
// the session was cleared or replaced is dropped with ErrSuperseded.
package auth
