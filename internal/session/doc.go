// Package session holds the console's session state: the two API hosts, the
// tenant context identifiers, the current token pair with its expiry
// bookkeeping, and the redact display preference.
//
// A Store is an explicit object owned by the command that created it and
// shared by reference with the transport and auth layers. Every mutation
// replaces the whole state under a lock and, except ToggleRedact, is
// followed by a full snapshot write to the configured Storage slot. Logout
// deletes the slot instead of writing nulls.
//
// Storage failures are logged and swallowed: a console that cannot persist
// still works for the lifetime of the process, and a corrupt or missing slot
// means "no prior session".
//
// Backends:
//
//   - MemoryStorage keeps the slot in process memory.
//   - FileStorage keeps one 0600 JSON file per slot and can watch it for
//     changes made by another console process.
//   - RedisStorage keeps the slot in Redis with a TTL so it dies with the
//     working session.
package session
