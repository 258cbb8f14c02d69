// Package console implements `lkp console`, a readline prompt that runs lkp
// commands against one long-lived session.
//
// While the prompt is open the console also runs background tasks (the
// token expiry watcher) and follows the storage slot, so a logout in another
// terminal clears this session too. The prompt shows the API host, whether a
// login is needed and whether redaction is off.
package console
