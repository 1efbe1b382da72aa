// Package comms defines the typed command/event protocol exchanged
// between relay clients and the server.
//
// Values are encoded as flat JSON objects with a discriminator field
// (`_et` for events, `_ct` for commands) and abbreviated field names.
// The encoding is part of the client compatibility surface and must not
// change.
package comms
