// Package session provides Redis-backed session persistence, compact binary
// session encoding, and the Pub/Sub identity channel that mounted guards
// watch for sign-in and sign-out transitions.
//
// # Binary encoding
//
// Sessions are stored as a versioned binary blob. Decoding rejects unknown
// versions and truncated input.
//
// # Architecture boundaries
//
// This package owns the [Store], the [Session] model and the [Watcher]. It
// does NOT interpret tokens, load profiles, or make access decisions.
//
// # What this package must NOT do
//
//   - Import goGuard, jwt, or profile (no upward imports).
//   - Block a subscriber callback on Redis I/O after unsubscribe returns.
package session
