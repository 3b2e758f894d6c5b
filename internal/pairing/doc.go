// Package pairing implements PIN-based device enrolment for HomeLink Core.
//
// A pairing session is a short-lived record coordinating trust bootstrap:
// an administrator creates a session and reads its 6-digit PIN to the
// device owner; the device submits the PIN to advance the session; the
// administrator then completes the session, naming the client and
// assigning areas, which mints the client's long-lived credential.
//
// # State machine
//
//	pending -> verified -> completed
//	pending/verified -> expired (lazy on use, plus a periodic sweep)
//
// Status only advances forward. Once completed or expired a session is
// never mutated again. The pending->verified transition is a single
// conditional UPDATE whose affected-row count resolves concurrent verify
// attempts to exactly one winner.
//
// # Persistence
//
// Sessions, clients, area assignments, and the client-token revocation
// ledger live in SQLite. Raw tokens are never persisted; the ledger
// stores SHA-256 digests only.
package pairing
