// Package token mints, verifies, and digests the signed credentials that
// gate access to HomeLink Core.
//
// Two principal kinds exist:
//   - Administrator tokens: short-lived (hours), signature-checked only.
//   - Client tokens: long-lived (years), issued once at pairing completion
//     and revocable out-of-band through the persisted token ledger.
//
// The Service is stateless: every function is pure over its input and the
// server-held signing secret. Revocation lookups live in the pairing
// package; request-time resolution lives in the identity package.
//
// Raw tokens are never persisted. Digest produces the SHA-256 hex string
// that is the only stored representation of a token.
package token
