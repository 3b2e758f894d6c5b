// Package identity resolves bearer tokens into authenticated principals.
//
// Two kinds of principal exist: the single configured administrator,
// authenticated by username and Argon2id password hash and carrying an
// admin JWT, and paired clients carrying long-lived client JWTs that are
// additionally checked against the revocation ledger on every request.
package identity
