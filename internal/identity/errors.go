package identity

import "errors"

// Sentinel errors for authentication. The API layer maps all of them to
// 401 responses; the distinctions exist for logging and for clients that
// want to stop retrying on revocation.
var (
	ErrMissingToken   = errors.New("no token presented")
	ErrMalformedToken = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenInvalid   = errors.New("token is not valid")
	ErrTokenRevoked   = errors.New("token has been revoked")
	ErrClientInactive = errors.New("client is deactivated")

	ErrBadCredentials = errors.New("invalid username or password")
)
