package pairing

import (
	"errors"
	"fmt"
)

// Sentinel errors for pairing operations.
var (
	ErrSessionNotFound = errors.New("pairing session not found")
	ErrSessionExpired  = errors.New("pairing session has expired")
	ErrInvalidPIN      = errors.New("invalid PIN")
	ErrWrongStatus     = errors.New("wrong session status")
	ErrPINConflict     = errors.New("PIN already held by a pending session")

	ErrClientNotFound = errors.New("client not found")
	ErrTokenNotFound  = errors.New("client token not found")

	ErrInvalidDeviceType = errors.New("invalid device type")
	ErrInvalidName       = errors.New("invalid name")
)

// wrongStatusError wraps ErrWrongStatus with the session's current status,
// so a caller losing a verify race sees "already verified", not
// "invalid PIN".
func wrongStatusError(current Status) error {
	return fmt.Errorf("%w: session is %s", ErrWrongStatus, current)
}
