package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/homelink-core/internal/area"
	"github.com/nerrad567/homelink-core/internal/identity"
	"github.com/nerrad567/homelink-core/internal/pairing"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps domain sentinel errors onto HTTP responses. The
// fallback for unrecognised errors is a 500 with a generic message; the
// real error is logged by the caller, never leaked to the wire.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pairing.ErrSessionNotFound),
		errors.Is(err, pairing.ErrClientNotFound),
		errors.Is(err, area.ErrAreaNotFound):
		writeNotFound(w, err.Error())

	case errors.Is(err, pairing.ErrSessionExpired),
		errors.Is(err, pairing.ErrWrongStatus),
		errors.Is(err, pairing.ErrInvalidPIN):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())

	case errors.Is(err, pairing.ErrPINConflict),
		errors.Is(err, area.ErrSlugConflict):
		writeConflict(w, err.Error())

	case errors.Is(err, pairing.ErrInvalidDeviceType),
		errors.Is(err, pairing.ErrInvalidName),
		errors.Is(err, area.ErrInvalidName),
		errors.Is(err, area.ErrInvalidSlug):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())

	case errors.Is(err, identity.ErrBadCredentials):
		writeUnauthorized(w, "invalid username or password")

	default:
		writeInternalError(w, "internal server error")
	}
}

// writeAuthError maps identity resolution failures to 401 responses.
// The code distinguishes revocation so clients know to re-pair instead
// of retrying.
func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrTokenRevoked):
		writeError(w, http.StatusUnauthorized, "token_revoked", "token has been revoked")
	case errors.Is(err, identity.ErrClientInactive):
		writeError(w, http.StatusUnauthorized, "client_inactive", "client has been deactivated")
	case errors.Is(err, identity.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "token_expired", "token has expired")
	case errors.Is(err, identity.ErrMalformedToken):
		writeError(w, http.StatusUnauthorized, "token_malformed", "token is malformed")
	default:
		writeUnauthorized(w, "authentication required")
	}
}
