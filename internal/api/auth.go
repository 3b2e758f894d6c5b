package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nerrad567/homelink-core/internal/identity"
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /auth/login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleLogin authenticates the administrator and returns an admin JWT.
//
// There is exactly one admin account, configured with an Argon2id
// password hash. Failures are deliberately uniform: wrong username and
// wrong password are indistinguishable on the wire.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	admin := s.secCfg.Admin
	if req.Username != admin.Username {
		// Burn a hash anyway so username probing cannot be timed.
		//nolint:errcheck // result discarded on purpose
		identity.VerifyPassword(req.Password, admin.PasswordHash)
		writeDomainError(w, identity.ErrBadCredentials)
		return
	}

	ok, err := identity.VerifyPassword(req.Password, admin.PasswordHash)
	if err != nil {
		s.logger.Error("password verification failed", "error", err)
		writeInternalError(w, "internal server error")
		return
	}
	if !ok {
		writeDomainError(w, identity.ErrBadCredentials)
		return
	}

	raw, err := s.tokenSvc.MintAdmin(admin.Username)
	if err != nil {
		s.logger.Error("failed to mint admin token", "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	ttlHours := s.secCfg.JWT.AdminTokenTTL
	s.logger.Info("administrator logged in", "username", admin.Username)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: raw,
		TokenType:   "Bearer",
		ExpiresIn:   int((time.Duration(ttlHours) * time.Hour).Seconds()),
	})
}

// handleMe returns the calling principal's identity and scoping.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"id":    p.ID,
		"role":  string(p.Role),
		"areas": p.Areas,
	})
}
