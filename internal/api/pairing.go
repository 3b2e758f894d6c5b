package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/homelink-core/internal/area"
)

// createSessionResponse is the one and only place a PIN crosses the
// wire: the admin reads it off this response and relays it to the
// device out of band.
type createSessionResponse struct {
	ID        string `json:"id"`
	PIN       string `json:"pin"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
}

// handleCreateSession starts a pairing session and returns its PIN.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.pairing.Create(r.Context())
	if err != nil {
		s.logger.Error("failed to create pairing session", "error", err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		ID:        session.ID,
		PIN:       session.PIN,
		Status:    string(session.Status),
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// handleGetSession returns a session view. The PIN is never included.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.pairing.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleCancelSession hard-deletes a non-terminal session.
func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	if err := s.pairing.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// verifyRequest is the request body for POST /pairing/sessions/{id}/verify.
type verifyRequest struct {
	PIN        string `json:"pin"`
	DeviceName string `json:"device_name"`
	DeviceType string `json:"device_type"`
}

// handleVerifySession accepts a PIN submission from an unpaired device.
//
// In two-step mode the response reports the verified state and the
// device waits for an administrator to complete the pairing. In
// single-step mode the response carries the client credential directly.
func (s *Server) handleVerifySession(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.pairing.Verify(r.Context(), chi.URLParam(r, "id"), req.PIN, req.DeviceName, req.DeviceType)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := map[string]any{
		"id":     result.Session.ID,
		"status": string(result.Session.Status),
	}
	if result.RawToken != "" {
		resp["client_id"] = result.ClientID
		resp["client_token"] = result.RawToken
	}
	writeJSON(w, http.StatusOK, resp)
}

// completeRequest is the request body for POST /pairing/sessions/{id}/complete.
type completeRequest struct {
	Name    string   `json:"name"`
	AreaIDs []string `json:"area_ids"`
}

// handleCompleteSession finishes a verified session: the administrator
// names the client, assigns its areas, and receives the credential to
// hand to the device. The raw token appears in this response and never
// again.
func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	// Catch unknown areas before the completion transaction runs.
	for _, areaID := range req.AreaIDs {
		if _, err := s.areas.GetByID(r.Context(), areaID); err != nil {
			if errors.Is(err, area.ErrAreaNotFound) {
				writeBadRequest(w, "unknown area: "+areaID)
				return
			}
			writeDomainError(w, err)
			return
		}
	}

	result, err := s.pairing.Complete(r.Context(), chi.URLParam(r, "id"), req.Name, req.AreaIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
