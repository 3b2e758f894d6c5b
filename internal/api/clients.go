package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/homelink-core/internal/area"
	"github.com/nerrad567/homelink-core/internal/realtime"
)

// handleListClients returns every paired client, active or not, with
// its area assignments.
func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.clients.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list clients", "error", err)
		writeInternalError(w, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": clients})
}

// handleGetClient returns a single client by ID.
func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	client, err := s.clients.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// setAreasRequest is the request body for PUT /clients/{id}/areas. The
// list replaces the client's assignments wholesale.
type setAreasRequest struct {
	AreaIDs []string `json:"area_ids"`
}

// handleSetClientAreas replaces a client's area assignments and pushes
// an area_added or area_removed event to the client for each change.
func (s *Server) handleSetClientAreas(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")

	var req setAreasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ctx := r.Context()

	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Catch unknown areas here rather than surfacing a foreign key
	// failure from the transaction.
	areas := make(map[string]*area.Area, len(req.AreaIDs))
	for _, id := range req.AreaIDs {
		a, err := s.areas.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, area.ErrAreaNotFound) {
				writeBadRequest(w, "unknown area: "+id)
				return
			}
			writeDomainError(w, err)
			return
		}
		areas[id] = a
	}

	before := make(map[string]bool, len(client.AssignedAreas))
	for _, id := range client.AssignedAreas {
		before[id] = true
	}
	after := make(map[string]bool, len(req.AreaIDs))
	for _, id := range req.AreaIDs {
		after[id] = true
	}

	if err := s.clients.SetAreas(ctx, clientID, req.AreaIDs); err != nil {
		s.logger.Error("failed to set client areas", "client_id", clientID, "error", err)
		writeDomainError(w, err)
		return
	}

	for id, a := range areas {
		if !before[id] {
			s.dispatcher.NotifyClient(clientID, realtime.EventAreaAdded, map[string]any{
				"area_id": id,
				"name":    a.Name,
			})
		}
	}
	for _, id := range client.AssignedAreas {
		if !after[id] {
			s.dispatcher.NotifyClient(clientID, realtime.EventAreaRemoved, map[string]any{
				"area_id": id,
			})
		}
	}

	updated, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// revokeRequest is the request body for POST /clients/{id}/revoke.
type revokeRequest struct {
	Reason string `json:"reason"`
}

// handleRevokeClient revokes every token issued to a client, marks the
// client inactive, and tears down its live connections. The client
// receives a token_revoked event before its sockets close so it can
// distinguish revocation from a network fault.
func (s *Server) handleRevokeClient(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")

	var req revokeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "revoked_by_admin"
	}

	ctx := r.Context()

	if _, err := s.clients.GetByID(ctx, clientID); err != nil {
		writeDomainError(w, err)
		return
	}

	revoked, err := s.tokens.RevokeAllForClient(ctx, clientID, req.Reason)
	if err != nil {
		s.logger.Error("failed to revoke client tokens", "client_id", clientID, "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	if err := s.clients.Deactivate(ctx, clientID); err != nil {
		s.logger.Error("failed to deactivate client", "client_id", clientID, "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	s.dispatcher.RevokeAndDisconnect(clientID, req.Reason)

	s.logger.Info("client revoked",
		"client_id", clientID,
		"reason", req.Reason,
		"tokens_revoked", revoked)

	writeJSON(w, http.StatusOK, map[string]any{
		"client_id":      clientID,
		"tokens_revoked": revoked,
		"reason":         req.Reason,
	})
}
