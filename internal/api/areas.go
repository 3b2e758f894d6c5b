package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/homelink-core/internal/area"
	"github.com/nerrad567/homelink-core/internal/realtime"
)

// handleListAreas returns areas visible to the caller. Administrators
// see everything; clients see only the enabled areas they are
// assigned to.
func (s *Server) handleListAreas(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	areas, err := s.areas.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list areas", "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	if p != nil && !p.IsAdmin() {
		visible := make([]area.Area, 0, len(areas))
		for _, a := range areas {
			if a.IsEnabled && p.HasArea(a.ID) {
				visible = append(visible, a)
			}
		}
		areas = visible
	}

	writeJSON(w, http.StatusOK, map[string]any{"areas": areas})
}

// handleGetArea returns a single area. Clients get a 404 for areas
// outside their assignment so they cannot probe the full layout.
func (s *Server) handleGetArea(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	a, err := s.areas.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if p != nil && !p.IsAdmin() {
		if !a.IsEnabled || !p.HasArea(a.ID) {
			writeNotFound(w, "area not found")
			return
		}
	}

	writeJSON(w, http.StatusOK, a)
}

// areaRequest is the request body for creating and updating areas.
// Pointer fields distinguish "absent" from "zero" on partial updates.
type areaRequest struct {
	Name      *string `json:"name"`
	Slug      *string `json:"slug"`
	SortOrder *int    `json:"sort_order"`
}

// handleCreateArea creates an area and announces it to all connected
// administrators.
func (s *Server) handleCreateArea(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == nil {
		writeBadRequest(w, "name is required")
		return
	}

	a := &area.Area{Name: *req.Name, IsEnabled: true}
	if req.Slug != nil {
		a.Slug = *req.Slug
	}
	if req.SortOrder != nil {
		a.SortOrder = *req.SortOrder
	}

	if err := s.areas.Create(r.Context(), a); err != nil {
		writeDomainError(w, err)
		return
	}

	s.dispatcher.NotifyAdmin(realtime.EventAreaAdded, a)

	writeJSON(w, http.StatusCreated, a)
}

// handleUpdateArea applies a partial update to an area and notifies
// the area's clients.
func (s *Server) handleUpdateArea(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ctx := r.Context()
	a, err := s.areas.GetByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.Slug != nil {
		a.Slug = *req.Slug
	}
	if req.SortOrder != nil {
		a.SortOrder = *req.SortOrder
	}

	if err := s.areas.Update(ctx, a); err != nil {
		writeDomainError(w, err)
		return
	}

	s.dispatcher.NotifyArea(ctx, a.ID, realtime.EventAreaUpdated, a)

	writeJSON(w, http.StatusOK, a)
}

// handleDeleteArea removes an area. Client assignments to the area are
// dropped by the schema's cascade; affected clients hear about it via
// the area_removed event.
func (s *Server) handleDeleteArea(w http.ResponseWriter, r *http.Request) {
	areaID := chi.URLParam(r, "id")
	ctx := r.Context()

	// Snapshot recipients before the row disappears.
	recipients, err := s.clients.ListActiveByArea(ctx, areaID)
	if err != nil {
		s.logger.Error("failed to resolve area clients", "area_id", areaID, "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	if err := s.areas.Delete(ctx, areaID); err != nil {
		writeDomainError(w, err)
		return
	}

	payload := map[string]any{"area_id": areaID}
	s.dispatcher.NotifyAdmin(realtime.EventAreaRemoved, payload)
	for _, clientID := range recipients {
		s.dispatcher.NotifyClient(clientID, realtime.EventAreaRemoved, payload)
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleEnableArea re-enables a disabled area.
func (s *Server) handleEnableArea(w http.ResponseWriter, r *http.Request) {
	s.setAreaEnabled(w, r, true, realtime.EventAreaEnabled)
}

// handleDisableArea disables an area without deleting it. Assignments
// survive; clients simply stop seeing the area until it is re-enabled.
func (s *Server) handleDisableArea(w http.ResponseWriter, r *http.Request) {
	s.setAreaEnabled(w, r, false, realtime.EventAreaDisabled)
}

func (s *Server) setAreaEnabled(w http.ResponseWriter, r *http.Request, enabled bool, event string) {
	areaID := chi.URLParam(r, "id")
	ctx := r.Context()

	if err := s.areas.SetEnabled(ctx, areaID, enabled); err != nil {
		writeDomainError(w, err)
		return
	}

	s.dispatcher.NotifyArea(ctx, areaID, event, map[string]any{"area_id": areaID})

	a, err := s.areas.GetByID(ctx, areaID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
