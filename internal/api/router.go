package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Admin login (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// PIN submission from an unpaired device (no auth: the device
		// has no credentials yet; the PIN is the proof)
		r.Post("/pairing/sessions/{id}/verify", s.handleVerifySession)

		// Session status view, polled by the device while it waits for
		// the administrator to complete pairing. The view never
		// includes the PIN.
		r.Get("/pairing/sessions/{id}", s.handleGetSession)

		// Authenticated routes (admin or client)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)
			r.Get("/areas", s.handleListAreas)
			r.Get("/areas/{id}", s.handleGetArea)

			// WebSocket event stream
			r.Get("/ws", s.handleWebSocket)
		})

		// Administrator-only routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(s.requireAdmin)

			r.Route("/pairing/sessions", func(r chi.Router) {
				r.Post("/", s.handleCreateSession)
				r.Route("/{id}", func(r chi.Router) {
					r.Delete("/", s.handleCancelSession)
					r.Post("/complete", s.handleCompleteSession)
				})
			})

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", s.handleListClients)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetClient)
					r.Put("/areas", s.handleSetClientAreas)
					r.Post("/revoke", s.handleRevokeClient)
				})
			})

			// Registered as flat patterns rather than a Route()
			// subrouter: mounting a subrouter at /areas would also
			// capture the shared GET /areas and GET /areas/{id}
			// registered above, forcing them through requireAdmin.
			r.Post("/areas", s.handleCreateArea)
			r.Patch("/areas/{id}", s.handleUpdateArea)
			r.Delete("/areas/{id}", s.handleDeleteArea)
			r.Post("/areas/{id}/enable", s.handleEnableArea)
			r.Post("/areas/{id}/disable", s.handleDisableArea)
		})
	})

	return r
}
