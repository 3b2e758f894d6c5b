package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/homelink-core/internal/realtime"
)

// upgrader performs the HTTP to WebSocket handshake. Origin checks are
// handled by the CORS middleware; authentication happened before the
// upgrade, in authMiddleware.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades an authenticated request to a live event
// stream. Browsers cannot set an Authorization header on a WebSocket
// dial, so the auth middleware also accepts the token as a query
// parameter on this route.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if p == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		s.logger.Warn("websocket upgrade failed", "error", err, "principal_id", p.ID)
		return
	}

	conn := realtime.NewConn(ws, s.registry, s.wsCfg, s.logger, p.ID, p.Role)
	s.dispatcher.Attach(conn)

	s.logger.Debug("websocket connected", "principal_id", p.ID, "role", string(p.Role))
}
