package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/homelink-core/internal/infrastructure/config"
	"github.com/nerrad567/homelink-core/internal/infrastructure/logging"
	"github.com/nerrad567/homelink-core/internal/token"
)

// sendBufferSize is the per-connection outbound message buffer.
const sendBufferSize = 256

// Conn is one live WebSocket connection bound to an authenticated
// principal. Outbound traffic goes through a buffered channel drained by
// WritePump; a full buffer drops the frame rather than blocking the
// dispatcher.
type Conn struct {
	ws          *websocket.Conn
	registry    *Registry
	logger      *logging.Logger
	cfg         config.WebSocketConfig
	principalID string
	role        token.Role

	send      chan []byte
	closeOnce sync.Once
}

// NewConn wraps an upgraded WebSocket connection for the given principal.
func NewConn(ws *websocket.Conn, registry *Registry, cfg config.WebSocketConfig, logger *logging.Logger, principalID string, role token.Role) *Conn {
	return &Conn{
		ws:          ws,
		registry:    registry,
		logger:      logger,
		cfg:         cfg,
		principalID: principalID,
		role:        role,
		send:        make(chan []byte, sendBufferSize),
	}
}

// PrincipalID returns the ID the connection is registered under.
func (c *Conn) PrincipalID() string { return c.principalID }

// Role returns the authenticated role of the connection.
func (c *Conn) Role() token.Role { return c.role }

// ReadPump reads inbound frames until the connection drops. It must run
// in its own goroutine; it deregisters the connection on exit.
func (c *Conn) ReadPump() {
	defer func() {
		c.registry.Remove(c)
		c.closeSocket()
	}()

	c.ws.SetReadLimit(int64(c.cfg.MaxMessageSize))
	deadline := time.Duration(c.cfg.PingInterval+c.cfg.PongTimeout) * time.Second
	//nolint:errcheck // best-effort deadline on connection setup
	c.ws.SetReadDeadline(time.Now().Add(deadline))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "principal_id", c.principalID, "error", err)
			} else {
				c.logger.Debug("websocket closed", "principal_id", c.principalID)
			}
			return
		}
		// Any inbound traffic resets the read deadline.
		//nolint:errcheck // best-effort deadline reset
		c.ws.SetReadDeadline(time.Now().Add(deadline))
		c.handleMessage(message)
	}
}

// WritePump drains the send channel to the socket and keeps the
// connection alive with protocol pings. It must run in its own goroutine.
func (c *Conn) WritePump() {
	pingInterval := time.Duration(c.cfg.PingInterval) * time.Second
	writeWait := time.Duration(c.cfg.PongTimeout) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.closeSocket()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // best-effort close frame
				c.ws.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // best-effort deadline; write error caught below
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // best-effort deadline; ping error caught below
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one inbound frame. The inbound surface is
// deliberately tiny: clients receive pushes, they do not command.
func (c *Conn) handleMessage(data []byte) {
	var msg Envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendControl(Envelope{Type: MsgTypeError, Payload: map[string]string{"message": "invalid JSON message"}})
		return
	}

	switch msg.Type {
	case MsgTypePing:
		c.sendControl(Envelope{Type: MsgTypePong, ID: msg.ID})
	default:
		c.sendControl(Envelope{Type: MsgTypeError, ID: msg.ID, Payload: map[string]string{"message": "unknown message type: " + msg.Type}})
	}
}

// sendControl marshals and queues a control frame, stamping the
// timestamp.
func (c *Conn) sendControl(msg Envelope) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

// trySend queues data without blocking. A slow consumer loses frames; a
// closed channel (disconnect raced the send) is absorbed.
func (c *Conn) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// buffer full, drop
	}
}

// closeSend closes the outbound channel exactly once.
func (c *Conn) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// closeSocket closes the underlying socket. Safe to call repeatedly.
func (c *Conn) closeSocket() {
	if c.ws != nil {
		c.ws.Close() //nolint:errcheck // close errors are not actionable
	}
}
