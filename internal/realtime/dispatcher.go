package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nerrad567/homelink-core/internal/infrastructure/logging"
	"github.com/nerrad567/homelink-core/internal/token"
)

// revokeFlushDelay is how long a revocation notice is given to flush
// before the socket is torn down.
const revokeFlushDelay = 250 * time.Millisecond

// AreaResolver maps an area to the active clients assigned to it, for
// area-scoped dispatch.
type AreaResolver interface {
	ListActiveByArea(ctx context.Context, areaID string) ([]string, error)
}

// EventMirror republishes dispatched events to an external bus. Nil
// disables mirroring.
type EventMirror interface {
	PublishEvent(event string, payload []byte) error
}

// EventSink records dispatch activity for telemetry. Nil disables it.
type EventSink interface {
	RecordEvent(event string, recipients int)
}

// Dispatcher fans events out to live connections. It stamps every
// envelope with the send-time timestamp; payloads carry no clocks of
// their own.
type Dispatcher struct {
	registry *Registry
	areas    AreaResolver
	mirror   EventMirror
	sink     EventSink
	logger   *logging.Logger
}

// DispatcherDeps holds the dependencies for a Dispatcher. Mirror and
// Sink are optional.
type DispatcherDeps struct {
	Registry *Registry
	Areas    AreaResolver
	Mirror   EventMirror
	Sink     EventSink
	Logger   *logging.Logger
}

// NewDispatcher creates an event dispatcher over the given registry.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	return &Dispatcher{
		registry: deps.Registry,
		areas:    deps.Areas,
		mirror:   deps.Mirror,
		sink:     deps.Sink,
		logger:   deps.Logger,
	}
}

// Attach registers a connection, greets it with the connected event, and
// starts its pumps. The greeting carries the capability list for the
// connection's role.
func (d *Dispatcher) Attach(c *Conn) {
	d.registry.Add(c)

	data, ok := d.marshal(EventConnected, map[string]any{
		"principal_id": c.PrincipalID(),
		"role":         string(c.Role()),
		"capabilities": CapabilitiesFor(c.Role()),
	})
	if ok {
		c.trySend(data)
	}

	go c.WritePump()
	go c.ReadPump()

	d.logger.Debug("connection attached",
		"principal_id", c.PrincipalID(),
		"role", string(c.Role()),
		"connections", d.registry.Count(),
	)
}

// NotifyAdmin delivers an event to every connected administrator.
func (d *Dispatcher) NotifyAdmin(event string, payload any) {
	data, ok := d.marshal(event, payload)
	if !ok {
		return
	}

	sent := 0
	for _, c := range d.registry.All() {
		if c.Role() == token.RoleAdmin {
			c.trySend(data)
			sent++
		}
	}
	d.finish(event, data, sent)
}

// NotifyClient delivers an event to every connection held by one client.
// A client with no live connection misses the event; there is no queue.
func (d *Dispatcher) NotifyClient(clientID, event string, payload any) {
	data, ok := d.marshal(event, payload)
	if !ok {
		return
	}

	conns := d.registry.Connections(clientID)
	for _, c := range conns {
		c.trySend(data)
	}
	d.finish(event, data, len(conns))
}

// NotifyArea delivers an event to administrators and to every active
// client assigned to the area.
func (d *Dispatcher) NotifyArea(ctx context.Context, areaID, event string, payload any) {
	data, ok := d.marshal(event, payload)
	if !ok {
		return
	}

	sent := 0
	for _, c := range d.registry.All() {
		if c.Role() == token.RoleAdmin {
			c.trySend(data)
			sent++
		}
	}

	if d.areas != nil {
		clientIDs, err := d.areas.ListActiveByArea(ctx, areaID)
		if err != nil {
			d.logger.Warn("area dispatch resolution failed", "area_id", areaID, "error", err)
		}
		for _, id := range clientIDs {
			for _, c := range d.registry.Connections(id) {
				c.trySend(data)
				sent++
			}
		}
	}
	d.finish(event, data, sent)
}

// Broadcast delivers an event to every live connection regardless of
// role or area.
func (d *Dispatcher) Broadcast(event string, payload any) {
	data, ok := d.marshal(event, payload)
	if !ok {
		return
	}

	conns := d.registry.All()
	for _, c := range conns {
		c.trySend(data)
	}
	d.finish(event, data, len(conns))
}

// RevokeAndDisconnect pushes token_revoked to a client's connections,
// gives the frame a moment to flush, then severs them. The client's next
// request fails authentication regardless; the push is a courtesy.
func (d *Dispatcher) RevokeAndDisconnect(clientID, reason string) {
	conns := d.registry.Connections(clientID)
	if len(conns) == 0 {
		return
	}

	data, ok := d.marshal(EventTokenRevoked, map[string]string{
		"client_id": clientID,
		"reason":    reason,
	})
	if ok {
		for _, c := range conns {
			c.trySend(data)
		}
	}

	time.AfterFunc(revokeFlushDelay, func() {
		for _, c := range conns {
			d.registry.Remove(c)
			c.closeSocket()
		}
	})

	d.logger.Info("revoked client disconnected", "client_id", clientID, "connections", len(conns))
}

// marshal wraps and encodes an event envelope, stamping the timestamp.
func (d *Dispatcher) marshal(event string, payload any) ([]byte, bool) {
	data, err := json.Marshal(Envelope{
		Type:      MsgTypeEvent,
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		d.logger.Error("failed to marshal event", "event", event, "error", err)
		return nil, false
	}
	return data, true
}

// finish handles the shared post-dispatch tail: mirroring, telemetry,
// logging.
func (d *Dispatcher) finish(event string, data []byte, recipients int) {
	if d.mirror != nil {
		if err := d.mirror.PublishEvent(event, data); err != nil {
			d.logger.Warn("event mirror publish failed", "event", event, "error", err)
		}
	}
	if d.sink != nil {
		d.sink.RecordEvent(event, recipients)
	}
	if recipients > 0 {
		d.logger.Debug("event dispatched", "event", event, "recipients", recipients)
	}
}
