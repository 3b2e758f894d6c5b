package realtime

import "github.com/nerrad567/homelink-core/internal/token"

// Event names pushed over live connections. Names are part of the wire
// contract: renaming one breaks deployed clients.
const (
	EventConnected        = "connected"
	EventPairingVerified  = "pairing_verified"
	EventPairingCompleted = "pairing_completed"
	EventTokenRevoked     = "token_revoked"
	EventAreaAdded        = "area_added"
	EventAreaRemoved      = "area_removed"
	EventAreaUpdated      = "area_updated"
	EventAreaEnabled      = "area_enabled"
	EventAreaDisabled     = "area_disabled"
)

// Message type discriminators on the wire.
const (
	MsgTypeEvent = "event"
	MsgTypePing  = "ping"
	MsgTypePong  = "pong"
	MsgTypeError = "error"
)

// Envelope is the frame wrapping every outbound message. The dispatcher
// stamps Timestamp at send time; callers never set it.
type Envelope struct {
	Type      string `json:"type"`
	Event     string `json:"event,omitempty"`
	ID        string `json:"id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// adminCapabilities and clientCapabilities list the event names each role
// can receive, advertised in the connected event so UIs can feature-gate
// without version sniffing.
var (
	adminCapabilities = []string{
		EventPairingVerified,
		EventPairingCompleted,
		EventTokenRevoked,
		EventAreaAdded,
		EventAreaRemoved,
		EventAreaUpdated,
		EventAreaEnabled,
		EventAreaDisabled,
	}
	clientCapabilities = []string{
		EventPairingCompleted,
		EventTokenRevoked,
		EventAreaAdded,
		EventAreaRemoved,
		EventAreaUpdated,
		EventAreaEnabled,
		EventAreaDisabled,
	}
)

// CapabilitiesFor returns the event names deliverable to the given role.
func CapabilitiesFor(role token.Role) []string {
	if role == token.RoleAdmin {
		return adminCapabilities
	}
	return clientCapabilities
}
