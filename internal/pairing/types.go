package pairing

import "time"

// Status represents a pairing session's position in the state machine.
type Status string

const (
	// StatusPending means the PIN has been issued but not yet submitted.
	StatusPending Status = "pending"

	// StatusVerified means a device submitted the correct PIN and is
	// waiting for an administrator to complete the pairing.
	StatusVerified Status = "verified"

	// StatusCompleted means the client was created and credentialed.
	StatusCompleted Status = "completed"

	// StatusExpired means the PIN window closed before completion.
	StatusExpired Status = "expired"
)

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// Session is a short-lived record coordinating PIN-based enrolment.
type Session struct {
	ID                string     `json:"id"`
	PIN               string     `json:"-"` // returned once at creation, never in views
	Status            Status     `json:"status"`
	DeviceName        string     `json:"device_name,omitempty"`
	DeviceType        string     `json:"device_type,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	ExpiresAt         time.Time  `json:"expires_at"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	ClientID          string     `json:"client_id,omitempty"`
	ClientTokenDigest string     `json:"-"` // never serialised
}

// Client is a paired device principal.
type Client struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	DeviceType    string     `json:"device_type"`
	DeviceName    string     `json:"device_name"`
	AssignedAreas []string   `json:"assigned_areas"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`
}

// ClientToken is a row in the revocation ledger. The raw token value is
// never stored; TokenDigest is its only persisted representation.
type ClientToken struct {
	ID            string     `json:"id"`
	ClientID      string     `json:"client_id"`
	TokenDigest   string     `json:"-"` // never serialised
	AreasSnapshot []string   `json:"areas_snapshot,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	IsRevoked     bool       `json:"is_revoked"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedReason string     `json:"revoked_reason,omitempty"`
}
