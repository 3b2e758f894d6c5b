package pairing

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/homelink-core/internal/infrastructure/config"
	"github.com/nerrad567/homelink-core/internal/infrastructure/logging"
	"github.com/nerrad567/homelink-core/internal/realtime"
	"github.com/nerrad567/homelink-core/internal/token"
)

// Notifier delivers pairing lifecycle events to live connections.
// Delivery is best-effort: a principal with no live connection simply
// does not observe the event.
type Notifier interface {
	NotifyAdmin(event string, payload any)
	NotifyClient(clientID, event string, payload any)
}

// noopNotifier is used when no dispatcher is wired (tests, tooling).
type noopNotifier struct{}

func (noopNotifier) NotifyAdmin(string, any)          {}
func (noopNotifier) NotifyClient(string, string, any) {}

// Manager orchestrates the pairing state machine.
//
// It owns no state of its own: sessions live in the repository, and all
// transitions are conditional updates there, so two Managers over the
// same database behave identically to one.
type Manager struct {
	sessions SessionRepository
	clients  ClientRepository
	tokens   TokenRepository
	tokenSvc *token.Service
	notifier Notifier
	cfg      config.PairingConfig
	logger   *logging.Logger
}

// ManagerDeps holds the dependencies required by the pairing manager.
type ManagerDeps struct {
	Sessions SessionRepository
	Clients  ClientRepository
	Tokens   TokenRepository
	TokenSvc *token.Service
	Notifier Notifier // optional
	Config   config.PairingConfig
	Logger   *logging.Logger
}

// NewManager creates a pairing manager with the given dependencies.
func NewManager(deps ManagerDeps) *Manager {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Manager{
		sessions: deps.Sessions,
		clients:  deps.Clients,
		tokens:   deps.Tokens,
		tokenSvc: deps.TokenSvc,
		notifier: notifier,
		cfg:      deps.Config,
		logger:   deps.Logger,
	}
}

// pinCreateAttempts bounds retries when a generated PIN collides with
// another pending session's PIN.
const pinCreateAttempts = 3

// Create starts a new pairing session with a fresh PIN.
//
// The PIN is unique among pending sessions: on collision the PIN is
// regenerated and the insert retried a bounded number of times.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	now := time.Now()

	var session *Session
	for attempt := 0; attempt < pinCreateAttempts; attempt++ {
		pin, err := generatePIN()
		if err != nil {
			return nil, err
		}

		candidate := &Session{
			PIN:       pin,
			Status:    StatusPending,
			CreatedAt: now,
			ExpiresAt: now.Add(m.cfg.SessionTTLDuration()),
		}
		err = m.sessions.Create(ctx, candidate)
		if err == nil {
			session = candidate
			break
		}
		if !errors.Is(err, ErrPINConflict) {
			return nil, err
		}
		m.logger.Debug("pairing PIN collision, regenerating", "attempt", attempt+1)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: exhausted %d attempts", ErrPINConflict, pinCreateAttempts)
	}

	m.logger.Info("pairing session created",
		"session_id", session.ID,
		"expires_at", session.ExpiresAt.UTC().Format(time.RFC3339),
	)
	return session, nil
}

// VerifyResult is the outcome of a successful PIN verification.
// RawToken and ClientID are populated only in single-step mode, where
// verification auto-completes the pairing.
type VerifyResult struct {
	Session  *Session
	ClientID string
	RawToken string
}

// Verify submits a PIN for a pending session, advancing it to verified.
//
// Expiry is checked lazily: a correct PIN after the deadline still fails,
// and the row is flipped to expired on the way out. The pending->verified
// transition is a conditional update; when two callers race, exactly one
// wins and the loser sees a wrong-status error, never "invalid PIN".
func (m *Manager) Verify(ctx context.Context, id, pin, deviceName, deviceType string) (*VerifyResult, error) {
	if !IsValidPIN(pin) {
		return nil, fmt.Errorf("%w: PIN must be exactly 6 digits", ErrInvalidPIN)
	}
	if !IsValidDeviceType(deviceType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDeviceType, deviceType)
	}
	if err := validateName(deviceName); err != nil {
		return nil, err
	}

	session, err := m.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if now.After(session.ExpiresAt) && !session.Status.IsTerminal() {
		m.expireLazily(ctx, id)
		return nil, ErrSessionExpired
	}
	if session.Status != StatusPending {
		return nil, wrongStatusError(session.Status)
	}
	if subtle.ConstantTimeCompare([]byte(session.PIN), []byte(pin)) != 1 {
		return nil, ErrInvalidPIN
	}

	affected, err := m.sessions.MarkVerified(ctx, id, deviceName, deviceType, now)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Lost the conditional update. Re-read for the specific reason.
		current, err := m.sessions.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status != StatusPending {
			return nil, wrongStatusError(current.Status)
		}
		m.expireLazily(ctx, id)
		return nil, ErrSessionExpired
	}

	session.Status = StatusVerified
	session.DeviceName = deviceName
	session.DeviceType = deviceType
	session.VerifiedAt = &now

	m.logger.Info("pairing session verified",
		"session_id", session.ID,
		"device_type", deviceType,
	)
	m.notifier.NotifyAdmin(realtime.EventPairingVerified, map[string]any{
		"session_id":  session.ID,
		"device_name": deviceName,
		"device_type": deviceType,
	})

	result := &VerifyResult{Session: session}

	if m.cfg.Mode == config.PairingModeSingleStep {
		// Single-step mode: verification completes the pairing immediately.
		// The client is named after the device and starts with no areas.
		completion, err := m.complete(ctx, session, deviceName, nil)
		if err != nil {
			return nil, err
		}
		session.Status = StatusCompleted
		session.ClientID = completion.ClientID
		result.ClientID = completion.ClientID
		result.RawToken = completion.RawToken
	}

	return result, nil
}

// CompletionResult is the outcome of completing a pairing session.
// RawToken is returned exactly once and is never retrievable again.
type CompletionResult struct {
	ClientID      string   `json:"client_id"`
	RawToken      string   `json:"client_token"`
	AssignedAreas []string `json:"assigned_areas"`
}

// Complete finishes a verified session: mints the client credential,
// creates the client with its area assignments, and advances the session
// to completed. Administrator-only at the API layer.
func (m *Manager) Complete(ctx context.Context, id, clientName string, areaIDs []string) (*CompletionResult, error) {
	if err := validateName(clientName); err != nil {
		return nil, err
	}

	session, err := m.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if time.Now().After(session.ExpiresAt) && !session.Status.IsTerminal() {
		m.expireLazily(ctx, id)
		return nil, ErrSessionExpired
	}
	if session.Status != StatusVerified {
		return nil, wrongStatusError(session.Status)
	}

	return m.complete(ctx, session, clientName, areaIDs)
}

// complete performs the shared completion path for both modes. The
// session must be in verified status (enforced again by the conditional
// update inside the repository transaction).
func (m *Manager) complete(ctx context.Context, session *Session, clientName string, areaIDs []string) (*CompletionResult, error) {
	if areaIDs == nil {
		areaIDs = []string{}
	}

	clientID := "cl-" + uuid.NewString()[:16]
	raw, err := m.tokenSvc.MintClient(clientID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	client := &Client{
		ID:            clientID,
		Name:          clientName,
		DeviceType:    session.DeviceType,
		DeviceName:    session.DeviceName,
		AssignedAreas: areaIDs,
		IsActive:      true,
		CreatedAt:     now,
	}
	ledger := &ClientToken{
		ID:            "ct-" + uuid.NewString()[:16],
		ClientID:      clientID,
		TokenDigest:   token.Digest(raw),
		AreasSnapshot: areaIDs,
		CreatedAt:     now,
		ExpiresAt:     now.Add(m.tokenSvc.ClientTTL()),
	}

	affected, err := m.sessions.Complete(ctx, session.ID, client, ledger)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		current, err := m.sessions.GetByID(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		return nil, wrongStatusError(current.Status)
	}

	m.logger.Info("pairing session completed",
		"session_id", session.ID,
		"client_id", clientID,
		"areas", len(areaIDs),
	)
	m.notifier.NotifyClient(clientID, realtime.EventPairingCompleted, map[string]any{
		"client_id":      clientID,
		"assigned_areas": areaIDs,
	})

	return &CompletionResult{
		ClientID:      clientID,
		RawToken:      raw,
		AssignedAreas: areaIDs,
	}, nil
}

// Get returns a session view, expiring it lazily if the deadline has
// passed.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	session, err := m.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if time.Now().After(session.ExpiresAt) && !session.Status.IsTerminal() {
		m.expireLazily(ctx, id)
		session.Status = StatusExpired
	}

	return session, nil
}

// Cancel hard-deletes a non-terminal session. Cancelling a session that
// does not exist is a no-op; cancelling a terminal session fails with a
// wrong-status error.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	session, err := m.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil // idempotent
		}
		return err
	}
	if session.Status.IsTerminal() {
		return wrongStatusError(session.Status)
	}

	if _, err := m.sessions.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info("pairing session cancelled", "session_id", id)
	return nil
}

// Sweep removes sessions whose PIN window closed without completion.
// It is the only autonomous mutation in the pairing lifecycle: it never
// repairs a bad transition, only garbage-collects.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	count, err := m.sessions.DeleteExpiredPending(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		m.logger.Info("swept expired pairing sessions", "count", count)
	}
	return count, nil
}

// RunSweeper runs Sweep periodically until the context is cancelled.
func (m *Manager) RunSweeper(ctx context.Context) {
	interval := m.cfg.SweepIntervalDuration()
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.logger.Error("pairing sweep failed", "error", err)
			}
		}
	}
}

// expireLazily flips a session to expired, logging but not propagating
// failures: the caller is already reporting ErrSessionExpired.
func (m *Manager) expireLazily(ctx context.Context, id string) {
	if _, err := m.sessions.MarkExpired(ctx, id); err != nil {
		m.logger.Warn("lazy expiration failed", "session_id", id, "error", err)
	}
}

// pinRange is the span of valid PINs: [100000, 999999].
const (
	pinRange = 900000
	pinFloor = 100000
)

// generatePIN returns a 6-digit PIN from a cryptographically strong
// source. Three random bytes are interpreted as a 24-bit unsigned integer
// and reduced modulo 900000 before adding 100000. Because 2^24 is not a
// multiple of 900000, the reduction carries a small statistical bias
// toward the low end of the range; the bias is accepted and documented
// here rather than corrected.
func generatePIN() (string, error) {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generating PIN: %w", err)
	}
	n := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	return strconv.Itoa(int(n%pinRange + pinFloor)), nil
}
