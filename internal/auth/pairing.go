package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BeckhamLabsLLC/linglide/internal/util"
)

// PinValidity is how long a pairing PIN remains acceptable after it is
// issued.
const PinValidity = 60 * time.Second

var (
	ErrInvalidPin      = errors.New("auth: invalid or expired PIN")
	ErrSessionNotFound = errors.New("auth: pairing session not found or expired")
	ErrInvalidToken    = errors.New("auth: invalid token")
)

// pairingSession is a PENDING pairing attempt awaiting PIN verification. It
// transitions to CONSUMED (removed from the map) on successful
// verify, or is treated as EXPIRED once past ExpiresAt.
type pairingSession struct {
	sessionID string
	pin       string
	expiresAt time.Time
}

func newPairingSession() (pairingSession, error) {
	pin, err := randomPin()
	if err != nil {
		return pairingSession{}, err
	}
	return pairingSession{
		sessionID: uuid.NewString(),
		pin:       pin,
		expiresAt: time.Now().Add(PinValidity),
	}, nil
}

func (s pairingSession) isExpired() bool {
	return time.Now().After(s.expiresAt)
}

func (s pairingSession) verifyPin(pin string) bool {
	return !s.isExpired() && subtle.ConstantTimeCompare([]byte(s.pin), []byte(pin)) == 1
}

func randomPin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", errors.Wrap(err, "auth: generate PIN")
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// StartResponse is returned from StartPairing.
type StartResponse struct {
	SessionID string `json:"session_id"`
	Pin       string `json:"pin"`
	ExpiresIn int64  `json:"expires_in"`
}

// VerifyRequest is the payload submitted to complete pairing.
type VerifyRequest struct {
	SessionID  string `json:"session_id"`
	Pin        string `json:"pin"`
	DeviceName string `json:"device_name"`
	DeviceType string `json:"device_type,omitempty"`
}

// VerifyResponse is returned after a PIN verifies successfully.
type VerifyResponse struct {
	DeviceID string `json:"device_id"`
	Token    string `json:"token"`
}

// QRData is serialized into the pairing QR code payload.
type QRData struct {
	URL         string `json:"url"`
	Pin         string `json:"pin"`
	SessionID   string `json:"session_id"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Version     string `json:"version,omitempty"`
}

// Manager runs the pairing state machine and token validation against a
// DeviceStore. One Manager per server process.
type Manager struct {
	mu          sync.Mutex
	sessions    map[string]pairingSession
	store       *DeviceStore
	serverURL   string
	fingerprint string
	version     string
}

// NewManager creates a pairing manager bound to store, reporting serverURL
// (and, if set, a TLS cert fingerprint and server version) in QR payloads.
func NewManager(store *DeviceStore, serverURL, fingerprint, version string) *Manager {
	return &Manager{
		sessions:    make(map[string]pairingSession),
		store:       store,
		serverURL:   serverURL,
		fingerprint: fingerprint,
		version:     version,
	}
}

// SetFingerprint updates the certificate fingerprint reported in QR codes,
// used after a certificate renewal changes it mid-process-lifetime.
func (m *Manager) SetFingerprint(fingerprint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fingerprint = fingerprint
}

// StartPairing opens a new PENDING pairing session and opportunistically
// sweeps EXPIRED sessions out of the map.
func (m *Manager) StartPairing() (StartResponse, error) {
	session, err := newPairingSession()
	if err != nil {
		return StartResponse{}, err
	}

	m.mu.Lock()
	m.sessions[session.sessionID] = session
	for id, s := range m.sessions {
		if s.isExpired() {
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	util.GetLogger().Info("started pairing session", "session_id", session.sessionID)
	return StartResponse{
		SessionID: session.sessionID,
		Pin:       session.pin,
		ExpiresIn: int64(PinValidity.Seconds()),
	}, nil
}

// VerifyPin checks the PIN against a PENDING session; on success it issues
// a token, persists a new Device, consumes the session, and returns the
// device ID and raw (unhashed) token to hand to the client.
//
// The session is removed from the map up front, under the same lock that
// finds it, so only one concurrent call carrying the correct PIN can ever
// observe it as PENDING — two racing verifies for one session must not
// both pass the check and both mint a device from a single-use PIN. A
// wrong-PIN attempt on a session that has not yet expired puts the session
// back so the caller can retry within the window; an expired session is
// dropped.
func (m *Manager) VerifyPin(req VerifyRequest) (VerifyResponse, error) {
	m.mu.Lock()
	session, ok := m.sessions[req.SessionID]
	if !ok {
		m.mu.Unlock()
		return VerifyResponse{}, ErrSessionNotFound
	}
	delete(m.sessions, req.SessionID)

	if !session.verifyPin(req.Pin) {
		if !session.isExpired() {
			m.sessions[req.SessionID] = session
		}
		m.mu.Unlock()
		util.GetLogger().Warn("invalid PIN attempt", "session_id", req.SessionID)
		return VerifyResponse{}, ErrInvalidPin
	}
	m.mu.Unlock()

	token, err := generateToken()
	if err != nil {
		return VerifyResponse{}, err
	}
	tokenHash := HashToken(token)

	device := NewDevice(req.DeviceName, ParseDeviceKind(req.DeviceType), tokenHash)
	if err := m.store.SaveDevice(device); err != nil {
		return VerifyResponse{}, err
	}

	util.GetLogger().Info("device paired", "device_id", device.ID)
	return VerifyResponse{DeviceID: device.ID, Token: token}, nil
}

// GetQRData returns the QR code payload for a still-PENDING session, or
// false if the session does not exist (it may have expired or already
// been consumed).
func (m *Manager) GetQRData(sessionID string) (QRData, bool) {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	fingerprint := m.fingerprint
	m.mu.Unlock()
	if !ok {
		return QRData{}, false
	}

	if len(fingerprint) > 20 {
		fingerprint = fingerprint[:20]
	}

	return QRData{
		URL:         m.serverURL,
		Pin:         session.pin,
		SessionID:   session.sessionID,
		Fingerprint: fingerprint,
		Version:     m.version,
	}, true
}

// SessionInfo returns the PIN and remaining seconds for a PENDING session.
func (m *Manager) SessionInfo(sessionID string) (pin string, remainingSeconds int64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, found := m.sessions[sessionID]
	if !found {
		return "", 0, false
	}
	remaining := int64(time.Until(session.expiresAt).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return session.pin, remaining, true
}

// ValidateToken resolves a raw bearer token to its paired Device.
func (m *Manager) ValidateToken(token string) (Device, error) {
	d, ok := m.store.GetDeviceByTokenHash(HashToken(token))
	if !ok {
		return Device{}, ErrInvalidToken
	}
	return d, nil
}

// TouchDevice validates token and refreshes the matching device's
// LastSeen.
func (m *Manager) TouchDevice(token string) error {
	d, err := m.ValidateToken(token)
	if err != nil {
		return err
	}
	return m.store.TouchDevice(d.ID)
}

// ListDevices returns every currently paired device.
func (m *Manager) ListDevices() []Device {
	return m.store.ListDevices()
}

// RevokeDevice removes a paired device by ID.
func (m *Manager) RevokeDevice(deviceID string) error {
	return m.store.RemoveDevice(deviceID)
}

// HasPairedDevices reports whether any device is currently paired.
func (m *Manager) HasPairedDevices() bool {
	return m.store.HasDevices()
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "auth: generate token")
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// HashToken returns the storage-safe digest of a raw bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.StdEncoding.EncodeToString(sum[:])
}
