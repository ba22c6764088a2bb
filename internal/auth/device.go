// Package auth implements PIN-based device pairing, auth token issuance,
// and persistent storage of paired devices.
package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeviceKind hints at the platform of a paired device. It only affects
// client-facing display; no kind changes server behavior.
type DeviceKind string

const (
	DeviceKindIOS     DeviceKind = "ios"
	DeviceKindAndroid DeviceKind = "android"
	DeviceKindBrowser DeviceKind = "browser"
	DeviceKindUnknown DeviceKind = "unknown"
)

// ParseDeviceKind maps a free-form client-supplied string to a DeviceKind,
// defaulting to DeviceKindUnknown for anything unrecognized rather than
// erroring — pairing must never fail over a cosmetic hint.
func ParseDeviceKind(s string) DeviceKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ios", "iphone", "ipad":
		return DeviceKindIOS
	case "android":
		return DeviceKindAndroid
	case "browser", "web":
		return DeviceKindBrowser
	default:
		return DeviceKindUnknown
	}
}

// Device is a paired client: its identity, display name, and hashed auth
// token. TokenHash is never the raw token — only SHA-256(token), base64
// encoded — so the store never holds a credential an attacker could replay
// directly from disk.
type Device struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      DeviceKind `json:"device_type"`
	PairedAt  time.Time  `json:"paired_at"`
	LastSeen  time.Time  `json:"last_seen"`
	TokenHash string     `json:"token_hash"`
}

// NewDevice creates a paired device with a fresh random ID and both
// timestamps set to now.
func NewDevice(name string, kind DeviceKind, tokenHash string) Device {
	now := time.Now().UTC()
	return Device{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      kind,
		PairedAt:  now,
		LastSeen:  now,
		TokenHash: tokenHash,
	}
}

// Touch updates LastSeen to now.
func (d *Device) Touch() {
	d.LastSeen = time.Now().UTC()
}

// Info is the public projection of a Device returned from the devices API
// — it never carries TokenHash.
type Info struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Kind     DeviceKind `json:"device_type"`
	PairedAt time.Time  `json:"paired_at"`
	LastSeen time.Time  `json:"last_seen"`
}

// ToInfo projects a Device to its public API representation.
func (d Device) ToInfo() Info {
	return Info{ID: d.ID, Name: d.Name, Kind: d.Kind, PairedAt: d.PairedAt, LastSeen: d.LastSeen}
}
