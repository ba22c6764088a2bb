package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/BeckhamLabsLLC/linglide/internal/util"
)

// ErrDeviceNotFound is returned by RemoveDevice and TouchDevice when the id
// has no matching entry.
var ErrDeviceNotFound = errors.New("auth: device not found")

type storedData struct {
	Devices map[string]Device `json:"devices"`
}

// DeviceStore is a JSON-file-backed, in-memory-cached store of paired
// devices. All mutating operations persist synchronously before returning,
// and persistence writes to a temp file in the same directory followed by
// an atomic rename, so a crash mid-write can never leave devices.json
// truncated or corrupt.
type DeviceStore struct {
	mu   sync.RWMutex
	path string
	data storedData
}

// NewDeviceStore loads (or initializes) the store at path, creating the
// parent directory if necessary.
func NewDeviceStore(path string) (*DeviceStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "auth: create store directory")
	}

	s := &DeviceStore{path: path, data: storedData{Devices: make(map[string]Device)}}

	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		util.GetLogger().Debug("no existing device store, starting fresh", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "auth: read device store")
	}

	var loaded storedData
	if err := json.Unmarshal(contents, &loaded); err != nil {
		util.GetLogger().Warn("device store corrupt, starting fresh", "path", path, "error", err)
		return s, nil
	}
	if loaded.Devices == nil {
		loaded.Devices = make(map[string]Device)
	}
	s.data = loaded
	util.GetLogger().Info("loaded device store", "path", path, "devices", len(loaded.Devices))
	return s, nil
}

// save must be called with mu held (read or write — it only reads s.data).
func (s *DeviceStore) save() error {
	payload, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "auth: marshal device store")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".devices-*.json.tmp")
	if err != nil {
		return errors.Wrap(err, "auth: create temp file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return errors.Wrap(err, "auth: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "auth: close temp file")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return errors.Wrap(err, "auth: rename temp file into place")
	}
	return nil
}

// SaveDevice inserts or replaces a device by ID.
func (s *DeviceStore) SaveDevice(d Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Devices[d.ID] = d
	if err := s.save(); err != nil {
		return err
	}
	util.GetLogger().Info("saved device", "id", d.ID)
	return nil
}

// GetDevice returns the device with the given ID.
func (s *DeviceStore) GetDevice(id string) (Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.data.Devices[id]
	return d, ok
}

// GetDeviceByTokenHash scans for the device matching the given hashed
// token. O(n) in the number of paired devices, which is expected to stay
// small (a handful of personal devices).
func (s *DeviceStore) GetDeviceByTokenHash(tokenHash string) (Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.data.Devices {
		if d.TokenHash == tokenHash {
			return d, true
		}
	}
	return Device{}, false
}

// ListDevices returns all paired devices in no particular order.
func (s *DeviceStore) ListDevices() []Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Device, 0, len(s.data.Devices))
	for _, d := range s.data.Devices {
		out = append(out, d)
	}
	return out
}

// RemoveDevice deletes a device by ID.
func (s *DeviceStore) RemoveDevice(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Devices[id]; !ok {
		return ErrDeviceNotFound
	}
	delete(s.data.Devices, id)
	if err := s.save(); err != nil {
		return err
	}
	util.GetLogger().Info("removed device", "id", id)
	return nil
}

// TouchDevice updates a device's LastSeen to now and persists it.
func (s *DeviceStore) TouchDevice(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.data.Devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	d.Touch()
	s.data.Devices[id] = d
	return s.save()
}

// HasDevices reports whether any device is currently paired.
func (s *DeviceStore) HasDevices() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Devices) > 0
}
