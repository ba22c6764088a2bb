package auth

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *DeviceStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewDeviceStore(filepath.Join(dir, "devices.json"))
	require.NoError(t, err)
	return store
}

func TestDeviceStoreCRUD(t *testing.T) {
	store := newTestStore(t)

	d := NewDevice("Test", DeviceKindBrowser, "hash123")
	require.NoError(t, store.SaveDevice(d))

	loaded, ok := store.GetDevice(d.ID)
	require.True(t, ok)
	assert.Equal(t, "Test", loaded.Name)

	all := store.ListDevices()
	assert.Len(t, all, 1)

	require.NoError(t, store.RemoveDevice(d.ID))
	_, ok = store.GetDevice(d.ID)
	assert.False(t, ok)
}

func TestDeviceStorePersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devices.json")

	store, err := NewDeviceStore(path)
	require.NoError(t, err)
	d := NewDevice("Persistent", DeviceKindIOS, "hash456")
	require.NoError(t, store.SaveDevice(d))

	reloaded, err := NewDeviceStore(path)
	require.NoError(t, err)
	loaded, ok := reloaded.GetDevice(d.ID)
	require.True(t, ok)
	assert.Equal(t, "Persistent", loaded.Name)
}

func TestDeviceStoreRemoveMissingReturnsErrDeviceNotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.RemoveDevice("nonexistent")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestParseDeviceKind(t *testing.T) {
	assert.Equal(t, DeviceKindIOS, ParseDeviceKind("iPhone"))
	assert.Equal(t, DeviceKindAndroid, ParseDeviceKind("Android"))
	assert.Equal(t, DeviceKindBrowser, ParseDeviceKind("web"))
	assert.Equal(t, DeviceKindUnknown, ParseDeviceKind("toaster"))
}

func TestHashTokenDeterministic(t *testing.T) {
	h1 := HashToken("token-123")
	h2 := HashToken("token-123")
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, HashToken("different"))
}

func TestPairingFlow(t *testing.T) {
	store := newTestStore(t)
	mgr := NewManager(store, "https://localhost:8443", "", "")

	start, err := mgr.StartPairing()
	require.NoError(t, err)
	assert.Len(t, start.Pin, 6)
	assert.EqualValues(t, 60, start.ExpiresIn)

	resp, err := mgr.VerifyPin(VerifyRequest{
		SessionID:  start.SessionID,
		Pin:        start.Pin,
		DeviceName: "Test Device",
		DeviceType: "browser",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.DeviceID)
	assert.NotEmpty(t, resp.Token)

	device, err := mgr.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "Test Device", device.Name)
}

func TestPairingInvalidPin(t *testing.T) {
	store := newTestStore(t)
	mgr := NewManager(store, "https://localhost:8443", "", "")

	start, err := mgr.StartPairing()
	require.NoError(t, err)

	_, err = mgr.VerifyPin(VerifyRequest{
		SessionID:  start.SessionID,
		Pin:        "000000",
		DeviceName: "Test",
	})
	assert.ErrorIs(t, err, ErrInvalidPin)
}

func TestPairingSessionNotFound(t *testing.T) {
	store := newTestStore(t)
	mgr := NewManager(store, "https://localhost:8443", "", "")

	_, err := mgr.VerifyPin(VerifyRequest{
		SessionID:  "nonexistent",
		Pin:        "123456",
		DeviceName: "Test",
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPairingConsumesSessionOnSuccess(t *testing.T) {
	store := newTestStore(t)
	mgr := NewManager(store, "https://localhost:8443", "", "")

	start, err := mgr.StartPairing()
	require.NoError(t, err)

	req := VerifyRequest{SessionID: start.SessionID, Pin: start.Pin, DeviceName: "Test"}
	_, err = mgr.VerifyPin(req)
	require.NoError(t, err)

	_, err = mgr.VerifyPin(req)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestValidateTokenUnknown(t *testing.T) {
	store := newTestStore(t)
	mgr := NewManager(store, "https://localhost:8443", "", "")

	_, err := mgr.ValidateToken("not-a-real-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
