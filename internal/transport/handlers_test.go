package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeckhamLabsLLC/linglide/internal/auth"
	"github.com/BeckhamLabsLLC/linglide/internal/broadcaster"
	"github.com/BeckhamLabsLLC/linglide/internal/discovery"
	"github.com/BeckhamLabsLLC/linglide/internal/protocol"
)

func newTestServer(t *testing.T, authRequired bool) *Server {
	t.Helper()
	dir := t.TempDir()
	store, err := auth.NewDeviceStore(filepath.Join(dir, "devices.json"))
	require.NoError(t, err)

	authMgr := auth.NewManager(store, "https://localhost:8443", "AA:BB:CC", "test")
	bcast := broadcaster.NewBroadcaster(4)

	return NewServer(Config{
		Port:         8443,
		AuthRequired: authRequired,
		Auth:         authMgr,
		Broadcaster:  bcast,
		InputEvents:  make(chan protocol.InputEvent, 8),
		Info:         StreamInfo{Width: 1920, Height: 1080, FPS: 60},
		Discovery:    discovery.New("LinGlide-test", 8443, "AA:BB:CC", []string{"127.0.0.1"}, "test"),
	})
}

func TestHandlePairStartAndVerify(t *testing.T) {
	s := newTestServer(t, true)
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/pair/start", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var start auth.StartResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&start))
	assert.Len(t, start.Pin, 6)

	verifyResp, err := http.Post(srv.URL+"/api/pair/verify", "application/json",
		jsonBody(t, auth.VerifyRequest{SessionID: start.SessionID, Pin: start.Pin, DeviceName: "Test"}))
	require.NoError(t, err)
	defer verifyResp.Body.Close()
	assert.Equal(t, http.StatusOK, verifyResp.StatusCode)

	var verified auth.VerifyResponse
	require.NoError(t, json.NewDecoder(verifyResp.Body).Decode(&verified))
	assert.NotEmpty(t, verified.Token)
}

func TestHandlePairVerifyWrongPinReturnsUnauthorized(t *testing.T) {
	s := newTestServer(t, true)
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/pair/start", "application/json", nil)
	require.NoError(t, err)
	var start auth.StartResponse
	json.NewDecoder(resp.Body).Decode(&start)
	resp.Body.Close()

	verifyResp, err := http.Post(srv.URL+"/api/pair/verify", "application/json",
		jsonBody(t, auth.VerifyRequest{SessionID: start.SessionID, Pin: "000000", DeviceName: "Test"}))
	require.NoError(t, err)
	defer verifyResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, verifyResp.StatusCode)
}

func TestHandleDevicesListAndRevoke(t *testing.T) {
	s := newTestServer(t, true)
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	resp, _ := http.Post(srv.URL+"/api/pair/start", "application/json", nil)
	var start auth.StartResponse
	json.NewDecoder(resp.Body).Decode(&start)
	resp.Body.Close()

	verifyResp, _ := http.Post(srv.URL+"/api/pair/verify", "application/json",
		jsonBody(t, auth.VerifyRequest{SessionID: start.SessionID, Pin: start.Pin, DeviceName: "Phone"}))
	var verified auth.VerifyResponse
	json.NewDecoder(verifyResp.Body).Decode(&verified)
	verifyResp.Body.Close()

	listResp, err := http.Get(srv.URL + "/api/devices")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var list struct {
		Devices []auth.Info `json:"devices"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	require.Len(t, list.Devices, 1)
	assert.Equal(t, "Phone", list.Devices[0].Name)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/devices/"+list.Devices[0].ID, nil)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	req2, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/devices/"+list.Devices[0].ID, nil)
	delResp2, err := http.DefaultClient.Do(req2)
	require.NoError(t, err)
	defer delResp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, delResp2.StatusCode)
}

func TestHandleInfoReportsStreamConfig(t *testing.T) {
	s := newTestServer(t, false)
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/info")
	require.NoError(t, err)
	defer resp.Body.Close()

	var info map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.EqualValues(t, 1920, info["width"])
	assert.EqualValues(t, false, info["auth_required"])
}

func TestHandleDiscoveryReportsServiceInfo(t *testing.T) {
	s := newTestServer(t, false)
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/discovery")
	require.NoError(t, err)
	defer resp.Body.Close()

	var info discovery.Info
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "LinGlide-test", info.InstanceName)
	assert.Equal(t, discovery.ServiceType, info.ServiceType)
}

func TestHandlePairStatusUnknownSessionReportsInvalid(t *testing.T) {
	s := newTestServer(t, true)
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/pair/status?session_id=nonexistent")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, false, status["valid"])
}

func TestPairingURLFormatsDeepLink(t *testing.T) {
	data := auth.QRData{
		URL:         "https://192.168.1.5:8443",
		Pin:         "123456",
		SessionID:   "session-abc",
		Fingerprint: "AA:BB:CC:DD",
		Version:     "1.0.0",
	}

	link := pairingURL(data)
	assert.Contains(t, link, "linglide://pair?")
	assert.Contains(t, link, "pin=123456")
	assert.Contains(t, link, "session=session-abc")
	assert.Contains(t, link, "fp=AA:BB:CC:DD")
	assert.Contains(t, link, "v=1.0.0")
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}
