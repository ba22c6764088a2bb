package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeckhamLabsLLC/linglide/internal/auth"
)

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = oldStdout }()

	runErr := fn()

	w.Close()
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String(), runErr
}

func testServerPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return port
}

func TestRunDevicesListPrintsTable(t *testing.T) {
	paired := auth.Info{ID: "dev-1", Name: "Test Phone", Kind: auth.DeviceKindAndroid}

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/devices", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"devices": []auth.Info{paired}})
	}))
	defer srv.Close()

	output, err := captureStdout(t, func() error {
		return runDevicesList(testServerPort(t, srv))
	})
	require.NoError(t, err)
	assert.Contains(t, output, "Test Phone")
	assert.Contains(t, output, "android")
}

func TestRunDevicesListReportsNoneWhenEmpty(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"devices": []auth.Info{}})
	}))
	defer srv.Close()

	output, err := captureStdout(t, func() error {
		return runDevicesList(testServerPort(t, srv))
	})
	require.NoError(t, err)
	assert.Contains(t, output, "No paired devices")
}

func TestRunDevicesRevokeReportsServerError(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := runDevicesRevoke(testServerPort(t, srv), "missing-device")
	assert.Error(t, err)
}

func TestLocalIPAddressReturnsNonLoopback(t *testing.T) {
	ip := localIPAddress()
	assert.NotEmpty(t, ip)
	assert.NotEqual(t, "127.0.0.1", ip)
}
