package certs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSelfSigned(t *testing.T) {
	certPEM, keyPEM, err := GenerateSelfSigned([]string{"192.168.1.100"})
	require.NoError(t, err)
	assert.NotEmpty(t, certPEM)
	assert.NotEmpty(t, keyPEM)
	assert.Contains(t, certPEM, "BEGIN CERTIFICATE")
	assert.Contains(t, keyPEM, "BEGIN PRIVATE KEY")
}

func TestFingerprintFormat(t *testing.T) {
	fp := Fingerprint("-----BEGIN CERTIFICATE-----\ntest\n-----END CERTIFICATE-----")
	assert.Contains(t, fp, ":")
	assert.Len(t, fp, 95)
	assert.Equal(t, strings.ToUpper(fp), fp)
}

func TestCertificateManagerLoadOrGenerate(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir)
	require.NoError(t, err)

	hostnames := []string{"localhost", "192.168.1.1"}

	b1, err := mgr.LoadOrGenerate(hostnames)
	require.NoError(t, err)
	assert.NotEmpty(t, b1.CertPEM)
	assert.NotEmpty(t, b1.Fingerprint)

	b2, err := mgr.LoadOrGenerate(hostnames)
	require.NoError(t, err)
	assert.Equal(t, b1.CertPEM, b2.CertPEM)
	assert.Equal(t, b1.Fingerprint, b2.Fingerprint)

	b3, err := mgr.LoadOrGenerate([]string{"localhost", "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEqual(t, b1.CertPEM, b3.CertPEM)
	assert.NotEqual(t, b1.Fingerprint, b3.Fingerprint)
}
