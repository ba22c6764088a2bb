// Package certs manages the self-signed TLS certificate the transport
// gateway presents to pairing clients: generation, disk persistence,
// fingerprinting, and renewal.
//
// Certificate generation uses the standard library (crypto/x509, crypto/
// ecdsa, encoding/pem) rather than a third-party library: no certificate-
// generation crate appears anywhere in the example pack, and x509 self-
// signing is one of the few PKI operations the standard library already
// covers completely, so reaching for an external dependency here would add
// a dependency with no precedent in the corpus for no material benefit.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/BeckhamLabsLLC/linglide/internal/util"
)

// ValidityPeriod is how long a freshly generated certificate remains
// valid.
const ValidityPeriod = 365 * 24 * time.Hour

// RenewalThreshold is how much validity must remain before a certificate
// is considered still usable; closer than this and load_or_generate
// regenerates early.
const RenewalThreshold = 30 * 24 * time.Hour

// Bundle holds the PEM-encoded certificate and key, plus the certificate's
// fingerprint.
type Bundle struct {
	CertPEM     string
	KeyPEM      string
	Fingerprint string
}

type metadata struct {
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Fingerprint string    `json:"fingerprint"`
	Hostnames   []string  `json:"hostnames"`
}

// Manager generates, persists, and reloads the server's self-signed
// certificate under a config directory.
type Manager struct {
	dir string
}

// NewManager creates a certificate manager rooted at dir, creating it if
// necessary.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "certs: create directory")
	}
	return &Manager{dir: dir}, nil
}

func (m *Manager) certPath() string { return filepath.Join(m.dir, "server.crt") }
func (m *Manager) keyPath() string  { return filepath.Join(m.dir, "server.key") }
func (m *Manager) metaPath() string { return filepath.Join(m.dir, "cert_meta.json") }

// LoadOrGenerate returns a usable certificate bundle for hostnames: the
// existing one on disk if it is not close to expiry and its SAN set still
// matches hostnames, otherwise a freshly generated one.
func (m *Manager) LoadOrGenerate(hostnames []string) (Bundle, error) {
	if meta, ok := m.loadMetadata(); ok && m.isValid(meta, hostnames) {
		certPEM, err1 := os.ReadFile(m.certPath())
		keyPEM, err2 := os.ReadFile(m.keyPath())
		if err1 == nil && err2 == nil {
			util.GetLogger().Info("loading existing certificate", "expires_at", meta.ExpiresAt)
			return Bundle{CertPEM: string(certPEM), KeyPEM: string(keyPEM), Fingerprint: meta.Fingerprint}, nil
		}
	}

	util.GetLogger().Info("generating new self-signed certificate", "hostnames", hostnames)
	return m.generateAndSave(hostnames)
}

func (m *Manager) generateAndSave(hostnames []string) (Bundle, error) {
	certPEM, keyPEM, err := GenerateSelfSigned(hostnames)
	if err != nil {
		return Bundle{}, err
	}
	fingerprint := Fingerprint(certPEM)

	if err := os.WriteFile(m.certPath(), []byte(certPEM), 0o600); err != nil {
		return Bundle{}, errors.Wrap(err, "certs: write certificate")
	}
	if err := os.WriteFile(m.keyPath(), []byte(keyPEM), 0o600); err != nil {
		return Bundle{}, errors.Wrap(err, "certs: write key")
	}

	meta := metadata{
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   time.Now().UTC().Add(ValidityPeriod),
		Fingerprint: fingerprint,
		Hostnames:   hostnames,
	}
	if err := m.saveMetadata(meta); err != nil {
		return Bundle{}, err
	}

	util.GetLogger().Info("certificate saved", "path", m.certPath(), "fingerprint", fingerprint)
	return Bundle{CertPEM: certPEM, KeyPEM: keyPEM, Fingerprint: fingerprint}, nil
}

func (m *Manager) isValid(meta metadata, hostnames []string) bool {
	if time.Until(meta.ExpiresAt) < RenewalThreshold {
		util.GetLogger().Debug("certificate expiring soon")
		return false
	}

	current := append([]string(nil), hostnames...)
	stored := append([]string(nil), meta.Hostnames...)
	sort.Strings(current)
	sort.Strings(stored)
	if !equalStrings(current, stored) {
		util.GetLogger().Debug("hostnames changed, regenerating certificate")
		return false
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m *Manager) loadMetadata() (metadata, bool) {
	contents, err := os.ReadFile(m.metaPath())
	if err != nil {
		return metadata{}, false
	}
	var meta metadata
	if err := json.Unmarshal(contents, &meta); err != nil {
		return metadata{}, false
	}
	return meta, true
}

func (m *Manager) saveMetadata(meta metadata) error {
	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.Wrap(err, "certs: marshal metadata")
	}
	if err := os.WriteFile(m.metaPath(), payload, 0o600); err != nil {
		return errors.Wrap(err, "certs: write metadata")
	}
	return nil
}

// Fingerprint returns the current certificate's fingerprint, if one has
// been generated.
func (m *Manager) Fingerprint() (string, bool) {
	meta, ok := m.loadMetadata()
	if !ok {
		return "", false
	}
	return meta.Fingerprint, true
}

// GenerateSelfSigned creates an ECDSA P-256 self-signed certificate valid
// for "localhost", 127.0.0.1, and every entry in hostnames (parsed as an
// IP where possible, otherwise a DNS name).
func GenerateSelfSigned(hostnames []string) (certPEM, keyPEM string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", errors.Wrap(err, "certs: generate key")
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return "", "", errors.Wrap(err, "certs: generate serial")
	}

	var ips []net.IP
	var dnsNames []string
	dnsNames = append(dnsNames, "localhost")
	ips = append(ips, net.IPv4(127, 0, 0, 1))

	for _, h := range hostnames {
		if ip := net.ParseIP(h); ip != nil {
			ips = append(ips, ip)
		} else if h != "" {
			dnsNames = append(dnsNames, h)
		}
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   "LinGlide",
			Organization: []string{"LinGlide"},
		},
		NotBefore:             now.Add(-5 * time.Minute),
		NotAfter:              now.Add(ValidityPeriod),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              dnsNames,
		IPAddresses:           ips,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return "", "", errors.Wrap(err, "certs: create certificate")
	}

	certPEM = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", errors.Wrap(err, "certs: marshal key")
	}
	keyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}))

	return certPEM, keyPEM, nil
}

// Fingerprint returns the SHA-256 digest of the certificate PEM text,
// formatted as colon-separated uppercase hex pairs (32 bytes -> 95 chars),
// matching the format browsers show for certificate fingerprints.
func Fingerprint(certPEM string) string {
	sum := sha256.Sum256([]byte(certPEM))
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}
