// Package discovery describes the server's network-discovery identity: the
// mDNS service metadata a mobile client can use to find this host without
// being told its address by hand. Actually advertising that service over
// mDNS, and the USB/ADB reverse-tunnel port forwarding that substitutes for
// it on a wired connection, are host-OS capabilities outside this module's
// scope (see spec's Out of scope); this package only builds the JSON
// payload the /api/discovery endpoint reports, grounded on the teacher's
// plain-struct info DTOs (e.g. internal/device_connect's status payloads).
package discovery

// ServiceType is the mDNS/DNS-SD service type a real advertiser would
// register this server under.
const ServiceType = "_linglide._tcp.local."

// Info is the discovery payload served at /api/discovery.
type Info struct {
	ServiceType  string   `json:"service_type"`
	InstanceName string   `json:"instance_name"`
	Port         int      `json:"port"`
	Fingerprint  string   `json:"fingerprint,omitempty"`
	Addresses    []string `json:"addresses"`
	Version      string   `json:"version"`
}

// New builds discovery info reporting fingerprint truncated to its first 20
// characters, matching the same truncation the pairing QR payload uses.
func New(instanceName string, port int, fingerprint string, addresses []string, version string) Info {
	if len(fingerprint) > 20 {
		fingerprint = fingerprint[:20]
	}
	return Info{
		ServiceType:  ServiceType,
		InstanceName: instanceName,
		Port:         port,
		Fingerprint:  fingerprint,
		Addresses:    addresses,
		Version:      version,
	}
}
