package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

var v *viper.Viper

const (
	DefaultWidth               = 1920
	DefaultHeight              = 1080
	DefaultFPS                 = 60
	DefaultPort                = 8443
	DefaultBitrateKbps         = 8000
	DefaultPairingWindowSecs   = 60
	DefaultKeyframeWindowSecs  = 2
	DefaultCertRenewalDays     = 30
	DefaultBroadcastWindowSize = 16
)

func init() {
	v = viper.New()

	v.SetDefault("display.width", DefaultWidth)
	v.SetDefault("display.height", DefaultHeight)
	v.SetDefault("display.fps", DefaultFPS)
	v.SetDefault("stream.bitrate_kbps", DefaultBitrateKbps)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.auth_required", true)
	v.SetDefault("linglide.home", filepath.Join(xdg.ConfigHome, "linglide"))

	v.AutomaticEnv()
	v.BindEnv("display.width", "LINGLIDE_WIDTH")
	v.BindEnv("display.height", "LINGLIDE_HEIGHT")
	v.BindEnv("display.fps", "LINGLIDE_FPS")
	v.BindEnv("stream.bitrate_kbps", "LINGLIDE_BITRATE_KBPS")
	v.BindEnv("server.port", "LINGLIDE_PORT")
	v.BindEnv("server.auth_required", "LINGLIDE_AUTH_REQUIRED")
	v.BindEnv("linglide.home", "LINGLIDE_HOME")

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	configPaths := []string{
		".",
		"$HOME/.linglide",
		"/etc/linglide",
	}
	for _, path := range configPaths {
		v.AddConfigPath(os.ExpandEnv(path))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Sprintf("fatal error reading config file: %s", err))
		}
	}
}

// GetWidth returns the virtual display width in pixels.
func GetWidth() int { return v.GetInt("display.width") }

// GetHeight returns the virtual display height in pixels.
func GetHeight() int { return v.GetInt("display.height") }

// GetFPS returns the target capture/encode frame rate.
func GetFPS() int { return v.GetInt("display.fps") }

// GetBitrateKbps returns the configured H.264 constant bitrate in kbps.
func GetBitrateKbps() int { return v.GetInt("stream.bitrate_kbps") }

// GetPort returns the TLS listen port.
func GetPort() int { return v.GetInt("server.port") }

// GetAuthRequired reports whether pairing/token auth gates the websocket upgrades.
func GetAuthRequired() bool { return v.GetBool("server.auth_required") }

// GetKeyframeIntervalFrames returns how many encoded frames separate forced
// IDR refreshes, resolving the spec's open question on keyframe cadence.
// It takes the server's resolved frame rate (which may have been
// overridden on the command line past whatever GetFPS reports) rather
// than reading display.fps itself, so a --fps override still yields a
// correct cadence instead of one computed against a stale config value.
func GetKeyframeIntervalFrames(fps int) int {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return fps * DefaultKeyframeWindowSecs
}

// GetHome returns the directory holding devices.json and the certificate
// triplet, defaulting to $XDG_CONFIG_HOME/linglide.
func GetHome() string {
	home := v.GetString("linglide.home")
	if home == "" {
		return filepath.Join(xdg.ConfigHome, "linglide")
	}
	return home
}

// DevicesPath returns the path of the persisted device store.
func DevicesPath() string {
	return filepath.Join(GetHome(), "devices.json")
}

// CertPath, KeyPath, and CertMetaPath return the certificate triplet paths.
func CertPath() string     { return filepath.Join(GetHome(), "server.crt") }
func KeyPath() string      { return filepath.Join(GetHome(), "server.key") }
func CertMetaPath() string { return filepath.Join(GetHome(), "cert_meta.json") }
