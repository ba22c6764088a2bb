// Package transport is the gateway exposing the capture/encode pipeline and
// the input dispatcher to remote clients: TLS HTTP serving the pairing and
// device REST API plus the /ws/video and /ws/input upgrades. Routing follows
// the teacher's device-connect API server (a plain http.ServeMux, no router
// library), and the websocket layer is built on gorilla/websocket the same
// way the teacher's H.264 streaming handler is.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/BeckhamLabsLLC/linglide/internal/auth"
	"github.com/BeckhamLabsLLC/linglide/internal/broadcaster"
	"github.com/BeckhamLabsLLC/linglide/internal/certs"
	"github.com/BeckhamLabsLLC/linglide/internal/discovery"
	"github.com/BeckhamLabsLLC/linglide/internal/protocol"
	"github.com/BeckhamLabsLLC/linglide/internal/util"
)

// StreamInfo describes the video stream's static parameters, known once the
// capture/encode pipeline starts, that the gateway needs to answer /api/info
// and prime every video channel's Init message.
type StreamInfo struct {
	Width  int
	Height int
	FPS    int
}

// Server is the TLS HTTP/WebSocket gateway: pairing and device REST
// endpoints, and the /ws/video and /ws/input upgrades. When authRequired is
// set, the two websocket upgrades are gated by auth.Manager tokens; the REST
// endpoints are served without a token check. Grounded on the teacher's
// device-connect api.Server (ServeMux, ReadTimeout/WriteTimeout, Start/Stop
// lifecycle), adapted to serve TLS off a certs.Bundle and to gate every
// websocket upgrade with pairing tokens instead of serving unauthenticated.
type Server struct {
	port         int
	authRequired bool
	bundle       certs.Bundle

	auth        *auth.Manager
	broadcaster *broadcaster.Broadcaster
	inputEvents chan<- protocol.InputEvent
	codec       func() (codec, codecData string)
	info        StreamInfo
	staticDir   string
	discovery   discovery.Info

	server    *http.Server
	isRunning bool
}

// Config gathers everything the gateway needs to wire its routes.
type Config struct {
	Port         int
	AuthRequired bool
	Bundle       certs.Bundle
	Auth         *auth.Manager
	Broadcaster  *broadcaster.Broadcaster
	// InputEvents is the single many-producer, one-consumer queue every
	// /ws/input connection feeds; the input dispatcher is the consumer,
	// run independently of the gateway's own lifecycle.
	InputEvents chan<- protocol.InputEvent
	Info        StreamInfo
	// CodecFunc returns the current MSE codec string and base64 avcC
	// configuration record, both unavailable until the encoder has seen its
	// first frame; Init messages sent before then carry empty values.
	CodecFunc func() (codec, codecData string)
	StaticDir string
	Discovery discovery.Info
}

// NewServer builds the gateway from cfg. It does not start listening; call
// Start to do that.
func NewServer(cfg Config) *Server {
	codecFunc := cfg.CodecFunc
	if codecFunc == nil {
		codecFunc = func() (string, string) { return "", "" }
	}
	return &Server{
		port:         cfg.Port,
		authRequired: cfg.AuthRequired,
		bundle:       cfg.Bundle,
		auth:         cfg.Auth,
		broadcaster:  cfg.Broadcaster,
		inputEvents:  cfg.InputEvents,
		codec:        codecFunc,
		info:         cfg.Info,
		staticDir:    cfg.StaticDir,
		discovery:    cfg.Discovery,
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws/video", s.handleVideo)
	mux.HandleFunc("/ws/input", s.handleInput)

	mux.HandleFunc("/api/pair/start", s.handlePairStart)
	mux.HandleFunc("/api/pair/verify", s.handlePairVerify)
	mux.HandleFunc("/api/pair/qr", s.handlePairQR)
	mux.HandleFunc("/api/pair/status", s.handlePairStatus)
	mux.HandleFunc("/api/devices", s.handleDevices)
	mux.HandleFunc("/api/devices/", s.handleDeviceByID)
	mux.HandleFunc("/api/info", s.handleInfo)
	mux.HandleFunc("/api/discovery", s.handleDiscovery)

	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	} else {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})
	}

	return mux
}

// Start builds the TLS listener and begins serving in the background,
// returning once the certificate is loaded so a caller can treat a Start
// error as fatal startup failure.
func (s *Server) Start() error {
	if s.isRunning {
		return errors.New("transport: server already running")
	}

	cert, err := tls.X509KeyPair([]byte(s.bundle.CertPEM), []byte(s.bundle.KeyPEM))
	if err != nil {
		return errors.Wrap(err, "transport: load TLS certificate")
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // video/input connections are long-lived streams
		TLSConfig:    &tls.Config{Certificates: []tls.Certificate{cert}},
	}

	log := util.GetLogger()
	log.Info("starting transport gateway", "port", s.port, "auth_required", s.authRequired)
	s.isRunning = true

	go func() {
		if err := s.server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("transport gateway stopped unexpectedly", "error", err)
			s.isRunning = false
		}
	}()

	return nil
}

// Stop shuts the gateway down, allowing in-flight requests a grace window
// to drain before closing, mirroring the spec's 2-5s graceful shutdown
// window for video/input connections.
func (s *Server) Stop() error {
	if !s.isRunning || s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	util.GetLogger().Info("stopping transport gateway")
	s.isRunning = false
	return s.server.Shutdown(ctx)
}

// IsRunning reports whether the gateway is currently serving.
func (s *Server) IsRunning() bool { return s.isRunning }

// authenticate validates the pairing token carried either as a query
// parameter or an Authorization: Bearer header, per the spec's wire
// contract for gating /ws/video and /ws/input. It touches the device's
// last-seen timestamp on success.
func (s *Server) authenticate(r *http.Request) (auth.Device, bool) {
	if !s.authRequired {
		return auth.Device{}, true
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
	}
	if token == "" {
		return auth.Device{}, false
	}

	dev, err := s.auth.ValidateToken(token)
	if err != nil {
		return auth.Device{}, false
	}
	_ = s.auth.TouchDevice(token)
	return dev, true
}

// videoIdleTimeout is how long the video channel waits without a segment to
// broadcast before sending a Ping keepalive.
const videoIdleTimeout = 30 * time.Second

// InputQueueCapacity bounds the channel feeding the input dispatcher: many
// producers (one per /ws/input connection) and a single consumer. Exported
// so the command that wires capture, encoder, gateway, and dispatcher
// together can size that channel without duplicating the constant.
const InputQueueCapacity = 64
