package cmd

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BeckhamLabsLLC/linglide/config"
	"github.com/BeckhamLabsLLC/linglide/internal/auth"
	"github.com/BeckhamLabsLLC/linglide/internal/broadcaster"
	"github.com/BeckhamLabsLLC/linglide/internal/capture"
	"github.com/BeckhamLabsLLC/linglide/internal/certs"
	"github.com/BeckhamLabsLLC/linglide/internal/discovery"
	"github.com/BeckhamLabsLLC/linglide/internal/encoder"
	"github.com/BeckhamLabsLLC/linglide/internal/fmp4"
	"github.com/BeckhamLabsLLC/linglide/internal/input"
	"github.com/BeckhamLabsLLC/linglide/internal/protocol"
	"github.com/BeckhamLabsLLC/linglide/internal/transport"
	"github.com/BeckhamLabsLLC/linglide/internal/util"
	"github.com/BeckhamLabsLLC/linglide/internal/version"
)

// newServerCmd creates the server command with its start subcommand,
// grounded on the teacher's unified `server` command tree — simplified to a
// single foreground process, since this pipeline owns exclusive virtual
// display/input devices and has no multi-instance daemon mode to manage.
func newServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the linglide streaming server",
	}
	cmd.AddCommand(newServerStartCmd())
	return cmd
}

func newServerStartCmd() *cobra.Command {
	var (
		width, height, fps, bitrate int
		port                        int
		noAuth                      bool
		verbose                     bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start capturing, encoding, and serving the display",
		Long: `Starts the capture-to-transport pipeline: a synthetic capture source
feeds the software H.264 encoder, which feeds the fMP4 muxer and broadcaster,
served over TLS at /ws/video; input events arrive over /ws/input and are
replayed onto virtual touch, pen, and pointer devices.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServerStart(serverStartOptions{
				width: width, height: height, fps: fps, bitrate: bitrate,
				port: port, authRequired: !noAuth, verbose: verbose,
			})
		},
		Example: `  # Start with defaults (1920x1080 @ 60fps, pairing required)
  linglide server start

  # Start at a custom resolution and port
  linglide server start --width 2560 --height 1440 --port 9443

  # Start without pairing, for local testing only
  linglide server start --no-auth`,
	}

	// Flag defaults come from config (YAML file / LINGLIDE_* env vars,
	// falling back to the package constants), so an explicit flag
	// overrides config rather than replacing it as the only source.
	flags := cmd.Flags()
	flags.IntVarP(&width, "width", "W", config.GetWidth(), "Display width in pixels")
	flags.IntVarP(&height, "height", "H", config.GetHeight(), "Display height in pixels")
	flags.IntVarP(&fps, "fps", "f", config.GetFPS(), "Target frame rate")
	flags.IntVarP(&port, "port", "p", config.GetPort(), "TLS listen port")
	flags.IntVarP(&bitrate, "bitrate", "b", config.GetBitrateKbps(), "Video bitrate in kbps (no effect until a real H.264 encoder replaces the stub)")
	flags.BoolVar(&noAuth, "no-auth", !config.GetAuthRequired(), "Disable pairing/token authentication (local testing only)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

type serverStartOptions struct {
	width, height, fps, bitrate int
	port                        int
	authRequired                bool
	verbose                     bool
}

func runServerStart(opts serverStartOptions) error {
	util.InitLogger(opts.verbose)
	log := util.GetLogger()
	log.Info("linglide starting", "version", version.Version)

	home := config.GetHome()
	if err := os.MkdirAll(home, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	localIP := localIPAddress()

	certManager, err := certs.NewManager(home)
	if err != nil {
		return fmt.Errorf("create certificate manager: %w", err)
	}
	bundle, err := certManager.LoadOrGenerate([]string{localIP})
	if err != nil {
		return fmt.Errorf("load or generate certificate: %w", err)
	}
	log.Info("certificate ready", "fingerprint", bundle.Fingerprint)

	store, err := auth.NewDeviceStore(config.DevicesPath())
	if err != nil {
		return fmt.Errorf("open device store: %w", err)
	}

	serverURL := fmt.Sprintf("https://%s:%d", localIP, opts.port)
	authManager := auth.NewManager(store, serverURL, bundle.Fingerprint, version.Version)

	if opts.authRequired && !authManager.HasPairedDevices() {
		resp, err := authManager.StartPairing()
		if err != nil {
			return fmt.Errorf("start pairing: %w", err)
		}
		printPairingBanner(serverURL, resp)
	} else if opts.authRequired {
		log.Info("paired devices on file, skipping first-run pairing prompt")
	} else {
		log.Warn("authentication disabled via --no-auth; any client can connect")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pointer, err := input.NewPointer(opts.width, opts.height, 0, 0)
	if err != nil {
		return fmt.Errorf("create virtual pointer: %w", err)
	}
	defer pointer.Close()

	touch, err := input.NewTouch(opts.width, opts.height, 0, 0)
	if err != nil {
		return fmt.Errorf("create virtual touchscreen: %w", err)
	}
	defer touch.Close()

	stylus, err := input.NewStylus(opts.width, opts.height, 0, 0)
	if err != nil {
		return fmt.Errorf("create virtual stylus: %w", err)
	}
	defer stylus.Close()

	dispatcher := &input.Dispatcher{Pointer: pointer, Touch: touch, Stylus: stylus}
	inputEvents := make(chan protocol.InputEvent, transport.InputQueueCapacity)
	go dispatcher.Run(ctx, inputEvents)

	source := capture.NewSynthetic(opts.width, opts.height, 0, 0)
	frames := make(chan *capture.Frame, 2)
	driver := capture.NewDriver(source, opts.fps, frames)

	keyframeFrames := config.GetKeyframeIntervalFrames(opts.fps)
	enc := encoder.NewSoftware(keyframeFrames)
	mux := fmp4.New(opts.width, opts.height, opts.fps)
	pipeline := encoder.NewPipeline(opts.width, opts.height, enc, mux)

	segments := make(chan encoder.StreamSegment, config.DefaultBroadcastWindowSize)
	bcast := broadcaster.NewBroadcaster(config.DefaultBroadcastWindowSize)

	go func() {
		for seg := range segments {
			bcast.Publish(seg)
		}
	}()
	go func() {
		if err := pipeline.Run(ctx, frames, segments); err != nil && ctx.Err() == nil {
			log.Error("encoder pipeline stopped", "error", err)
		}
	}()
	go func() {
		if err := driver.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("capture driver stopped", "error", err)
		}
	}()

	codecFunc := func() (string, string) {
		cfg := mux.AVCDecoderConfig()
		if len(cfg) == 0 {
			return "", ""
		}
		return mux.CodecString(), base64.StdEncoding.EncodeToString(cfg)
	}

	disc := discovery.New(fmt.Sprintf("LinGlide-%s", hostnameOrUnknown()), opts.port, bundle.Fingerprint, []string{localIP}, version.Version)

	srv := transport.NewServer(transport.Config{
		Port:         opts.port,
		AuthRequired: opts.authRequired,
		Bundle:       bundle,
		Auth:         authManager,
		Broadcaster:  bcast,
		InputEvents:  inputEvents,
		Info:         transport.StreamInfo{Width: opts.width, Height: opts.height, FPS: opts.fps},
		CodecFunc:    codecFunc,
		Discovery:    disc,
	})
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start transport gateway: %w", err)
	}

	fmt.Printf("\n  linglide is running\n")
	fmt.Printf("  Access URL: %s\n", serverURL)
	fmt.Printf("  Cert fingerprint: %s\n\n", bundle.Fingerprint)
	fmt.Println("  Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	cancel()
	if err := srv.Stop(); err != nil {
		log.Error("error stopping transport gateway", "error", err)
	}
	return nil
}

func printPairingBanner(serverURL string, resp auth.StartResponse) {
	fmt.Println()
	fmt.Println("  No paired devices. Starting pairing session...")
	fmt.Println()
	fmt.Printf("  ╔══════════════════════════════════════╗\n")
	fmt.Printf("  ║         PAIRING PIN: %s           ║\n", resp.Pin)
	fmt.Printf("  ╚══════════════════════════════════════╝\n")
	fmt.Println()
	fmt.Printf("  Open %s on your device and enter the PIN above,\n", serverURL)
	fmt.Printf("  or fetch /api/pair/qr?session_id=%s for a scannable code.\n", resp.SessionID)
	fmt.Printf("  PIN expires in %d seconds.\n\n", resp.ExpiresIn)
}

// localIPAddress returns the first non-loopback IPv4 address found on any
// interface, or "localhost" if none is available (e.g. an isolated
// container). Used both as the pairing server's advertised hostname and as
// a certificate SAN.
func localIPAddress() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "localhost"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "localhost"
}

func hostnameOrUnknown() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
}
