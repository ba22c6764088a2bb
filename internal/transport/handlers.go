package transport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"

	"github.com/BeckhamLabsLLC/linglide/internal/auth"
	"github.com/BeckhamLabsLLC/linglide/internal/broadcaster"
	"github.com/BeckhamLabsLLC/linglide/internal/protocol"
	"github.com/BeckhamLabsLLC/linglide/internal/util"
)

// upgrader allows any origin, matching the teacher's H.264 websocket handler
// — this gateway authenticates with a pairing token instead, checked inside
// each handler before the upgrade completes.
var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// respondJSON writes data as an application/json response with statusCode,
// the same small helper the teacher's REST handlers share.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}

// handleVideo upgrades to a websocket, sends the Init/Ready control
// messages, then streams every subscribed segment as a binary message. The
// broadcaster primes the subscription with the cached init and keyframe
// segments ahead of live ones, so a late joiner never waits for the next
// GOP boundary. Idle periods longer than videoIdleTimeout send a Ping
// keepalive instead of leaving the connection silent.
func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	log := util.GetLogger()

	if _, ok := s.authenticate(r); !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("video upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	codec, codecData := s.codec()
	init := protocol.NewInitMessage(s.info.Width, s.info.Height, s.info.FPS, codec, codecData)
	if err := conn.WriteJSON(init); err != nil {
		log.Debug("video init write failed", "error", err)
		return
	}
	if err := conn.WriteJSON(protocol.ReadyMessage); err != nil {
		log.Debug("video ready write failed", "error", err)
		return
	}

	subscriberID := uuid.NewString()
	segments := s.broadcaster.Subscribe(subscriberID)
	defer s.broadcaster.Unsubscribe(subscriberID)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return

		case delivery, ok := <-segments:
			if !ok {
				return
			}
			if delivery.Kind == broadcaster.KindLagged {
				log.Warn("video subscriber lagged, resuming from next keyframe", "id", subscriberID, "dropped", delivery.Lagged)
				continue
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, delivery.Segment.Data); err != nil {
				log.Debug("video segment write failed", "id", subscriberID, "error", err)
				return
			}

		case <-time.After(videoIdleTimeout):
			ping := protocol.NewPingMessage(time.Now().Unix())
			if err := conn.WriteJSON(ping); err != nil {
				log.Debug("video ping failed", "id", subscriberID, "error", err)
				return
			}
		}
	}
}

// handleInput upgrades to a websocket and forwards every decoded
// InputEvent onto the shared dispatcher queue. A message that fails to
// parse is logged and skipped rather than closing the connection — one
// malformed event from a client shouldn't end its whole session.
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	log := util.GetLogger()

	if _, ok := s.authenticate(r); !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("input upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		ev, err := protocol.ParseInputEvent(data)
		if err != nil {
			log.Debug("dropping malformed input event", "error", err)
			continue
		}

		if s.inputEvents != nil {
			s.inputEvents <- ev
		}
	}
}

// handlePairStart opens a new pairing session and returns its PIN.
func (s *Server) handlePairStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp, err := s.auth.StartPairing()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to start pairing")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// handlePairVerify completes pairing given a session ID and PIN, issuing a
// bearer token for the newly paired device.
func (s *Server) handlePairVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req auth.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.auth.VerifyPin(req)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, resp)
	case err == auth.ErrSessionNotFound:
		respondError(w, http.StatusNotFound, "pairing session not found or expired")
	case err == auth.ErrInvalidPin:
		respondError(w, http.StatusUnauthorized, "invalid PIN")
	default:
		respondError(w, http.StatusInternalServerError, "pairing failed")
	}
}

// handlePairQR renders the pairing URL for a still-pending session as a PNG
// QR code, embedding the session's PIN, ID, and (if known) the server's
// certificate fingerprint so a scanning client can pair and pin the
// self-signed certificate in one step.
func (s *Server) handlePairQR(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing session_id")
		return
	}

	data, ok := s.auth.GetQRData(sessionID)
	if !ok {
		respondError(w, http.StatusNotFound, "pairing session not found or expired")
		return
	}

	size := 256
	if raw := r.URL.Query().Get("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1024 {
			size = n
		}
	}

	payload := pairingURL(data)
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// pairingURL builds the linglide://pair deep link a mobile client's camera
// scan resolves into a pairing attempt.
func pairingURL(data auth.QRData) string {
	q := make([]string, 0, 5)
	q = append(q, "url="+urlEscape(data.URL))
	q = append(q, "pin="+urlEscape(data.Pin))
	q = append(q, "session="+urlEscape(data.SessionID))
	if data.Fingerprint != "" {
		q = append(q, "fp="+urlEscape(data.Fingerprint))
	}
	if data.Version != "" {
		q = append(q, "v="+urlEscape(data.Version))
	}
	return "linglide://pair?" + strings.Join(q, "&")
}

func urlEscape(s string) string {
	r := strings.NewReplacer(" ", "%20", "&", "%26", "#", "%23")
	return r.Replace(s)
}

// handlePairStatus reports whether a pairing session is still pending and,
// if so, its remaining validity window.
func (s *Server) handlePairStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing session_id")
		return
	}

	pin, remaining, ok := s.auth.SessionInfo(sessionID)
	if !ok {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"valid":      false,
			"expires_in": 0,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":      true,
		"pin":        pin,
		"expires_in": remaining,
	})
}

// handleDevices lists every currently paired device.
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	devices := s.auth.ListDevices()
	out := make([]auth.Info, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.ToInfo())
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"devices": out})
}

// handleDeviceByID revokes a single paired device at /api/devices/{id}.
func (s *Server) handleDeviceByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/devices/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing device id")
		return
	}

	if err := s.auth.RevokeDevice(id); err != nil {
		if err == auth.ErrDeviceNotFound {
			respondError(w, http.StatusNotFound, "device not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to revoke device")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleInfo reports the server's current stream configuration and pairing
// state, the unauthenticated discovery surface a client checks before
// attempting to pair.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"width":         s.info.Width,
		"height":        s.info.Height,
		"fps":           s.info.FPS,
		"auth_required": s.authRequired,
		"paired":        s.auth.HasPairedDevices(),
		"fingerprint":   s.bundle.Fingerprint,
	})
}

// handleDiscovery reports the static mDNS-equivalent discovery payload.
func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.discovery)
}
