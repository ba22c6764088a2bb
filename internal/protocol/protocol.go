// Package protocol defines the JSON wire types exchanged over the input
// and video websockets: client input events, server control messages, and
// the frame metadata attached to encoded segments.
package protocol

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// PenButton identifies which stylus button produced a PenButtonEvent.
type PenButton string

const (
	PenButtonPrimary   PenButton = "primary"
	PenButtonSecondary PenButton = "secondary"
	PenButtonTertiary  PenButton = "tertiary"
	PenButtonEraser    PenButton = "eraser"
)

// Modifiers is the keyboard modifier state attached to key events.
type Modifiers struct {
	Ctrl  bool `json:"ctrl"`
	Alt   bool `json:"alt"`
	Shift bool `json:"shift"`
	Meta  bool `json:"meta"`
}

// InputEvent is the tagged union of every event a client can send over the
// input websocket. Type selects which of the remaining fields are
// meaningful; unused scalar fields are omitted on the wire via omitempty,
// while Modifiers, being a struct, is always serialized.
//
// This flat-struct-plus-tag shape (rather than a Go interface with one
// concrete type per variant) keeps decoding a single json.Unmarshal call,
// matching how this codebase favors a tagged discriminator over deep type
// hierarchies elsewhere in its wire structs.
type InputEvent struct {
	Type string `json:"type"`

	// Touch: TouchStart, TouchMove, TouchEnd, TouchCancel
	ID int `json:"id,omitempty"`

	// Shared pointer/touch/pen coordinates, normalized 0..1
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	// Mouse / pen button
	Button PenButton `json:"button,omitempty"`

	// Scroll
	DX float64 `json:"dx,omitempty"`
	DY float64 `json:"dy,omitempty"`

	// Keyboard
	Key       string    `json:"key,omitempty"`
	Modifiers Modifiers `json:"modifiers,omitempty"`

	// Pen
	Pressure float64 `json:"pressure,omitempty"`
	TiltX    float64 `json:"tilt_x,omitempty"`
	TiltY    float64 `json:"tilt_y,omitempty"`

	// PenButtonEvent
	Pressed bool `json:"pressed,omitempty"`
}

const (
	EventTouchStart      = "touch_start"
	EventTouchMove       = "touch_move"
	EventTouchEnd        = "touch_end"
	EventTouchCancel     = "touch_cancel"
	EventMouseDown       = "mouse_down"
	EventMouseUp         = "mouse_up"
	EventMouseMove       = "mouse_move"
	EventScroll          = "scroll"
	EventKeyDown         = "key_down"
	EventKeyUp           = "key_up"
	EventPenHover        = "pen_hover"
	EventPenDown         = "pen_down"
	EventPenMove         = "pen_move"
	EventPenUp           = "pen_up"
	EventPenButtonEvent  = "pen_button"
)

// ParseInputEvent decodes a single InputEvent from raw JSON as received on
// the input websocket.
func ParseInputEvent(data []byte) (InputEvent, error) {
	var ev InputEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return InputEvent{}, errors.Wrap(err, "protocol: decode input event")
	}
	if ev.Type == "" {
		return InputEvent{}, errors.New("protocol: input event missing type")
	}
	return ev, nil
}

// ServerMessage is the tagged union of control messages the server sends
// down the video websocket: the stream description, a fatal error, a
// readiness acknowledgement, and keepalive pings.
type ServerMessage struct {
	Type string `json:"type"`

	// Init
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	FPS       int    `json:"fps,omitempty"`
	Codec     string `json:"codec,omitempty"`
	CodecData string `json:"codec_data,omitempty"`

	// Error
	Message string `json:"message,omitempty"`

	// Ping
	Timestamp int64 `json:"timestamp,omitempty"`
}

const (
	ServerMessageInit  = "init"
	ServerMessageError = "error"
	ServerMessageReady = "ready"
	ServerMessagePing  = "ping"
)

// NewInitMessage builds the Init control message sent immediately after a
// video websocket upgrade.
func NewInitMessage(width, height, fps int, codec, codecData string) ServerMessage {
	return ServerMessage{
		Type: ServerMessageInit, Width: width, Height: height, FPS: fps,
		Codec: codec, CodecData: codecData,
	}
}

// NewErrorMessage builds an Error control message.
func NewErrorMessage(message string) ServerMessage {
	return ServerMessage{Type: ServerMessageError, Message: message}
}

// ReadyMessage is the stateless Ready acknowledgement.
var ReadyMessage = ServerMessage{Type: ServerMessageReady}

// NewPingMessage builds a Ping keepalive carrying the current Unix
// timestamp.
func NewPingMessage(timestampUnix int64) ServerMessage {
	return ServerMessage{Type: ServerMessagePing, Timestamp: timestampUnix}
}

// ClientMessage is the tagged union of messages a client sends down the
// video websocket (distinct from InputEvent, which rides the input
// websocket).
type ClientMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Bitrate   int    `json:"bitrate,omitempty"`
}

const (
	ClientMessageReady      = "ready"
	ClientMessagePong       = "pong"
	ClientMessageSetQuality = "set_quality"
)

// ParseClientMessage decodes a ClientMessage from raw JSON.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, errors.Wrap(err, "protocol: decode client message")
	}
	return msg, nil
}

// FrameMetadata describes one encoded access unit for out-of-band
// diagnostics (not sent over the wire as its own message; segments carry
// their metadata implicitly via encoder.StreamSegment).
type FrameMetadata struct {
	Sequence    uint64 `json:"sequence"`
	TimestampUs int64  `json:"timestamp_us"`
	IsKeyframe  bool   `json:"is_keyframe"`
}
