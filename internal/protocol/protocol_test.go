package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInputEventTouchStart(t *testing.T) {
	raw := []byte(`{"type":"touch_start","id":1,"x":0.5,"y":0.25}`)
	ev, err := ParseInputEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, EventTouchStart, ev.Type)
	assert.Equal(t, 1, ev.ID)
	assert.InDelta(t, 0.5, ev.X, 1e-9)
}

func TestParseInputEventPenDown(t *testing.T) {
	raw := []byte(`{"type":"pen_down","x":0.1,"y":0.2,"pressure":0.8,"tilt_x":10,"tilt_y":-5,"button":"primary"}`)
	ev, err := ParseInputEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, EventPenDown, ev.Type)
	assert.InDelta(t, 0.8, ev.Pressure, 1e-9)
	assert.Equal(t, PenButtonPrimary, ev.Button)
}

func TestParseInputEventKeyDownWithModifiers(t *testing.T) {
	raw := []byte(`{"type":"key_down","key":"a","modifiers":{"ctrl":true,"shift":false,"alt":false,"meta":false}}`)
	ev, err := ParseInputEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "a", ev.Key)
	assert.True(t, ev.Modifiers.Ctrl)
	assert.False(t, ev.Modifiers.Shift)
}

func TestParseInputEventMissingTypeErrors(t *testing.T) {
	_, err := ParseInputEvent([]byte(`{"x":0.1}`))
	assert.Error(t, err)
}

func TestParseInputEventMalformedJSONErrors(t *testing.T) {
	_, err := ParseInputEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestServerMessageInitRoundTrip(t *testing.T) {
	msg := NewInitMessage(1920, 1080, 60, "avc1.64002a", "")
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded ServerMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ServerMessageInit, decoded.Type)
	assert.Equal(t, 1920, decoded.Width)
	assert.Equal(t, 60, decoded.FPS)
}

func TestReadyMessageSerializesBareType(t *testing.T) {
	data, err := json.Marshal(ReadyMessage)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ready"}`, string(data))
}

func TestParseClientMessagePong(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"pong","timestamp":12345}`))
	require.NoError(t, err)
	assert.Equal(t, ClientMessagePong, msg.Type)
	assert.EqualValues(t, 12345, msg.Timestamp)
}

func TestParseClientMessageSetQuality(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"set_quality","bitrate":4000}`))
	require.NoError(t, err)
	assert.Equal(t, ClientMessageSetQuality, msg.Type)
	assert.Equal(t, 4000, msg.Bitrate)
}
