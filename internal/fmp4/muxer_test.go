package fmp4

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeckhamLabsLLC/linglide/internal/encoder"
)

func readBoxTypes(t *testing.T, data []byte) []string {
	t.Helper()
	var types []string
	for len(data) > 0 {
		require.GreaterOrEqual(t, len(data), 8)
		size := binary.BigEndian.Uint32(data[:4])
		boxType := string(data[4:8])
		types = append(types, boxType)
		require.LessOrEqual(t, int(size), len(data))
		data = data[size:]
	}
	return types
}

func TestCreateInitTopLevelBoxes(t *testing.T) {
	m := New(1920, 1080, 30)
	m.SetParameterSets([]byte{0x67, 0x64, 0x00, 0x1f}, []byte{0x68, 0xce, 0x3c, 0x80})

	init := m.CreateInit()
	types := readBoxTypes(t, init)
	assert.Equal(t, []string{"ftyp", "moov"}, types)
}

func TestCodecStringFromSPS(t *testing.T) {
	m := New(640, 480, 30)
	m.SetParameterSets([]byte{0x67, 0x64, 0x00, 0x1f}, []byte{0x68})
	assert.Equal(t, "avc1.64001f", m.CodecString())
}

func TestCodecStringFallback(t *testing.T) {
	m := New(640, 480, 30)
	assert.Equal(t, "avc1.64002a", m.CodecString())
}

func TestCreateMediaSegmentTopLevelBoxes(t *testing.T) {
	m := New(640, 480, 30)
	m.SetParameterSets([]byte{0x67, 0x64, 0x00, 0x1f}, []byte{0x68, 0xce, 0x3c, 0x80})

	frame := encoder.EncodedFrame{Data: []byte{0, 0, 0, 1, 0x65, 0xaa, 0xbb}, PTS: 0, IsKeyframe: true}
	seg := m.CreateMediaSegment(frame)

	types := readBoxTypes(t, seg)
	assert.Equal(t, []string{"moof", "mdat"}, types)
}

func TestCreateMediaSegmentSequenceIncrements(t *testing.T) {
	m := New(640, 480, 30)
	m.SetParameterSets([]byte{0x67, 0x64, 0x00, 0x1f}, []byte{0x68})

	assert.Equal(t, uint32(1), m.sequenceNumber)
	m.CreateMediaSegment(encoder.EncodedFrame{Data: []byte{0, 0, 0, 1, 0x61, 1, 2, 3}, PTS: 0})
	assert.Equal(t, uint32(2), m.sequenceNumber)
	m.CreateMediaSegment(encoder.EncodedFrame{Data: []byte{0, 0, 0, 1, 0x61, 4, 5, 6}, PTS: 1})
	assert.Equal(t, uint32(3), m.sequenceNumber)
}

func TestMdatPreservesAnnexBVerbatimOnKeyframe(t *testing.T) {
	m := New(640, 480, 30)
	sps := []byte{0x67, 0x64, 0x00, 0x1f}
	pps := []byte{0x68, 0xce}
	m.SetParameterSets(sps, pps)

	// frame.Data is Annex-B (start-code-prefixed), exactly as the encoder
	// produced it; the muxer does not convert it to length-prefixed AVCC
	// or re-prepend parameter sets, even though avcC (AVCDecoderConfig)
	// declares 4-byte length prefixes. This mismatch is intentional: see
	// the package doc comment.
	payload := []byte{0x00, 0x00, 0x00, 0x01, 0x67, 0x64, 0x00, 0x1f, 0x00, 0x00, 0x00, 0x01, 0x65, 0xaa, 0xbb, 0xcc}
	seg := m.CreateMediaSegment(encoder.EncodedFrame{Data: payload, IsKeyframe: true})

	moofSize := binary.BigEndian.Uint32(seg[:4])
	mdat := seg[moofSize:]
	mdatSize := binary.BigEndian.Uint32(mdat[:4])
	require.Equal(t, "mdat", string(mdat[4:8]))
	body := mdat[8:mdatSize]

	assert.Equal(t, payload, body)
}

func TestMdatPreservesAnnexBVerbatimOnNonKeyframe(t *testing.T) {
	m := New(640, 480, 30)
	m.SetParameterSets([]byte{0x67, 0x64, 0x00, 0x1f}, []byte{0x68, 0xce})

	payload := []byte{0x00, 0x00, 0x00, 0x01, 0x41, 0xaa, 0xbb}
	seg := m.CreateMediaSegment(encoder.EncodedFrame{Data: payload, IsKeyframe: false})

	moofSize := binary.BigEndian.Uint32(seg[:4])
	mdat := seg[moofSize:]
	mdatSize := binary.BigEndian.Uint32(mdat[:4])
	body := mdat[8:mdatSize]

	assert.Equal(t, payload, body)
}
