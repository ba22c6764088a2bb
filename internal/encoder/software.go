package encoder

import (
	"encoding/binary"

	"github.com/BeckhamLabsLLC/linglide/internal/h264"
)

// fixedSPS and fixedPPS describe a Constrained-Baseline (profile 0x42,
// constraint flags 0xc0) level 4.0 profile, which covers 1920x1080. Real dimensions are carried by the stream's muxer configuration;
// this stub does not vary SPS per resolution since no downstream frontend
// parses more than profile/compat/level bytes and the codec string.
var (
	fixedSPS = []byte{0x67, 0x42, 0xc0, 0x28}
	fixedPPS = []byte{0x68, 0xce, 0x3c, 0x80}
)

// Software is a stand-in H264Encoder: it does not perform real entropy
// coding. It emits SPS/PPS on the first frame and on every keyframe
// boundary, followed by an IDR or non-IDR slice NAL whose payload is a
// deterministic digest of the input YUV planes. This is sufficient to
// drive and test the muxer, broadcaster, and transport layers end to end;
// wiring a real constrained-baseline encoder (e.g. via cgo to x264) has no
// counterpart anywhere in the example pack.
type Software struct {
	keyframeInterval int
	frameCount       int64
	lastSPS, lastPPS []byte
}

// NewSoftware creates a stub encoder that forces an IDR every
// keyframeInterval frames in addition to frame 0.
func NewSoftware(keyframeInterval int) *Software {
	if keyframeInterval <= 0 {
		keyframeInterval = 1
	}
	return &Software{keyframeInterval: keyframeInterval}
}

func (s *Software) ParameterSets() (sps, pps []byte) {
	return s.lastSPS, s.lastPPS
}

// Encode implements H264Encoder.
func (s *Software) Encode(yuv *YUVBuffer, forceKeyframe bool) (EncodedFrame, error) {
	pts := s.frameCount
	isKeyframe := forceKeyframe || pts == 0 || pts%int64(s.keyframeInterval) == 0
	s.frameCount++

	var out []byte
	if isKeyframe {
		out = append(out, h264.StartCode4...)
		out = append(out, fixedSPS...)
		out = append(out, h264.StartCode4...)
		out = append(out, fixedPPS...)
		s.lastSPS = fixedSPS
		s.lastPPS = fixedPPS
	}

	out = append(out, h264.StartCode4...)
	out = append(out, sliceNAL(yuv, isKeyframe)...)

	return EncodedFrame{Data: out, PTS: pts, IsKeyframe: h264.IsKeyFrame(out)}, nil
}

// sliceNAL synthesizes a slice NAL unit whose payload is derived from the
// YUV content so distinct frames produce distinct bytes, without
// implementing real CAVLC/CABAC entropy coding.
func sliceNAL(yuv *YUVBuffer, idr bool) []byte {
	nalType := byte(h264.NALUnitTypeSlice)
	if idr {
		nalType = byte(h264.NALUnitTypeIDR)
	}

	header := make([]byte, 9)
	header[0] = nalType
	binary.BigEndian.PutUint32(header[1:5], uint32(len(yuv.Y)))
	binary.BigEndian.PutUint32(header[5:9], digest(yuv))

	return header
}

func digest(yuv *YUVBuffer) uint32 {
	var h uint32 = 2166136261
	for _, plane := range [][]byte{yuv.Y, yuv.U, yuv.V} {
		for _, b := range plane {
			h ^= uint32(b)
			h *= 16777619
		}
	}
	return h
}

var _ H264Encoder = (*Software)(nil)
