// Package fmp4 builds fragmented MP4 (ISO/IEC 14496-12) segments for a
// single H.264 video track: a one-time ftyp+moov initialization segment,
// followed by one moof+mdat media segment per encoded access unit,
// suitable for MediaSource's appendBuffer on a video/mp4;
// codecs="avc1.PPCCLL" stream. Box construction and serialization is
// delegated to mediacommon's fmp4/mp4 formats packages rather than
// hand-written, the same library this codebase's stream handling already
// depends on for Annex-B NAL typing. Media sample payloads are carried
// through unmodified (Annex-B, start-code-prefixed), matching
// _examples/original_source/crates/linglide-encoder/src/fmp4.rs's
// write_mdat, which writes frame.data straight into mdat while write_avcc
// still declares 4-byte length-prefixed NAL units — an intentional
// mismatch this package replicates rather than "fixes".
package fmp4

import (
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4/seekablebuffer"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mp4"
	"github.com/pkg/errors"

	"github.com/BeckhamLabsLLC/linglide/internal/encoder"
)

// videoTrackID is the only track this muxer ever emits.
const videoTrackID = 1

// Muxer holds the per-track state that must persist across segments: the
// clock rate, the running fragment sequence number, decode-time
// bookkeeping, and the most recently seen parameter sets.
type Muxer struct {
	width, height int
	clockRate     uint32
	frameDuration uint32
	sps, pps      []byte

	sequenceNumber uint32
	firstDTS       int64
}

// New creates a muxer for a width x height track encoded at a constant
// fps. The clock rate is fixed at 90000, the conventional video timescale
// fmp4 consumers expect; each frame's duration in that timescale is
// derived from fps so EncodedFrame.PTS (a sequential frame index) maps
// directly onto a decode time.
func New(width, height, fps int) *Muxer {
	if fps <= 0 {
		fps = 30
	}
	const clockRate = 90000
	return &Muxer{
		width:          width,
		height:         height,
		clockRate:      clockRate,
		frameDuration:  uint32(clockRate / fps),
		sequenceNumber: 1,
	}
}

// SetParameterSets records the SPS/PPS payloads (start codes stripped)
// used to build avcC and the codec string. Call this before CreateInit,
// and again whenever the encoder emits new parameter sets mid-stream.
func (m *Muxer) SetParameterSets(sps, pps []byte) {
	if sps != nil {
		m.sps = sps
	}
	if pps != nil {
		m.pps = pps
	}
}

// CodecString returns the WebCodecs/MSE codec string for the current SPS,
// e.g. "avc1.64002a". Falls back to a High-profile level-4.2 default if no
// SPS has been observed yet.
func (m *Muxer) CodecString() string {
	profile, compat, level := m.avcParams()
	return "avc1." + hex2(profile) + hex2(compat) + hex2(level)
}

func (m *Muxer) avcParams() (profile, compat, level byte) {
	profile, compat, level = 0x64, 0x00, 0x2a
	if len(m.sps) > 1 {
		profile = m.sps[1]
	}
	if len(m.sps) > 2 {
		compat = m.sps[2]
	}
	if len(m.sps) > 3 {
		level = m.sps[3]
	}
	return
}

func hex2(b byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0xf]})
}

func (m *Muxer) codec() *mp4.CodecH264 {
	return &mp4.CodecH264{SPS: m.sps, PPS: m.pps}
}

// AVCDecoderConfig builds the AVCDecoderConfigurationRecord (ISO/IEC
// 14496-15 avcC box payload, without the box header) for the current SPS/
// PPS, the same bytes mediacommon embeds in the init segment's avcC box.
// mediacommon's fmp4/mp4 packages only expose this record bundled inside a
// full marshaled init segment, not standalone, so the video channel's Init
// message (which needs the bare record, base64-encoded, as codec_data)
// builds it directly from the already-held SPS/PPS rather than round-
// tripping through CreateInit and re-parsing the moov box back out.
func (m *Muxer) AVCDecoderConfig() []byte {
	profile, compat, level := m.avcParams()

	buf := []byte{
		1,            // configurationVersion
		profile,      // AVCProfileIndication
		compat,       // profile_compatibility
		level,        // AVCLevelIndication
		0xfc | 0x03,  // reserved(6) + lengthSizeMinusOne(2): 4-byte lengths
		0xe0 | 0x01,  // reserved(3) + numOfSequenceParameterSets(5)
	}
	buf = append(buf, byte(len(m.sps)>>8), byte(len(m.sps)))
	buf = append(buf, m.sps...)
	buf = append(buf, 1) // numOfPictureParameterSets
	buf = append(buf, byte(len(m.pps)>>8), byte(len(m.pps)))
	buf = append(buf, m.pps...)
	return buf
}

// CreateInit builds the ftyp+moov initialization segment. SetParameterSets
// must have been called at least once first (the encoder stub guarantees
// this by emitting SPS/PPS on the first encoded frame).
func (m *Muxer) CreateInit() []byte {
	init := &fmp4.Init{
		Tracks: []*fmp4.InitTrack{
			{
				ID:        videoTrackID,
				TimeScale: m.clockRate,
				Codec:     m.codec(),
			},
		},
	}

	var buf seekablebuffer.Buffer
	if err := init.Marshal(&buf); err != nil {
		// mediacommon only errs on malformed codec params, which can't
		// happen here since the stub encoder always emits fixed SPS/PPS.
		panic(errors.Wrap(err, "fmp4: marshal init segment"))
	}
	return buf.Bytes()
}

// CreateMediaSegment builds one moof+mdat fragment carrying a single
// sample whose payload is frame.Data verbatim: the access unit stays in
// Annex-B (start-code-prefixed) form even though avcC, built in
// AVCDecoderConfig, declares 4-byte length-prefixed NAL units. mediacommon
// writes Sample.Payload into mdat unmodified (the same way the teacher's
// fmp4_writer.go hands it already-encoded bytes), so this mismatch between
// the declared and actual NAL delimiting is carried through rather than
// reconciled — see the package doc comment. Advances the fragment sequence
// number and decode-time bookkeeping.
func (m *Muxer) CreateMediaSegment(frame encoder.EncodedFrame) []byte {
	dts := frame.PTS * int64(m.frameDuration)
	if m.sequenceNumber == 1 {
		m.firstDTS = dts
	}

	sample := &fmp4.Sample{
		IsNonSyncSample: !frame.IsKeyframe,
		Payload:         frame.Data,
		Duration:        m.frameDuration,
	}

	part := &fmp4.Part{
		SequenceNumber: m.sequenceNumber,
		Tracks: []*fmp4.PartTrack{
			{
				ID:       videoTrackID,
				BaseTime: uint64(dts - m.firstDTS),
				Samples:  []*fmp4.Sample{sample},
			},
		},
	}

	var buf seekablebuffer.Buffer
	if err := part.Marshal(&buf); err != nil {
		panic(errors.Wrap(err, "fmp4: marshal media segment"))
	}

	m.sequenceNumber++
	return buf.Bytes()
}
