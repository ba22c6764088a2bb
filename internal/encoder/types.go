package encoder

// EncodedFrame is one encoder output: Annex-B NAL units, a presentation
// timestamp (frame index), and a keyframe flag per h264.IsKeyFrame.
type EncodedFrame struct {
	Data       []byte
	PTS        int64
	IsKeyframe bool
}

// StreamSegment is one muxer output: exactly one moof+mdat pair (or, for
// IsInit, the one-time ftyp+moov initialization segment).
type StreamSegment struct {
	Data       []byte
	Sequence   uint64
	IsKeyframe bool
	IsInit     bool
}

// H264Encoder is the encoding capability the pipeline drives. Baseline or
// Constrained-Baseline profile, no B-frames, constant bitrate, Annex-B
// output, per this pipeline's configuration contract.
type H264Encoder interface {
	// Encode produces one access unit for the given YUV420 frame.
	// forceKeyframe requests an IDR regardless of GOP cadence.
	Encode(yuv *YUVBuffer, forceKeyframe bool) (EncodedFrame, error)
	// ParameterSets returns the most recently emitted SPS and PPS NAL
	// payloads (without start codes), or nil if none have been produced yet.
	ParameterSets() (sps, pps []byte)
}
