package encoder

import (
	"context"

	"github.com/BeckhamLabsLLC/linglide/internal/capture"
	"github.com/BeckhamLabsLLC/linglide/internal/h264"
	"github.com/BeckhamLabsLLC/linglide/internal/util"
)

// Muxer is the subset of fmp4.Muxer the pipeline depends on, kept as an
// interface here so this package does not import fmp4 (fmp4 already
// imports encoder for EncodedFrame; the dependency runs one way).
type Muxer interface {
	SetParameterSets(sps, pps []byte)
	CreateInit() []byte
	CreateMediaSegment(frame EncodedFrame) []byte
}

// Pipeline turns captured BGRA frames into muxed fMP4 segments: BGRA to
// I420, H.264 encode, then fragment. It emits exactly one init StreamSegment
// the first time parameter sets become available, and one media
// StreamSegment per encoded frame thereafter.
type Pipeline struct {
	enc         H264Encoder
	mux         Muxer
	yuv         *YUVBuffer
	emittedInit bool
	sequence    uint64
}

func NewPipeline(width, height int, enc H264Encoder, mux Muxer) *Pipeline {
	return &Pipeline{
		enc: enc,
		mux: mux,
		yuv: NewYUVBuffer(width, height),
	}
}

// Run consumes frames from in and sends StreamSegments to out until in is
// closed or ctx is cancelled. If a frame forces a keyframe but the encoder
// has not yet produced parameter sets, the pipeline still emits the init
// segment as soon as ParameterSets returns non-nil values, per the first
// keyframe's SPS/PPS.
func (p *Pipeline) Run(ctx context.Context, in <-chan *capture.Frame, out chan<- StreamSegment) error {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-in:
			if !ok {
				return nil
			}
			if err := p.processFrame(ctx, frame, out); err != nil {
				util.GetLogger().Warn("encoder pipeline dropped frame", "error", err)
			}
		}
	}
}

func (p *Pipeline) processFrame(ctx context.Context, frame *capture.Frame, out chan<- StreamSegment) error {
	BGRAToI420(frame.Buffer, frame.Width, frame.Height, p.yuv)

	encoded, err := p.enc.Encode(p.yuv, false)
	if err != nil {
		return err
	}

	if !p.emittedInit {
		sps, pps := p.enc.ParameterSets()
		if sps == nil || pps == nil {
			sps, pps = h264.ExtractParameterSets(encoded.Data)
		}
		if sps != nil && pps != nil {
			p.mux.SetParameterSets(sps, pps)
			init := StreamSegment{Data: p.mux.CreateInit(), Sequence: p.sequence, IsInit: true}
			p.sequence++
			if !p.send(ctx, out, init) {
				return nil
			}
			p.emittedInit = true
		}
	}

	if !p.emittedInit {
		return nil
	}

	seg := StreamSegment{
		Data:       p.mux.CreateMediaSegment(encoded),
		Sequence:   p.sequence,
		IsKeyframe: encoded.IsKeyframe,
	}
	p.sequence++
	p.send(ctx, out, seg)
	return nil
}

func (p *Pipeline) send(ctx context.Context, out chan<- StreamSegment, seg StreamSegment) bool {
	select {
	case out <- seg:
		return true
	case <-ctx.Done():
		return false
	}
}
