package capture

import (
	"sync/atomic"
	"time"
)

// Synthetic is an in-tree stand-in for the real capture capabilities (local
// shared-memory grab, portal-mediated stream), which are out of scope.
// It produces a solid-color BGRA test pattern so the rest of the pipeline
// can be built and tested without a display server.
type Synthetic struct {
	width, height int
	offsetX       int
	offsetY       int
	seq           uint64
}

// NewSynthetic creates a synthetic capture source of the given dimensions.
func NewSynthetic(width, height, offsetX, offsetY int) *Synthetic {
	return &Synthetic{width: width, height: height, offsetX: offsetX, offsetY: offsetY}
}

func (s *Synthetic) Width() int  { return s.width }
func (s *Synthetic) Height() int { return s.height }

// Capture returns the next frame: a BGRA buffer whose color cycles slowly
// so encoded output is not degenerate, and whose sequence/timestamp satisfy
// the Frame invariants.
func (s *Synthetic) Capture() (*Frame, error) {
	seq := atomic.AddUint64(&s.seq, 1)

	buf := make([]byte, s.width*s.height*4)
	phase := byte(seq % 256)
	for i := 0; i < len(buf); i += 4 {
		buf[i+0] = phase       // B
		buf[i+1] = 128         // G
		buf[i+2] = 255 - phase // R
		buf[i+3] = 255         // A
	}

	f := &Frame{
		Buffer:    buf,
		Width:     s.width,
		Height:    s.height,
		Sequence:  seq,
		Timestamp: time.Now().UnixMicro(),
	}
	return f, nil
}

// Close releases any resources held by the synthetic source (none).
func (s *Synthetic) Close() error { return nil }

var _ Source = (*Synthetic)(nil)
