package encoder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeckhamLabsLLC/linglide/internal/capture"
)

type fakeMuxer struct {
	sps, pps   []byte
	initCalls  int
	mediaCalls int
}

func (f *fakeMuxer) SetParameterSets(sps, pps []byte) {
	f.sps, f.pps = sps, pps
}

func (f *fakeMuxer) CreateInit() []byte {
	f.initCalls++
	return []byte("init")
}

func (f *fakeMuxer) CreateMediaSegment(frame EncodedFrame) []byte {
	f.mediaCalls++
	return frame.Data
}

func TestPipelineEmitsInitThenMedia(t *testing.T) {
	src := capture.NewSynthetic(4, 4, 0, 0)
	enc := NewSoftware(5)
	mux := &fakeMuxer{}
	p := NewPipeline(4, 4, enc, mux)

	in := make(chan *capture.Frame, 4)
	out := make(chan StreamSegment, 4)

	for i := 0; i < 3; i++ {
		f, err := src.Capture()
		require.NoError(t, err)
		in <- f
	}
	close(in)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := p.Run(ctx, in, out)
	require.NoError(t, err)

	var segments []StreamSegment
	for seg := range out {
		segments = append(segments, seg)
	}

	require.NotEmpty(t, segments)
	assert.True(t, segments[0].IsInit)
	assert.Equal(t, 1, mux.initCalls)
	assert.Equal(t, 3, mux.mediaCalls)
}
