package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameValidate(t *testing.T) {
	f := &Frame{Buffer: make([]byte, 4*2*2), Width: 2, Height: 2}
	assert.NoError(t, f.Validate())

	short := &Frame{Buffer: make([]byte, 2), Width: 2, Height: 2}
	assert.Error(t, short.Validate())
}

func TestSyntheticCaptureSequenceIncreases(t *testing.T) {
	src := NewSynthetic(4, 4, 0, 0)
	f1, err := src.Capture()
	require.NoError(t, err)
	f2, err := src.Capture()
	require.NoError(t, err)

	assert.Equal(t, uint64(1), f1.Sequence)
	assert.Equal(t, uint64(2), f2.Sequence)
	assert.NoError(t, f1.Validate())
}

func TestDriverRunProducesFrames(t *testing.T) {
	src := NewSynthetic(2, 2, 0, 0)
	out := make(chan *Frame, 4)
	d := NewDriver(src, 1000, out)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	var received int
	for frame := range out {
		received++
		assert.NotNil(t, frame)
	}
	<-done
	assert.Greater(t, received, 0)
}
