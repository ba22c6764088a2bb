package broadcaster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeckhamLabsLLC/linglide/internal/encoder"
)

func TestSubscribePrimedWithInitAndKeyframe(t *testing.T) {
	b := NewBroadcaster(4)
	b.Publish(encoder.StreamSegment{Data: []byte("init"), IsInit: true})
	b.Publish(encoder.StreamSegment{Data: []byte("key"), IsKeyframe: true})

	ch := b.Subscribe("viewer-1")

	first := <-ch
	require.Equal(t, KindSegment, first.Kind)
	assert.True(t, first.Segment.IsInit)
	second := <-ch
	require.Equal(t, KindSegment, second.Kind)
	assert.True(t, second.Segment.IsKeyframe)
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := NewBroadcaster(4)
	a := b.Subscribe("a")
	c := b.Subscribe("b")

	b.Publish(encoder.StreamSegment{Data: []byte("seg"), Sequence: 1})

	segA := <-a
	segC := <-c
	assert.Equal(t, uint64(1), segA.Segment.Sequence)
	assert.Equal(t, uint64(1), segC.Segment.Sequence)
}

// TestPublishOnFullChannelDropsOldestAndSignalsLagged locks in the spec's
// §4.3 backpressure contract: the broadcaster drops the *oldest* queued
// segments for a lagging subscriber (never the newest), delivers a
// Lagged(n) notice reporting how many were dropped, and re-primes the
// subscriber with the cached keyframe segment so the next segment it
// receives is always decodable on its own.
func TestPublishOnFullChannelDropsOldestAndSignalsLagged(t *testing.T) {
	// windowSize must hold at least the Lagged notice plus the keyframe
	// reprime once the backlog is drained, so use a small but non-minimal
	// window rather than the degenerate capacity-1 case.
	b := NewBroadcaster(2)
	b.Publish(encoder.StreamSegment{Data: []byte("key"), IsKeyframe: true, Sequence: 100})
	ch := b.Subscribe("slow")
	// Subscribe already primed ch with the keyframe segment; drain it so
	// the next publishes exercise the overflow path with an empty buffer.
	<-ch

	b.Publish(encoder.StreamSegment{Sequence: 1}) // buffered
	b.Publish(encoder.StreamSegment{Sequence: 2}) // buffered
	b.Publish(encoder.StreamSegment{Sequence: 3}) // channel full: seq 1 & 2 dropped (oldest)

	lagged := <-ch
	require.Equal(t, KindLagged, lagged.Kind)
	assert.Equal(t, 3, lagged.Lagged) // the overflowing segment plus the two oldest entries it displaced

	reprimed := <-ch
	require.Equal(t, KindSegment, reprimed.Kind)
	assert.True(t, reprimed.Segment.IsKeyframe)
	assert.Equal(t, uint64(100), reprimed.Segment.Sequence)

	select {
	case <-ch:
		t.Fatal("expected no further buffered deliveries")
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster(4)
	ch := b.Subscribe("viewer")
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe("viewer")
	assert.Equal(t, 0, b.SubscriberCount())

	_, open := <-ch
	assert.False(t, open)
}

func TestCloseClosesAllSubscribers(t *testing.T) {
	b := NewBroadcaster(4)
	chA := b.Subscribe("a")
	chB := b.Subscribe("b")

	b.Close()

	_, openA := <-chA
	_, openB := <-chB
	assert.False(t, openA)
	assert.False(t, openB)

	closedCh := b.Subscribe("after-close")
	_, open := <-closedCh
	assert.False(t, open)
}
