// Package broadcaster fans segments from one encoding pipeline out to many
// websocket viewers, caching the init segment and the most recent keyframe
// segment so a late-joining viewer can start playback immediately instead
// of waiting for the next GOP boundary.
package broadcaster

import (
	"sync"

	"github.com/BeckhamLabsLLC/linglide/internal/encoder"
	"github.com/BeckhamLabsLLC/linglide/internal/util"
)

// DeliveryKind distinguishes a live/cached segment from a Lagged(n) notice
// delivered through the same channel.
type DeliveryKind int

const (
	KindSegment DeliveryKind = iota
	KindLagged
)

// Delivery is what a subscriber's channel carries: either a StreamSegment
// or a Lagged notice reporting how many segments were just dropped for
// falling behind, the Go analogue of a tokio broadcast::Receiver's
// Ok(segment) / Err(Lagged(n)) result.
type Delivery struct {
	Kind    DeliveryKind
	Segment encoder.StreamSegment
	Lagged  int
}

// subscriber holds one viewer's bounded delivery channel and its
// cumulative lag count.
type subscriber struct {
	deliveries chan Delivery
	lagged     int
}

// Broadcaster distributes encoder.StreamSegment values to subscribed
// viewers. When a subscriber's channel is full, the broadcaster drops that
// subscriber's oldest queued entries (not the new segment), delivers a
// Lagged(n) notice reporting how many were dropped, and — if a keyframe
// segment is cached — immediately re-primes the subscriber with it so the
// first segment it sees after resuming is always a keyframe, per spec
// §4.3's late-joiner priming and Testable Scenario 4.
type Broadcaster struct {
	mu              sync.RWMutex
	subscribers     map[string]*subscriber
	windowSize      int
	initSegment     encoder.StreamSegment
	hasInit         bool
	keyframeSegment encoder.StreamSegment
	hasKeyframe     bool
	closed          bool
}

// NewBroadcaster creates a broadcaster whose subscriber channels hold
// windowSize buffered deliveries (the spec's 16-segment window).
func NewBroadcaster(windowSize int) *Broadcaster {
	if windowSize <= 0 {
		windowSize = 16
	}
	return &Broadcaster{
		subscribers: make(map[string]*subscriber),
		windowSize:  windowSize,
	}
}

// Publish broadcasts seg to every current subscriber and updates the
// init/keyframe caches used to prime late joiners.
func (b *Broadcaster) Publish(seg encoder.StreamSegment) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if seg.IsInit {
		b.initSegment = seg
		b.hasInit = true
	} else if seg.IsKeyframe {
		b.keyframeSegment = seg
		b.hasKeyframe = true
	}
	keyframe, hasKeyframe := b.keyframeSegment, b.hasKeyframe
	subs := make(map[string]*subscriber, len(b.subscribers))
	for id, s := range b.subscribers {
		subs[id] = s
	}
	b.mu.Unlock()

	for id, s := range subs {
		select {
		case s.deliveries <- Delivery{Kind: KindSegment, Segment: seg}:
		default:
			b.lag(id, s, keyframe, hasKeyframe)
		}
	}
}

// lag handles a full subscriber channel: it drops every currently queued
// entry (oldest-first, since a channel only ever holds entries in arrival
// order) plus the segment that just triggered the overflow, delivers a
// Lagged notice carrying the total dropped, and re-primes the subscriber
// with the cached keyframe segment so it resumes from a decodable point
// rather than the middle of a GOP.
func (b *Broadcaster) lag(id string, s *subscriber, keyframe encoder.StreamSegment, hasKeyframe bool) {
	dropped := 1 // the segment that found the channel full
drain:
	for {
		select {
		case <-s.deliveries:
			dropped++
		default:
			break drain
		}
	}

	b.mu.Lock()
	s.lagged += dropped
	total := s.lagged
	b.mu.Unlock()

	util.GetLogger().Warn("subscriber lagged, segments dropped", "id", id, "dropped", dropped, "total_lagged", total)

	select {
	case s.deliveries <- Delivery{Kind: KindLagged, Lagged: dropped}:
	default:
	}
	if hasKeyframe {
		select {
		case s.deliveries <- Delivery{Kind: KindSegment, Segment: keyframe}:
		default:
		}
	}
}

// Subscribe registers a new viewer and returns its delivery channel,
// primed with the cached init segment and, if present, the cached
// keyframe segment so playback can start without waiting for the next
// GOP.
func (b *Broadcaster) Subscribe(subscriberID string) <-chan Delivery {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Delivery, b.windowSize)
	if b.closed {
		close(ch)
		return ch
	}

	s := &subscriber{deliveries: ch}
	b.subscribers[subscriberID] = s

	// Non-blocking: windowSize is assumed to hold at least the init and
	// keyframe primer, but a viewer must never be able to stall Subscribe
	// (and the lock it holds) by sizing its own channel too small.
	if b.hasInit {
		select {
		case ch <- Delivery{Kind: KindSegment, Segment: b.initSegment}:
		default:
		}
	}
	if b.hasKeyframe {
		select {
		case ch <- Delivery{Kind: KindSegment, Segment: b.keyframeSegment}:
		default:
		}
	}

	util.GetLogger().Info("subscriber added", "id", subscriberID, "total", len(b.subscribers))
	return ch
}

// Unsubscribe removes a viewer and closes its channel.
func (b *Broadcaster) Unsubscribe(subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.subscribers[subscriberID]; ok {
		close(s.deliveries)
		delete(b.subscribers, subscriberID)
		util.GetLogger().Info("subscriber removed", "id", subscriberID, "remaining", len(b.subscribers))
	}
}

// Close shuts the broadcaster down, closing every subscriber channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subscribers {
		close(s.deliveries)
		util.GetLogger().Debug("closed subscriber channel", "id", id)
	}
	b.subscribers = make(map[string]*subscriber)
}

// SubscriberCount returns the current number of live subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
