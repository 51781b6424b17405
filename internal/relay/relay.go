// Package relay forwards session state transitions across the trust boundary
// between the privileged engine and the sandboxed UI. Channel names are
// validated against an allow-list of known families before any payload
// crosses; everything else is rejected and logged, never silently dropped
// nor silently delivered.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/author-ai/author/internal/logging"
)

// ErrChannelRejected is returned when a publish or subscribe names a channel
// outside the allow-listed families.
var ErrChannelRejected = errors.New("relay channel not in an allowed family")

// ErrClosed is returned when the relay has been shut down.
var ErrClosed = errors.New("relay closed")

// Subscriber receives serialized payloads for a channel. Delivery happens in
// the publisher's goroutine so that, for one session, consumers observe
// events in exactly the order they were produced.
type Subscriber func(ch Channel, payload json.RawMessage)

type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Relay is the allow-listed publish/subscribe boundary. Watermill's gochannel
// carries each publication as infrastructure (middleware, future distributed
// backends); direct subscriber tracking preserves synchronous ordered
// delivery, which the UI depends on (ToolCallStarted must be seen before any
// of its deltas).
type Relay struct {
	mu     sync.RWMutex
	pubsub *gochannel.GoChannel
	subs   map[Channel][]subscriberEntry
	global []subscriberEntry
	nextID uint64
	closed bool
}

// New creates a relay.
func New() *Relay {
	return &Relay{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 100},
			watermill.NopLogger{},
		),
		subs: make(map[Channel][]subscriberEntry),
	}
}

// Publish serializes payload and delivers it to every subscriber of ch, in
// registration order, before returning. A channel outside the allowed
// families is a security-relevant rejection.
func (r *Relay) Publish(ch Channel, payload any) error {
	if !ch.Allowed() {
		logging.Warn().
			Str("channel", string(ch)).
			Msg("relay publish rejected: channel not allow-listed")
		return fmt.Errorf("%w: %q", ErrChannelRejected, ch)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize relay payload: %w", err)
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]Subscriber, 0, len(r.subs[ch])+len(r.global))
	for _, e := range r.subs[ch] {
		targets = append(targets, e.fn)
	}
	for _, e := range r.global {
		targets = append(targets, e.fn)
	}
	r.mu.RUnlock()

	if err := r.pubsub.Publish(string(ch), message.NewMessage(watermill.NewUUID(), data)); err != nil {
		logging.Error().Err(err).Str("channel", string(ch)).Msg("watermill publish failed")
	}

	for _, fn := range targets {
		fn(ch, data)
	}
	return nil
}

// Subscribe registers fn for one channel and returns an unsubscribe function
// that removes exactly this registration.
func (r *Relay) Subscribe(ch Channel, fn Subscriber) (func(), error) {
	if !ch.Allowed() {
		return nil, fmt.Errorf("%w: %q", ErrChannelRejected, ch)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return func() {}, nil
	}

	id := atomic.AddUint64(&r.nextID, 1)
	r.subs[ch] = append(r.subs[ch], subscriberEntry{id: id, fn: fn})

	return func() { r.unsubscribe(ch, id) }, nil
}

// SubscribeAll registers fn for every allow-listed channel.
func (r *Relay) SubscribeAll(fn Subscriber) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return func() {}
	}

	id := atomic.AddUint64(&r.nextID, 1)
	r.global = append(r.global, subscriberEntry{id: id, fn: fn})

	return func() { r.unsubscribeGlobal(id) }
}

func (r *Relay) unsubscribe(ch Channel, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.subs[ch]
	for i, e := range entries {
		if e.id == id {
			r.subs[ch] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

func (r *Relay) unsubscribeGlobal(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.global {
		if e.id == id {
			r.global = append(r.global[:i], r.global[i+1:]...)
			return
		}
	}
}

// Close shuts the relay down. Further publishes return ErrClosed.
func (r *Relay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.subs = make(map[Channel][]subscriberEntry)
	r.global = nil
	r.mu.Unlock()

	return r.pubsub.Close()
}

// PubSub exposes the underlying watermill channel for consumers that prefer
// message-based subscription.
func (r *Relay) PubSub() *gochannel.GoChannel {
	return r.pubsub
}
