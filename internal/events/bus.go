// Package events provides the in-process pub/sub broker connecting the
// live session, the order executor, and the API's websocket stream.
package events

import (
	"sync"
)

// Topic enumerates the event streams inside the engine.
type Topic string

const (
	TopicSignal      Topic = "signal"       // strategy emitted a trade event
	TopicOrderFilled Topic = "order.filled" // executor confirmed a fill
	TopicRejection   Topic = "rejection"    // risk manager rejected a trade
	TopicCycle       Topic = "cycle"        // live session finished a cycle
	TopicRiskAlert   Topic = "risk.alert"   // daily loss limit breached
)

// Bus is a lightweight channel-based broker.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]chan any
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]chan any)}
}

// Subscribe registers a listener and returns the channel plus an
// unsubscribe function that closes it.
func (b *Bus) Subscribe(t Topic, buffer int) (<-chan any, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan any, buffer)
	b.subs[t] = append(b.subs[t], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[t]
		for i, c := range subs {
			if c == ch {
				close(c)
				b.subs[t] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}

	return ch, unsub
}

// Publish fans the payload out to subscribers without blocking; slow
// subscribers drop messages rather than stall the publisher.
func (b *Bus) Publish(t Topic, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[t] {
		select {
		case ch <- payload:
		default:
		}
	}
}
