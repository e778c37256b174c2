package events

import (
	"sync"
	"time"

	"scalpd/pkg/logger"
)

const defaultSubscriberBuffer = 64

// Bus is an in-process publish/subscribe fan-out for engine events.
// Publishing never blocks: a subscriber that falls behind loses events
// rather than stalling the trading cycle.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int
	closed bool
	logger *logger.Logger
}

type subscription struct {
	ch    chan Event
	types map[Type]struct{} // nil means all types
}

// NewBus creates an event bus.
func NewBus(log *logger.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]*subscription),
		logger: log,
	}
}

// Subscribe registers interest in the given event types (all types when none
// are given). It returns the receive channel and an unsubscribe func that
// closes it.
func (b *Bus) Subscribe(types ...Type) (<-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, defaultSubscriberBuffer)}
	if len(types) > 0 {
		sub.types = make(map[Type]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	b.subs[id] = sub
	b.mu.Unlock()

	return sub.ch, func() {
		b.mu.Lock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
		b.mu.Unlock()
	}
}

// Publish delivers the event to every matching subscriber. Slow subscribers
// are skipped.
func (b *Bus) Publish(t Type, payload interface{}) {
	evt := Event{Type: t, Payload: payload, Timestamp: time.Now().UTC()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		if sub.types != nil {
			if _, ok := sub.types[t]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- evt:
		default:
			if b.logger != nil {
				b.logger.Debug("event dropped, subscriber buffer full",
					logger.String("type", string(t)))
			}
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
