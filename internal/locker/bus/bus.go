// Package bus is the topic-scoped publish/subscribe transport that lets the
// locker state machines drive each other without direct references.
//
// Each subscription owns a bounded FIFO queue. Publish appends to the queue
// of every subscriber of the message topic, in subscription order; the
// scheduler drains one subscription at a time, once per tick.
package bus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/types"
)

// DefaultCapacity bounds each subscriber queue. A tick posts a handful of
// messages per component, so this leaves ample room between drains.
const DefaultCapacity = 64

var ErrQueueFull = errors.New("subscriber queue full")

type Bus struct {
	mu       sync.Mutex
	capacity int
	subs     []*Subscription
	drops    uint64
}

func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{capacity: capacity}
}

// Subscribe registers name for the given topics. Subscriptions are never
// removed; components live as long as the process.
func (b *Bus) Subscribe(name string, topics ...types.Topic) *Subscription {
	s := &Subscription{
		name:   name,
		bus:    b,
		topics: make(map[types.Topic]struct{}, len(topics)),
	}
	for _, t := range topics {
		s.topics[t] = struct{}{}
	}

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s
}

// Publish delivers msg to every subscriber of msg.Topic. Subscribers with a
// full queue miss the message; the returned error names each of them.
func (b *Bus) Publish(msg types.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for _, s := range b.subs {
		if _, ok := s.topics[msg.Topic]; !ok {
			continue
		}
		if len(s.queue) >= b.capacity {
			b.drops++
			errs = append(errs, fmt.Errorf("publish %s to %s: %w", msg, s.name, ErrQueueFull))
			continue
		}
		s.queue = append(s.queue, msg)
	}
	return errors.Join(errs...)
}

// Drops returns how many deliveries were refused because a queue was full.
func (b *Bus) Drops() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drops
}

type Subscription struct {
	name   string
	bus    *Bus
	topics map[types.Topic]struct{}
	queue  []types.Message // guarded by bus.mu
}

func (s *Subscription) Name() string { return s.name }

// Drain returns the pending messages in publish order and empties the
// queue. Messages published while the caller handles the batch wait for
// the next Drain.
func (s *Subscription) Drain() []types.Message {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if len(s.queue) == 0 {
		return nil
	}
	out := s.queue
	s.queue = make([]types.Message, 0, len(out))
	return out
}

func (s *Subscription) Pending() int {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	return len(s.queue)
}
