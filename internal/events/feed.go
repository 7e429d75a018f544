// Package events delivers booking snapshots to live subscribers.
package events

import (
	"log/slog"
	"sync"

	"github.com/example/seatserve/internal/booking"
)

// Feed fans snapshots out to subscribers. Each subscriber has its own delivery
// goroutine and only ever sees the most recent snapshot it has not yet received,
// so a slow callback never blocks Publish or other subscribers.
type Feed struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	latest *booking.Snapshot
	closed bool
	logger *slog.Logger
}

// NewFeed returns an empty feed.
func NewFeed(logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{subs: make(map[uint64]*Subscription), logger: logger}
}

// Publish records snap as the current state and schedules it for every
// subscriber. Offers happen under the feed lock so a subscriber's pending
// snapshot always follows publication order.
func (f *Feed) Publish(snap booking.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.latest = &snap
	for _, s := range f.subs {
		s.offer(snap)
	}
}

// Subscribe registers fn. When the feed already holds a snapshot, fn receives it
// first. The returned handle stops delivery.
func (f *Feed) Subscribe(fn func(booking.Snapshot)) *Subscription {
	s := &Subscription{
		feed:   f,
		fn:     fn,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: f.logger,
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		s.stop()
		return s
	}
	f.nextID++
	s.id = f.nextID
	f.subs[s.id] = s
	if f.latest != nil {
		s.offer(*f.latest)
	}
	f.mu.Unlock()

	go s.run()
	return s
}

// Len reports the number of active subscriptions.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close cancels every subscription. Later publishes are dropped.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	subs := f.subs
	f.subs = make(map[uint64]*Subscription)
	f.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}

func (f *Feed) remove(id uint64) {
	f.mu.Lock()
	delete(f.subs, id)
	f.mu.Unlock()
}

// Subscription is a cancellable handle returned by Feed.Subscribe.
type Subscription struct {
	feed   *Feed
	id     uint64
	fn     func(booking.Snapshot)
	logger *slog.Logger

	mu      sync.Mutex
	pending *booking.Snapshot

	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

// Cancel stops delivery. It is safe to call more than once and from inside the
// callback. A callback already running is allowed to finish.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.feed.remove(s.id)
	s.stop()
}

// Done is closed once the subscription is cancelled.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// offer replaces the pending snapshot and never blocks.
func (s *Subscription) offer(snap booking.Snapshot) {
	s.mu.Lock()
	s.pending = &snap
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}

		s.mu.Lock()
		snap := s.pending
		s.pending = nil
		s.mu.Unlock()

		if snap == nil {
			continue
		}
		select {
		case <-s.done:
			return
		default:
		}
		s.deliver(*snap)
	}
}

func (s *Subscription) deliver(snap booking.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("snapshot subscriber panicked", "subscription_id", s.id, "panic", r)
		}
	}()
	s.fn(snap)
}
