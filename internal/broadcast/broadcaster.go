package broadcast

import (
	"sync"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/metrics"
)

// Event types published on the live stream.
const (
	EventReading    = "reading"
	EventPrediction = "prediction"
	EventAlert      = "alert"
)

// Event is the envelope delivered to every subscriber. Events are ephemeral;
// they exist only on subscriber queues and are never persisted.
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscriber is one live listener. Events arrive on C in publish order;
// when the queue overflows the oldest buffered event is dropped, so delivery
// is best-effort and at-most-once.
type Subscriber struct {
	C chan Event
}

// Broadcaster fans published events out to all current subscribers without
// ever blocking the publisher: each subscriber owns a bounded queue, and a
// full queue sheds its oldest event to make room for the newest.
type Broadcaster struct {
	bufSize int
	met     *metrics.Metrics

	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

// New creates a Broadcaster whose subscribers buffer up to bufSize events.
func New(bufSize int, met *metrics.Metrics) *Broadcaster {
	if bufSize <= 0 {
		bufSize = 1
	}
	return &Broadcaster{
		bufSize: bufSize,
		met:     met,
		subs:    make(map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new subscriber and returns its handle.
func (b *Broadcaster) Subscribe() *Subscriber {
	s := &Subscriber{C: make(chan Event, b.bufSize)}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Unsubscribe removes s and closes its channel. Safe to call more than once.
func (b *Broadcaster) Unsubscribe(s *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.C)
	}
}

// Count returns the number of current subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers ev to every subscriber. It never blocks: a subscriber
// whose queue is full loses its oldest buffered event, never the publisher's
// time. Per-subscriber ordering is preserved.
func (b *Broadcaster) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		select {
		case s.C <- ev:
			continue
		default:
		}

		// Queue full: shed the oldest event, then retry once. If another
		// goroutine refilled the slot in between, the new event is the
		// one dropped — either way exactly one event is lost.
		select {
		case <-s.C:
		default:
		}
		select {
		case s.C <- ev:
		default:
		}
		b.met.BroadcastDropped.Inc()
	}
}

// Close unsubscribes everyone. Used on shutdown.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		delete(b.subs, s)
		close(s.C)
	}
}
