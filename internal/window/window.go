package window

import (
	"sync"

	"github.com/fleetpulse/fleetpulse/internal/telemetry"
)

// Store holds a bounded window of recent readings per device. Windows are
// fixed-capacity ring buffers created lazily on first append, each guarded by
// its own lock so appends for different devices never contend.
type Store struct {
	capacity int

	mu      sync.RWMutex // guards the arena map only
	devices map[string]*ring
}

// ring is one device's window. buf is used circularly: head is the index of
// the oldest entry, n the number of valid entries.
type ring struct {
	mu   sync.Mutex
	buf  []telemetry.Reading
	head int
	n    int
}

// New creates a Store whose windows hold up to capacity readings each.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = 1
	}
	return &Store{
		capacity: capacity,
		devices:  make(map[string]*ring),
	}
}

// Append adds r to the device's window, evicting the oldest reading when the
// window is full. Appends for the same device are serialized.
func (s *Store) Append(deviceID string, r telemetry.Reading) {
	rg := s.ringFor(deviceID)

	rg.mu.Lock()
	defer rg.mu.Unlock()
	if rg.n < len(rg.buf) {
		rg.buf[(rg.head+rg.n)%len(rg.buf)] = r
		rg.n++
		return
	}
	// Full: overwrite the oldest slot and advance head.
	rg.buf[rg.head] = r
	rg.head = (rg.head + 1) % len(rg.buf)
}

// Window returns the device's readings oldest-first. The result is a copy;
// callers may retain or modify it freely. An unknown device yields nil.
func (s *Store) Window(deviceID string) []telemetry.Reading {
	s.mu.RLock()
	rg, ok := s.devices[deviceID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	rg.mu.Lock()
	defer rg.mu.Unlock()
	out := make([]telemetry.Reading, rg.n)
	for i := 0; i < rg.n; i++ {
		out[i] = rg.buf[(rg.head+i)%len(rg.buf)]
	}
	return out
}

// WithCandidate returns the device's window with candidate appended, applying
// the same eviction rule as Append but without mutating any state. This is
// the read path for what-if scoring.
func (s *Store) WithCandidate(deviceID string, candidate telemetry.Reading) []telemetry.Reading {
	w := s.Window(deviceID)
	w = append(w, candidate)
	if len(w) > s.capacity {
		w = w[len(w)-s.capacity:]
	}
	return w
}

// Capacity returns the configured window size K.
func (s *Store) Capacity() int { return s.capacity }

func (s *Store) ringFor(deviceID string) *ring {
	s.mu.RLock()
	rg, ok := s.devices[deviceID]
	s.mu.RUnlock()
	if ok {
		return rg
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rg, ok = s.devices[deviceID]; ok {
		return rg
	}
	rg = &ring{buf: make([]telemetry.Reading, s.capacity)}
	s.devices[deviceID] = rg
	return rg
}
