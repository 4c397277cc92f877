package monitor

import (
	"sync"
	"time"
)

// historyCap bounds the snapshot ring. Pushing beyond the cap evicts
// the oldest snapshot first.
const historyCap = 1000

// History is a bounded, append-only ring of snapshots. Snapshots are
// immutable once pushed; readers get copies of the slice headers only.
type History struct {
	mu    sync.RWMutex
	ring  []*ProgressSnapshot
	start int
	count int
}

// NewHistory creates an empty history with the default capacity.
func NewHistory() *History {
	return &History{ring: make([]*ProgressSnapshot, historyCap)}
}

// Push appends a snapshot, evicting the oldest when the ring is full.
func (h *History) Push(snap *ProgressSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count < len(h.ring) {
		h.ring[(h.start+h.count)%len(h.ring)] = snap
		h.count++
		return
	}

	h.ring[h.start] = snap
	h.start = (h.start + 1) % len(h.ring)
}

// Len returns the number of retained snapshots.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Latest returns the most recent snapshot, or nil when empty.
func (h *History) Latest() *ProgressSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return nil
	}
	return h.ring[(h.start+h.count-1)%len(h.ring)]
}

// Oldest returns the earliest retained snapshot, or nil when empty.
func (h *History) Oldest() *ProgressSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return nil
	}
	return h.ring[h.start]
}

// Since returns the retained snapshots taken at or after the cutoff,
// oldest first.
func (h *History) Since(cutoff time.Time) []*ProgressSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*ProgressSnapshot
	for i := 0; i < h.count; i++ {
		snap := h.ring[(h.start+i)%len(h.ring)]
		if !snap.Timestamp.Before(cutoff) {
			out = append(out, snap)
		}
	}
	return out
}
