package roulette

import "sync"

// HistoryLen is the default number of recent outcomes kept for display.
const HistoryLen = 10

// History is a bounded, newest-first window of recent outcomes. Safe for
// concurrent use: the round loop pushes while sessions snapshot on
// connect. Display context only, never consulted for payouts.
type History struct {
	mu       sync.RWMutex
	entries  []Outcome
	capacity int
}

// NewHistory returns a window holding at most capacity outcomes.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = HistoryLen
	}
	return &History{capacity: capacity}
}

// Push prepends o, evicting the oldest entry beyond capacity.
func (h *History) Push(o Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append([]Outcome{o}, h.entries...)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[:h.capacity]
	}
}

// All returns a newest-first copy of the window.
func (h *History) All() []Outcome {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Outcome, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of outcomes currently held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
