// Package history implements a bounded conversation history.
package history

import "sync"

// Turn is a single role-tagged conversation turn.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Ring is a fixed-capacity conversation history. When full, appending
// evicts the oldest turn. Capacity 0 means unbounded.
type Ring struct {
	mu       sync.Mutex
	capacity int
	turns    []Turn
}

// NewRing creates a history ring. capacity is the maximum number of turns
// retained (typically max_chat_history_turns * 2 for user+assistant pairs).
func NewRing(capacity int) *Ring {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring{capacity: capacity}
}

// Append adds a turn, evicting the oldest when at capacity.
func (r *Ring) Append(role, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = append(r.turns, Turn{Role: role, Content: content})
	if r.capacity > 0 && len(r.turns) > r.capacity {
		r.turns = r.turns[len(r.turns)-r.capacity:]
	}
}

// Turns returns the retained turns, oldest first.
func (r *Ring) Turns() []Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Turn, len(r.turns))
	copy(out, r.turns)
	return out
}

// Len returns the number of retained turns.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.turns)
}

// Capacity returns the configured capacity (0 = unbounded).
func (r *Ring) Capacity() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capacity
}

// Resize changes the capacity, keeping the newest surviving turns.
func (r *Ring) Resize(capacity int) {
	if capacity < 0 {
		capacity = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capacity = capacity
	if capacity > 0 && len(r.turns) > capacity {
		kept := make([]Turn, capacity)
		copy(kept, r.turns[len(r.turns)-capacity:])
		r.turns = kept
	}
}
