// Package debounce aggregates rapid-fire inbound messages per
// conversation. Each new message resets the conversation's quiet-period
// timer; when the timer finally fires, the buffered texts are joined in
// arrival order and handed off as one batch.
package debounce

import (
	"log"
	"strings"
	"sync"
	"time"
)

// FlushFunc receives one aggregated batch for a conversation key.
type FlushFunc func(key, senderName, aggregated string)

type entry struct {
	texts  []string
	sender string
	timer  *time.Timer
	gen    uint64

	// routeMu serializes flushes for one key so a batch is fully routed
	// before the next one for the same conversation starts.
	routeMu sync.Mutex
}

// Buffer holds per-conversation pending texts and their timers. Distinct
// keys aggregate and flush independently.
type Buffer struct {
	mu      sync.Mutex
	delay   func() time.Duration
	flush   FlushFunc
	entries map[string]*entry
	stopped bool
}

// NewBuffer creates a buffer. delay is read at every message arrival so
// admin changes to the aggregation delay apply immediately; flush is
// invoked on the timer goroutine once per expired batch.
func NewBuffer(delay func() time.Duration, flush FlushFunc) *Buffer {
	return &Buffer{
		delay:   delay,
		flush:   flush,
		entries: make(map[string]*entry),
	}
}

// Add buffers text for key and resets the key's quiet-period timer.
// The sender name of the newest message wins for the batch.
func (b *Buffer) Add(key, senderName, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}

	e, ok := b.entries[key]
	if !ok {
		e = &entry{}
		b.entries[key] = e
	}
	e.texts = append(e.texts, text)
	e.sender = senderName

	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	gen := e.gen
	e.timer = time.AfterFunc(b.delay(), func() {
		b.fire(key, gen)
	})
}

// fire drains and routes the batch for key, unless a newer message
// superseded this timer. A Stop racing an already-running callback makes
// the generation check fail, which is the tolerated outcome.
func (b *Buffer) fire(key string, gen uint64) {
	b.mu.Lock()
	e, ok := b.entries[key]
	if !ok || e.gen != gen {
		b.mu.Unlock()
		log.Printf("[Debounce] stale timer for %s ignored", key)
		return
	}
	batch := strings.Join(e.texts, "\n")
	sender := e.sender
	e.texts = nil
	e.timer = nil
	b.mu.Unlock()

	if batch == "" {
		return
	}

	e.routeMu.Lock()
	defer e.routeMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Debounce] flush for %s panicked: %v", key, r)
		}
	}()
	b.flush(key, sender, batch)
}

// PendingCount returns the number of buffered texts for key.
func (b *Buffer) PendingCount(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.entries[key]; ok {
		return len(e.texts)
	}
	return 0
}

// Stop cancels all outstanding timers. Buffered texts are discarded;
// callbacks already running finish normally.
func (b *Buffer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	for key, e := range b.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.gen++
		delete(b.entries, key)
	}
}
