package otel

import (
	"strings"
	"sync"
)

// DefaultRingSize is the default ring buffer capacity.
const DefaultRingSize = 1024

// RingBuffer is a fixed-size circular buffer of Events. Goroutine-safe.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []Event
	size  int
	head  int // next write position
	count int // valid entries (0..size)
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{buf: make([]Event, size), size: size}
}

// Push adds an event, overwriting the oldest if full. Extra is copied so
// callers may reuse their map.
func (r *RingBuffer) Push(e Event) {
	if e.Extra != nil {
		cp := make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			cp[k] = v
		}
		e.Extra = cp
	}
	r.mu.Lock()
	r.buf[r.head] = e
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
	r.mu.Unlock()
}

// Recent returns up to n of the newest events whose kind starts with
// prefix, oldest first. An empty prefix matches everything.
func (r *RingBuffer) Recent(n int, prefix string) []Event {
	if n <= 0 {
		return []Event{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var picked []Event
	for i := 0; i < r.count && len(picked) < n; i++ {
		idx := (r.head - 1 - i + r.size) % r.size
		if strings.HasPrefix(string(r.buf[idx].Kind), prefix) {
			picked = append(picked, r.buf[idx])
		}
	}

	out := make([]Event, len(picked))
	for i, e := range picked {
		out[len(picked)-1-i] = e
	}
	return out
}

// Len returns the number of events currently buffered.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Stats counts buffered events by kind.
func (r *RingBuffer) Stats() map[EventKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[EventKind]int)
	for i := 0; i < r.count; i++ {
		counts[r.buf[i].Kind]++
	}
	return counts
}
