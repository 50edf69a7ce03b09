// Package ringbuf provides a fixed-capacity rolling window of bars backed by
// a ring buffer. Appending past capacity overwrites the oldest bar, so the
// window always holds the most recent history without reallocation.
package ringbuf

import (
	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/model"
)

// Window is a rolling bar window. Size rounds up to the next power of two
// for fast bitwise modulo. Not safe for concurrent use; callers guard it.
type Window struct {
	buf  []model.Bar
	mask uint64
	head uint64 // next write position
	size int    // bars currently held, up to len(buf)
}

// New creates a window. capacity is rounded up to the next power of two.
// Minimum capacity is 2.
func New(capacity int) *Window {
	cap := nextPow2(capacity)
	if cap < 2 {
		cap = 2
	}
	return &Window{
		buf:  make([]model.Bar, cap),
		mask: uint64(cap - 1),
	}
}

// Append adds a bar, evicting the oldest when the window is full. A bar with
// the same timestamp as the newest replaces it in place; an older timestamp
// is discarded. Returns false when the bar was discarded.
func (w *Window) Append(b model.Bar) bool {
	if w.size > 0 {
		newest := w.buf[(w.head-1)&w.mask]
		if b.Time < newest.Time {
			return false
		}
		if b.Time == newest.Time {
			w.buf[(w.head-1)&w.mask] = b
			return true
		}
	}
	w.buf[w.head&w.mask] = b
	w.head++
	if w.size < len(w.buf) {
		w.size++
	}
	return true
}

// Snapshot copies the window contents oldest first.
func (w *Window) Snapshot() []model.Bar {
	out := make([]model.Bar, w.size)
	start := w.head - uint64(w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(start+uint64(i))&w.mask]
	}
	return out
}

// Newest returns the most recent bar, or false when the window is empty.
func (w *Window) Newest() (model.Bar, bool) {
	if w.size == 0 {
		return model.Bar{}, false
	}
	return w.buf[(w.head-1)&w.mask], true
}

// Len returns the number of bars currently held.
func (w *Window) Len() int { return w.size }

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
