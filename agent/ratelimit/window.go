package ratelimit

import "time"

// window is a fixed-capacity ring of call timestamps for one identity.
// Entries are kept in insertion order; head points at the oldest.
type window struct {
	entries []time.Time
	head    int
	size    int
	last    time.Time
}

func newWindow(capacity int) *window {
	return &window{entries: make([]time.Time, capacity)}
}

// prune drops entries that are no longer within span of now.
func (w *window) prune(now time.Time, span time.Duration) {
	for w.size > 0 {
		oldest := w.entries[w.head]
		if now.Sub(oldest) < span {
			return
		}
		w.entries[w.head] = time.Time{}
		w.head = (w.head + 1) % len(w.entries)
		w.size--
	}
}

// push appends now, overwriting the oldest entry when the ring is full.
func (w *window) push(now time.Time) {
	if len(w.entries) == 0 {
		return
	}
	if w.size == len(w.entries) {
		w.entries[w.head] = now
		w.head = (w.head + 1) % len(w.entries)
	} else {
		w.entries[(w.head+w.size)%len(w.entries)] = now
		w.size++
	}
	if now.After(w.last) {
		w.last = now
	}
}

func (w *window) oldest() (time.Time, bool) {
	if w.size == 0 {
		return time.Time{}, false
	}
	return w.entries[w.head], true
}
