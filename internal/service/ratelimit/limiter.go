package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces a per-session sliding-window request cap. Each session's
// window mutates under its own lock; the store lock only guards the map.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	width   time.Duration
}

type window struct {
	mu     sync.Mutex
	stamps []time.Time
	gone   bool
}

// NewLimiter builds a limiter allowing limit requests per width per session.
func NewLimiter(limit int, width time.Duration) *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		width:   width,
	}
}

// Allow prunes timestamps older than the window width, then admits the
// request iff the remaining count is under the limit. Only admitted requests
// record a timestamp, so rejections never consume a slot.
func (l *Limiter) Allow(sessionID string, now time.Time) bool {
	for {
		w := l.window(sessionID)

		w.mu.Lock()
		if w.gone {
			// Sweep removed this window between lookup and lock; retry
			// against a fresh one.
			w.mu.Unlock()
			continue
		}

		w.prune(now.Add(-l.width))
		if len(w.stamps) >= l.limit {
			w.mu.Unlock()
			return false
		}
		w.stamps = append(w.stamps, now)
		w.mu.Unlock()
		return true
	}
}

func (l *Limiter) window(sessionID string) *window {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[sessionID]
	if !ok {
		w = &window{}
		l.windows[sessionID] = w
	}
	return w
}

func (w *window) prune(cutoff time.Time) {
	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.stamps = kept
}

// Remove drops a session's window outright, e.g. on session deletion.
func (l *Limiter) Remove(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok := l.windows[sessionID]; ok {
		w.mu.Lock()
		w.gone = true
		w.mu.Unlock()
		delete(l.windows, sessionID)
	}
}

// Sweep prunes every window and deletes the ones left empty. Returns how many
// windows were dropped.
func (l *Limiter) Sweep(now time.Time) int {
	cutoff := now.Add(-l.width)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, w := range l.windows {
		w.mu.Lock()
		w.prune(cutoff)
		empty := len(w.stamps) == 0
		if empty {
			w.gone = true
		}
		w.mu.Unlock()

		if empty {
			delete(l.windows, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked windows.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
