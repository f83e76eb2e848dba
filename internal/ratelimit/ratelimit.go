package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window admission counter keyed by an opaque
// string (client IP or account id). Each key holds the timestamps of
// its admitted events inside the trailing window; a call is admitted
// while fewer than maxEvents remain after eviction.
//
// State is process-local and rebuilt empty on restart. A multi-process
// deployment would need to move the window into a shared store.
type Limiter struct {
	mu        sync.Mutex
	keys      map[string]*window
	maxEvents int
	interval  time.Duration
}

type window struct {
	admitted []time.Time
	lastSeen time.Time
}

// New creates a Limiter admitting at most maxEvents per key per
// interval, and starts a background reaper for idle keys.
func New(maxEvents int, interval time.Duration) *Limiter {
	l := &Limiter{
		keys:      make(map[string]*window),
		maxEvents: maxEvents,
		interval:  interval,
	}

	go l.cleanup()

	return l
}

func (l *Limiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		l.mu.Lock()
		for key, w := range l.keys {
			if time.Since(w.lastSeen) > l.interval+time.Minute {
				delete(l.keys, key)
			}
		}
		l.mu.Unlock()
	}
}

// TryAdmit records an event for key at time now if the window has a
// free slot, returning whether the event was admitted. Eviction and
// admission happen under one lock so two racing calls cannot both take
// the last slot.
func (l *Limiter) TryAdmit(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.keys[key]
	if w == nil {
		w = &window{}
		l.keys[key] = w
	}
	w.lastSeen = now
	w.evict(now, l.interval)

	if len(w.admitted) >= l.maxEvents {
		return false
	}
	w.admitted = append(w.admitted, now)
	return true
}

// RetryAfter returns how long the caller must wait from now until the
// earliest admitted event leaves the window. Zero means a slot is
// already free.
func (l *Limiter) RetryAfter(key string, now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.keys[key]
	if w == nil {
		return 0
	}
	w.evict(now, l.interval)
	if len(w.admitted) < l.maxEvents {
		return 0
	}

	wait := w.admitted[0].Add(l.interval).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// evict drops timestamps older than the trailing interval. Timestamps
// are appended in order, so the survivors are a suffix.
func (w *window) evict(now time.Time, interval time.Duration) {
	cutoff := now.Add(-interval)
	i := 0
	for i < len(w.admitted) && !w.admitted[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.admitted = append(w.admitted[:0], w.admitted[i:]...)
	}
}
