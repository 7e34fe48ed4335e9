package ratelimit

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter is a sliding-window per-client limiter. One instance lives for the
// life of the server; a background janitor drops idle clients.
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	hits    map[string][]time.Time
	now     func() time.Time
	stopped chan struct{}
	once    sync.Once
}

// New creates a limiter allowing max hits per window and starts the janitor,
// which sweeps stale entries every sweepEvery.
func New(max int, window, sweepEvery time.Duration) *Limiter {
	l := &Limiter{
		window:  window,
		max:     max,
		hits:    make(map[string][]time.Time),
		now:     time.Now,
		stopped: make(chan struct{}),
	}
	go l.janitor(sweepEvery)
	return l
}

// Allow records a hit for key and reports whether it was within the limit.
// Denied hits are not recorded, so a client hammering the endpoint does not
// push its own window forward. Remaining is how many hits key has left.
func (l *Limiter) Allow(key string) (allowed bool, remaining int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.hits[key][:0]
	for _, ts := range l.hits[key] {
		if now.Sub(ts) < l.window {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.max {
		l.hits[key] = recent
		return false, 0
	}

	recent = append(recent, now)
	l.hits[key] = recent
	return true, l.max - len(recent)
}

// Stop shuts down the janitor. Safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stopped) })
}

func (l *Limiter) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopped:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, timestamps := range l.hits {
		recent := timestamps[:0]
		for _, ts := range timestamps {
			if now.Sub(ts) < l.window {
				recent = append(recent, ts)
			}
		}
		if len(recent) == 0 {
			delete(l.hits, key)
		} else {
			l.hits[key] = recent
		}
	}
}

// ClientIP extracts the caller's address for rate limiting: first hop of
// X-Forwarded-For, then X-Real-IP, then "unknown". Unidentifiable clients
// share one bucket rather than bypassing the limit.
func ClientIP(h http.Header) string {
	if forwarded := h.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
	}
	if realIP := h.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}
	return "unknown"
}
