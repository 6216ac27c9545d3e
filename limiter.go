package pubforms

import (
	"sync"
	"time"
)

// SubmitLimiter rate-limits form submits per IP address.
type SubmitLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

// NewSubmitLimiter creates a SubmitLimiter that allows max attempts per window.
func NewSubmitLimiter(max int, window time.Duration) *SubmitLimiter {
	l := &SubmitLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		done:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *SubmitLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-l.window)
			l.mu.Lock()
			for ip := range l.attempts {
				if kept := l.prune(ip, cutoff); len(kept) == 0 {
					delete(l.attempts, ip)
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}

// prune drops attempts of ip older than cutoff. Callers hold l.mu.
func (l *SubmitLimiter) prune(ip string, cutoff time.Time) []time.Time {
	hits := l.attempts[ip]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.attempts[ip] = kept
	return kept
}

// Allow checks if the IP has not exceeded the rate limit and records the attempt.
func (l *SubmitLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.prune(ip, time.Now().Add(-l.window))) >= l.max {
		return false
	}
	l.attempts[ip] = append(l.attempts[ip], time.Now())
	return true
}

// Check returns true if the IP has not exceeded the rate limit.
// It does not record an attempt; call Record separately on failure.
func (l *SubmitLimiter) Check(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(ip, time.Now().Add(-l.window))) < l.max
}

// Record registers a failed attempt for the given IP.
func (l *SubmitLimiter) Record(ip string) {
	l.mu.Lock()
	l.attempts[ip] = append(l.attempts[ip], time.Now())
	l.mu.Unlock()
}

// Stop ends the background cleanup.
func (l *SubmitLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}
