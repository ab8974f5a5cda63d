package server

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ipRateLimiter keeps a token bucket per client IP
type ipRateLimiter struct {
	limiters map[string]*clientLimiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// clientLimiter tracks lastSeen as atomic UnixNano so the read-locked
// fast path in getLimiter can update it without racing cleanup
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

func newIPRateLimiter(requestsPerSecond float64, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// allow checks if a request from the given client IP is allowed
func (l *ipRateLimiter) allow(clientIP string) bool {
	return l.getLimiter(clientIP).Allow()
}

// getLimiter gets or creates a limiter for a client IP
func (l *ipRateLimiter) getLimiter(clientIP string) *rate.Limiter {
	l.mu.RLock()
	entry, exists := l.limiters[clientIP]
	l.mu.RUnlock()

	if exists {
		entry.lastSeen.Store(time.Now().UnixNano())
		return entry.limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if entry, exists := l.limiters[clientIP]; exists {
		entry.lastSeen.Store(time.Now().UnixNano())
		return entry.limiter
	}

	entry = &clientLimiter{
		limiter: rate.NewLimiter(l.rate, l.burst),
	}
	entry.lastSeen.Store(time.Now().UnixNano())
	l.limiters[clientIP] = entry
	return entry.limiter
}

// cleanupOldLimiters removes idle client entries to prevent unbounded growth
func (l *ipRateLimiter) cleanupOldLimiters() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-time.Hour).UnixNano()
	for ip, entry := range l.limiters {
		if entry.lastSeen.Load() < cutoff {
			delete(l.limiters, ip)
		}
	}
}

// startCleanupRoutine starts a background routine to clean up idle limiters
func (l *ipRateLimiter) startCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			l.cleanupOldLimiters()
		}
	}()
}
