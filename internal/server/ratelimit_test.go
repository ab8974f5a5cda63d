package server

import (
	"sync"
	"testing"
	"time"
)

func TestIPRateLimiterConcurrentAccess(t *testing.T) {
	l := newIPRateLimiter(1000, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.allow("10.0.0.1")
			}
		}()
	}
	// Cleanup scans lastSeen while the goroutines above refresh it
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 100; j++ {
			l.cleanupOldLimiters()
		}
	}()
	wg.Wait()

	if !l.allow("10.0.0.1") {
		t.Error("expected request to pass under a high limit")
	}
}

func TestIPRateLimiterCleanup(t *testing.T) {
	l := newIPRateLimiter(10, 10)

	l.allow("10.0.0.1")
	l.allow("10.0.0.2")

	l.mu.RLock()
	stale := l.limiters["10.0.0.1"]
	l.mu.RUnlock()
	stale.lastSeen.Store(time.Now().Add(-2 * time.Hour).UnixNano())

	l.cleanupOldLimiters()

	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, exists := l.limiters["10.0.0.1"]; exists {
		t.Error("expected idle entry to be removed")
	}
	if _, exists := l.limiters["10.0.0.2"]; !exists {
		t.Error("expected fresh entry to survive cleanup")
	}
}
