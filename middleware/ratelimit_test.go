package middleware

import (
	"testing"
	"time"
)

func TestIPRateLimiterAllow(t *testing.T) {
	limiter := NewIPRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("1.2.3.4") {
		t.Error("request over the limit should be rejected")
	}

	// Limits are per IP, another address starts fresh.
	if !limiter.Allow("5.6.7.8") {
		t.Error("a different IP should not share the budget")
	}
}

func TestIPRateLimiterWindowExpiry(t *testing.T) {
	limiter := NewIPRateLimiter(1, 10*time.Millisecond)

	if !limiter.Allow("1.2.3.4") {
		t.Fatal("first request should be allowed")
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatal("second request inside the window should be rejected")
	}

	time.Sleep(20 * time.Millisecond)
	if !limiter.Allow("1.2.3.4") {
		t.Error("request after the window should be allowed again")
	}
}
