package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsBurst(t *testing.T) {
	limiter := NewRateLimiter(5, time.Hour)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(), "token %d within burst", i)
	}
	assert.False(t, limiter.Allow(), "burst exhausted")
}

func TestRateLimiterRefills(t *testing.T) {
	limiter := NewRateLimiter(2, 10*time.Millisecond)

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())

	time.Sleep(25 * time.Millisecond)
	assert.True(t, limiter.Allow(), "tokens return after the refill interval")
}

func TestRateLimiterCapsAtBurst(t *testing.T) {
	limiter := NewRateLimiter(2, time.Millisecond)

	time.Sleep(20 * time.Millisecond)

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow(), "refill never exceeds the burst size")
}
