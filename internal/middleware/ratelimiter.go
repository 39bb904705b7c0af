package middleware

import (
	"sync/atomic"
	"time"
)

// RateLimiter is a lock-free token bucket, one per connection. Tokens
// refill at a fixed interval up to the burst size.
type RateLimiter struct {
	tokens   int32
	burst    int32
	refill   time.Duration
	lastTick int64
}

func NewRateLimiter(burst int32, refill time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:   burst,
		burst:    burst,
		refill:   refill,
		lastTick: time.Now().UnixNano(),
	}
}

// Allow consumes a token if one is available.
func (l *RateLimiter) Allow() bool {
	now := time.Now().UnixNano()
	last := atomic.LoadInt64(&l.lastTick)

	if generated := int32((now - last) / int64(l.refill)); generated > 0 {
		if atomic.CompareAndSwapInt64(&l.lastTick, last, now) {
			for {
				current := atomic.LoadInt32(&l.tokens)
				balance := min(current+generated, l.burst)
				if atomic.CompareAndSwapInt32(&l.tokens, current, balance) {
					break
				}
			}
		}
	}

	for {
		current := atomic.LoadInt32(&l.tokens)
		if current <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt32(&l.tokens, current, current-1) {
			return true
		}
	}
}
