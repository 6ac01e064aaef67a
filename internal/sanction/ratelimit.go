package sanction

import (
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

type bucket struct {
	remaining int
	resetAt   time.Time
}

// rateLimiter tracks Discord per-route rate-limit buckets from
// response headers so the executor backs off before the API does.
type rateLimiter struct {
	mu      sync.RWMutex
	buckets map[string]bucket
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{buckets: make(map[string]bucket)}
}

func key(route, guildID string) string {
	return route + ":" + guildID
}

func (rl *rateLimiter) canExecute(route, guildID string) bool {
	rl.mu.RLock()
	b, ok := rl.buckets[key(route, guildID)]
	rl.mu.RUnlock()

	if !ok || time.Now().After(b.resetAt) {
		return true
	}
	return b.remaining > 0
}

func (rl *rateLimiter) update(resp *fasthttp.Response, route, guildID string) {
	remaining := string(resp.Header.Peek("X-RateLimit-Remaining"))
	resetAfter := string(resp.Header.Peek("X-RateLimit-Reset-After"))
	if remaining == "" || resetAfter == "" {
		return
	}

	rem, err := strconv.Atoi(remaining)
	if err != nil {
		return
	}
	secs, err := strconv.ParseFloat(resetAfter, 64)
	if err != nil {
		return
	}

	rl.mu.Lock()
	rl.buckets[key(route, guildID)] = bucket{
		remaining: rem,
		resetAt:   time.Now().Add(time.Duration(secs * float64(time.Second))),
	}
	rl.mu.Unlock()
}
