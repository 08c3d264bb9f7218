package httpapi

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// loginLimiter throttles login attempts per source address. Limiters for
// addresses that have gone quiet are dropped opportunistically so the map
// does not grow without bound.
type loginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	every    rate.Limit
	burst    int
}

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLoginLimiter(attempts int, window time.Duration) *loginLimiter {
	return &loginLimiter{
		limiters: make(map[string]*entry),
		every:    rate.Every(window / time.Duration(attempts)),
		burst:    attempts,
	}
}

func (l *loginLimiter) Allow(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	e, ok := l.limiters[addr]
	if !ok {
		if len(l.limiters) > 10000 {
			for k, v := range l.limiters {
				if now.Sub(v.seen) > time.Hour {
					delete(l.limiters, k)
				}
			}
		}
		e = &entry{lim: rate.NewLimiter(l.every, l.burst)}
		l.limiters[addr] = e
	}
	e.seen = now
	return e.lim.Allow()
}
