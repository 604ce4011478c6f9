package oracle

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/keyx"
	"golang.org/x/time/rate"
)

// Limiter throttles decryptions per requester. A zero rate disables it.
type Limiter struct {
	mu       sync.Mutex
	limiters map[keyx.Address]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func NewLimiter(perMinute int) *Limiter {
	if perMinute <= 0 {
		return &Limiter{rate: rate.Inf}
	}
	return &Limiter{
		limiters: make(map[keyx.Address]*rate.Limiter),
		rate:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (l *Limiter) Allow(addr keyx.Address) bool {
	if l.rate == rate.Inf {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[addr]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[addr] = limiter
	}
	return limiter.Allow()
}
