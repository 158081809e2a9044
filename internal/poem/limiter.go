package poem

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultCooldown = 10 * time.Second
	maxIdleCallers  = 10000
)

type Decision struct {
	Allowed bool
	// Remaining is the cooldown left on a denial.
	Remaining time.Duration
}

// RateLimiter allows one generation per caller per cooldown. State lives in
// process memory and resets on restart.
type RateLimiter struct {
	cooldown time.Duration
	now      func() time.Time

	mu      sync.Mutex
	callers map[string]*callerLimit
}

type callerLimit struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(cooldown time.Duration) *RateLimiter {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &RateLimiter{
		cooldown: cooldown,
		now:      time.Now,
		callers:  make(map[string]*callerLimit),
	}
}

// TryAcquire records an acquisition for callerID when allowed. A denial
// leaves the caller's window untouched.
func (l *RateLimiter) TryAcquire(callerID string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.callers[callerID]
	if !ok {
		if len(l.callers) >= maxIdleCallers {
			l.prune(now)
		}
		c = &callerLimit{limiter: rate.NewLimiter(rate.Every(l.cooldown), 1)}
		l.callers[callerID] = c
	}
	c.lastSeen = now

	r := c.limiter.ReserveN(now, 1)
	if !r.OK() {
		return Decision{Allowed: false, Remaining: l.cooldown}
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, Remaining: delay}
	}
	return Decision{Allowed: true}
}

// prune drops callers whose window has fully elapsed; they would be allowed
// anyway.
func (l *RateLimiter) prune(now time.Time) {
	for id, c := range l.callers {
		if now.Sub(c.lastSeen) >= l.cooldown {
			delete(l.callers, id)
		}
	}
}
