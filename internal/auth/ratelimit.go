package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/mrlokans/librarydesk/internal/metrics"
)

// RateLimiter throttles desk logins per client IP and email within a fixed
// window. The per-account lockout stored on the user row is separate.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attempts
	cfg      RateLimitConfig
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type attempts struct {
	count       int
	windowStart time.Time
	lockedUntil time.Time
}

func (a *attempts) locked(now time.Time) bool {
	return now.Before(a.lockedUntil)
}

func (a *attempts) windowOver(now time.Time, window time.Duration) bool {
	return now.Sub(a.windowStart) > window
}

// RateLimitConfig contains configuration for the rate limiter.
type RateLimitConfig struct {
	MaxAttempts     int           // Failures before lockout (default: 5)
	WindowDuration  time.Duration // Window for counting failures (default: 15m)
	LockoutDuration time.Duration // Lockout after MaxAttempts (default: 30m)
	CleanupInterval time.Duration // Sweep of stale entries (default: 5m)
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.WindowDuration <= 0 {
		c.WindowDuration = 15 * time.Minute
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = 30 * time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	return c
}

// NewRateLimiter starts a limiter with a background sweep; call Stop to end it.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		attempts: make(map[string]*attempts),
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the background sweep. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func limiterKey(ip, email string) string {
	return ip + "|" + strings.ToLower(strings.TrimSpace(email))
}

// Allow reports whether a login may be tried now and, if not, how long to wait.
func (rl *RateLimiter) Allow(ip, email string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	a, ok := rl.attempts[limiterKey(ip, email)]
	switch {
	case !ok:
		return true, 0
	case a.locked(now):
		return false, a.lockedUntil.Sub(now)
	case a.windowOver(now, rl.cfg.WindowDuration), a.count < rl.cfg.MaxAttempts:
		return true, 0
	}
	return false, rl.cfg.LockoutDuration
}

// RecordFailure counts a failed login and reports whether it triggered a lockout.
func (rl *RateLimiter) RecordFailure(ip, email string) (bool, time.Duration) {
	now := rl.now()
	key := limiterKey(ip, email)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	a, ok := rl.attempts[key]
	if !ok || a.windowOver(now, rl.cfg.WindowDuration) {
		a = &attempts{windowStart: now}
		rl.attempts[key] = a
	}
	a.count++

	if a.count < rl.cfg.MaxAttempts {
		return false, 0
	}
	a.lockedUntil = now.Add(rl.cfg.LockoutDuration)
	metrics.LoginLockouts.Inc()
	return true, rl.cfg.LockoutDuration
}

// RecordSuccess forgets earlier failures for ip and email.
func (rl *RateLimiter) RecordSuccess(ip, email string) {
	rl.mu.Lock()
	delete(rl.attempts, limiterKey(ip, email))
	rl.mu.Unlock()
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// sweep drops entries whose window and lockout have both passed.
func (rl *RateLimiter) sweep() {
	now := rl.now()
	stale := rl.cfg.WindowDuration + rl.cfg.LockoutDuration

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, a := range rl.attempts {
		if now.Sub(a.windowStart) > stale && !a.locked(now) {
			delete(rl.attempts, key)
		}
	}
}
