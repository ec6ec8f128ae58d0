package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the outcome of an admission check. RetryAfter is set
// only when the request is denied.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter admits or denies a request for an identity. Both the
// per-minute and per-hour windows must admit; the first window to deny
// wins and supplies the retry hint.
type Limiter interface {
	Admit(ctx context.Context, identity string) (Decision, error)
	Stop()
}

const (
	cleanupInterval = 5 * time.Minute
	entryMaxIdle    = 10 * time.Minute
)

type entry struct {
	minute   *rate.Limiter
	hour     *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps a pair of token-bucket limiters per identity,
// one refilled at the per-minute rate and one at the per-hour rate.
// Correct for single-process deployments; multi-instance deployments
// use RedisLimiter instead.
type MemoryLimiter struct {
	mu        sync.Mutex
	entries   map[string]*entry
	perMinute int
	perHour   int
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewMemoryLimiter(perMinute, perHour int) *MemoryLimiter {
	l := &MemoryLimiter{
		entries:   make(map[string]*entry),
		perMinute: perMinute,
		perHour:   perHour,
		stopCh:    make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

func (l *MemoryLimiter) Admit(_ context.Context, identity string) (Decision, error) {
	e := l.getOrCreate(identity)

	minuteRes := e.minute.Reserve()
	if delay := minuteRes.Delay(); delay > 0 {
		minuteRes.Cancel()
		return Decision{RetryAfter: delay}, nil
	}

	hourRes := e.hour.Reserve()
	if delay := hourRes.Delay(); delay > 0 {
		hourRes.Cancel()
		minuteRes.Cancel()
		return Decision{RetryAfter: delay}, nil
	}

	return Decision{Allowed: true}, nil
}

func (l *MemoryLimiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}

func (l *MemoryLimiter) getOrCreate(identity string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, exists := l.entries[identity]
	if !exists {
		e = &entry{
			minute: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.perMinute),
			hour:   rate.NewLimiter(rate.Limit(float64(l.perHour)/3600.0), l.perHour),
		}
		l.entries[identity] = e
	}
	e.lastSeen = time.Now()

	return e
}

func (l *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

func (l *MemoryLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for identity, e := range l.entries {
		if time.Since(e.lastSeen) > entryMaxIdle {
			delete(l.entries, identity)
		}
	}
}
