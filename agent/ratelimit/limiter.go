package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Limiter is a sliding-window limiter keyed by identity.
type Limiter struct {
	maxCalls int
	window   time.Duration
	idleTTL  time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	windows map[string]*window
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithIdleTTL sets how long an identity may stay idle before Sweep evicts it.
// Values shorter than the window are raised to the window.
func WithIdleTTL(ttl time.Duration) Option {
	return func(l *Limiter) { l.idleTTL = ttl }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// New creates a limiter admitting at most maxCalls per identity within span.
func New(maxCalls int, span time.Duration, opts ...Option) *Limiter {
	if maxCalls < 0 {
		maxCalls = 0
	}
	l := &Limiter{
		maxCalls: maxCalls,
		window:   span,
		windows:  make(map[string]*window),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.idleTTL < span {
		l.idleTTL = span
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	l.logger = l.logger.With(zap.String("component", "rate_limiter"))
	return l
}

// MaxCalls returns the per-window call budget.
func (l *Limiter) MaxCalls() int { return l.maxCalls }

// Window returns the window length.
func (l *Limiter) Window() time.Duration { return l.window }

// Allow reports whether identity may make another call at now.
func (l *Limiter) Allow(identity string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowLocked(identity, now)
}

// Record counts a call for identity at now.
func (l *Limiter) Record(identity string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recordLocked(identity, now)
}

// Admit checks and records in one step. It returns false without recording
// when the identity is over budget.
func (l *Limiter) Admit(identity string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.allowLocked(identity, now) {
		return false
	}
	l.recordLocked(identity, now)
	return true
}

// Remaining returns how many calls identity may still make at now.
func (l *Limiter) Remaining(identity string, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[identity]
	if !ok {
		return l.maxCalls
	}
	w.prune(now, l.window)
	return l.maxCalls - w.size
}

// RetryAfter returns how long identity must wait until a call would be
// allowed. Zero means a call is allowed now.
func (l *Limiter) RetryAfter(identity string, now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowLocked(identity, now) {
		return 0
	}
	w, ok := l.windows[identity]
	if !ok {
		// maxCalls == 0: nothing ever ages out
		return l.window
	}
	oldest, ok := w.oldest()
	if !ok {
		return l.window
	}
	return l.window - now.Sub(oldest)
}

// Len returns the number of tracked identities.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Sweep evicts identities whose newest call is older than the idle TTL.
// It returns the number of evicted identities.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for identity, w := range l.windows {
		if now.Sub(w.last) >= l.idleTTL {
			delete(l.windows, identity)
			evicted++
		}
	}
	return evicted
}

// Run sweeps idle identities every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := l.Sweep(now); n > 0 {
				l.logger.Debug("evicted idle identities", zap.Int("count", n))
			}
		}
	}
}

func (l *Limiter) allowLocked(identity string, now time.Time) bool {
	w, ok := l.windows[identity]
	if !ok {
		return l.maxCalls > 0
	}
	w.prune(now, l.window)
	return w.size < l.maxCalls
}

func (l *Limiter) recordLocked(identity string, now time.Time) {
	if l.maxCalls == 0 {
		return
	}
	w, ok := l.windows[identity]
	if !ok {
		w = newWindow(l.maxCalls)
		l.windows[identity] = w
	}
	w.prune(now, l.window)
	w.push(now)
}
