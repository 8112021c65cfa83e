package ratelimit

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/config"
)

// Class names an identity dimension that is limited independently.
type Class string

const (
	ClassUser    Class = "user"
	ClassSession Class = "session"
)

// Decision is the outcome of a Set admission check.
type Decision struct {
	Allowed bool
	// Class is the first class that denied the call.
	Class Class
	// RetryAfter is how long the denying identity must wait.
	RetryAfter time.Duration
}

// Set combines one limiter per identity class.
type Set struct {
	mu       sync.Mutex
	limiters map[Class]*Limiter
	order    []Class
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{limiters: make(map[Class]*Limiter)}
}

// Add registers the limiter for class, replacing any previous one.
func (s *Set) Add(class Class, l *Limiter) *Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.limiters[class]; !ok {
		s.order = append(s.order, class)
		sort.Slice(s.order, func(i, j int) bool { return s.order[i] < s.order[j] })
	}
	s.limiters[class] = l
	return s
}

// Limiter returns the limiter registered for class.
func (s *Set) Limiter(class Class) (*Limiter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[class]
	return l, ok
}

// Admit checks every class that has both a limiter and a non-empty identity.
// The call is recorded in all of them only when all of them allow it.
func (s *Set) Admit(identities map[Class]string, now time.Time) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, class := range s.order {
		id := identities[class]
		if id == "" {
			continue
		}
		l := s.limiters[class]
		if !l.Allow(id, now) {
			return Decision{
				Allowed:    false,
				Class:      class,
				RetryAfter: l.RetryAfter(id, now),
			}
		}
	}

	for _, class := range s.order {
		if id := identities[class]; id != "" {
			s.limiters[class].Record(id, now)
		}
	}
	return Decision{Allowed: true}
}

// Sweep evicts idle identities from every class.
func (s *Set) Sweep(now time.Time) int {
	s.mu.Lock()
	limiters := make([]*Limiter, 0, len(s.order))
	for _, class := range s.order {
		limiters = append(limiters, s.limiters[class])
	}
	s.mu.Unlock()

	total := 0
	for _, l := range limiters {
		total += l.Sweep(now)
	}
	return total
}

// Run sweeps every class on interval until ctx is done.
func (s *Set) Run(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				logger.Debug("evicted idle identities", zap.Int("count", n))
			}
		}
	}
}

// NewSetFromConfig builds the user and session classes from configuration.
// Classes with a zero call budget are left out.
func NewSetFromConfig(cfg config.RateLimitConfig, logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := NewSet()
	classes := map[Class]config.RateLimitClass{
		ClassUser:    cfg.User,
		ClassSession: cfg.Session,
	}
	for class, c := range classes {
		if c.MaxCalls <= 0 {
			continue
		}
		set.Add(class, New(c.MaxCalls, c.Window,
			WithIdleTTL(cfg.IdleTTL),
			WithLogger(logger.With(zap.String("class", string(class)))),
		))
	}
	return set
}
