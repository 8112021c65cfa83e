package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// live returns the live entry count for identity at now.
func (l *Limiter) live(identity string, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[identity]
	if !ok {
		return 0
	}
	w.prune(now, l.window)
	return w.size
}

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestLimiter_AllowRecord(t *testing.T) {
	l := New(3, 10*time.Second)

	for i := 0; i < 3; i++ {
		now := t0.Add(time.Duration(i) * time.Second)
		require.True(t, l.Allow("s-1", now), "call %d", i)
		l.Record("s-1", now)
	}

	assert.False(t, l.Allow("s-1", t0.Add(3*time.Second)))
	assert.True(t, l.Allow("s-2", t0.Add(3*time.Second)), "identities are independent")
}

func TestLimiter_WindowSlides(t *testing.T) {
	l := New(2, 10*time.Second)
	l.Record("u", t0)
	l.Record("u", t0.Add(5*time.Second))

	assert.False(t, l.Allow("u", t0.Add(9*time.Second)))
	// entry at t0 is exactly one window old and no longer counts
	assert.True(t, l.Allow("u", t0.Add(10*time.Second)))
	assert.Equal(t, 1, l.Remaining("u", t0.Add(10*time.Second)))
	assert.Equal(t, 2, l.Remaining("u", t0.Add(15*time.Second)))
}

func TestLimiter_RecordOverFullRingKeepsBound(t *testing.T) {
	l := New(2, time.Minute)
	for i := 0; i < 5; i++ {
		l.Record("u", t0.Add(time.Duration(i)*time.Second))
	}
	now := t0.Add(5 * time.Second)
	assert.Equal(t, 2, l.live("u", now))
	assert.False(t, l.Allow("u", now))
}

func TestLimiter_Admit(t *testing.T) {
	l := New(1, time.Second)

	assert.True(t, l.Admit("u", t0))
	assert.False(t, l.Admit("u", t0.Add(500*time.Millisecond)))
	// denied admit must not consume quota
	assert.True(t, l.Admit("u", t0.Add(time.Second)))
}

func TestLimiter_RetryAfter(t *testing.T) {
	l := New(2, 10*time.Second)
	assert.Zero(t, l.RetryAfter("u", t0))

	l.Record("u", t0)
	l.Record("u", t0.Add(4*time.Second))

	assert.Equal(t, 4*time.Second, l.RetryAfter("u", t0.Add(6*time.Second)))
	assert.Zero(t, l.RetryAfter("u", t0.Add(10*time.Second)))
}

func TestLimiter_ZeroBudget(t *testing.T) {
	l := New(0, time.Second)
	assert.False(t, l.Allow("u", t0))
	assert.False(t, l.Admit("u", t0))
	assert.Equal(t, time.Second, l.RetryAfter("u", t0))
	assert.Zero(t, l.Len())
}

func TestLimiter_Sweep(t *testing.T) {
	l := New(5, 10*time.Second, WithIdleTTL(time.Minute))
	l.Record("idle", t0)
	l.Record("active", t0.Add(50*time.Second))
	require.Equal(t, 2, l.Len())

	assert.Equal(t, 0, l.Sweep(t0.Add(59*time.Second)))
	assert.Equal(t, 1, l.Sweep(t0.Add(60*time.Second)))
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 1, l.live("active", t0.Add(55*time.Second)))
}

func TestLimiter_IdleTTLNeverShorterThanWindow(t *testing.T) {
	l := New(5, time.Minute, WithIdleTTL(time.Second))
	l.Record("u", t0)
	assert.Equal(t, 0, l.Sweep(t0.Add(30*time.Second)))
	assert.Equal(t, 1, l.Sweep(t0.Add(time.Minute)))
}

func TestLimiter_RunStopsWithContext(t *testing.T) {
	l := New(1, time.Millisecond, WithLogger(zap.NewNop()))
	l.Record("u", time.Now().Add(-time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLimiter_ConcurrentAdmit(t *testing.T) {
	l := New(50, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Admit("shared", t0) {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, admitted)
	assert.Equal(t, 50, l.live("shared", t0))
}

func TestLimiter_ManyIdentities(t *testing.T) {
	l := New(1, time.Second)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Admit(fmt.Sprintf("user-%d", i), t0))
	}
	assert.Equal(t, 100, l.Len())
}

func TestLimiter_FiveCallsPerMinute(t *testing.T) {
	l := New(5, 60*time.Second)
	at := func(sec int64) time.Time { return time.Unix(sec, 0) }

	for sec := int64(1000); sec <= 1004; sec++ {
		require.True(t, l.Admit("user-1", at(sec)), "t=%d", sec)
	}
	assert.False(t, l.Admit("user-1", at(1005)))
	assert.True(t, l.Admit("user-1", at(1065)))
}
