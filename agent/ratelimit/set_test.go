package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/tripflow/config"
)

func TestSet_AdmitRecordsAllOrNothing(t *testing.T) {
	user := New(10, time.Minute)
	session := New(1, time.Minute)
	set := NewSet().Add(ClassUser, user).Add(ClassSession, session)

	ids := map[Class]string{ClassUser: "alice", ClassSession: "s-1"}

	d := set.Admit(ids, t0)
	require.True(t, d.Allowed)

	d = set.Admit(ids, t0.Add(time.Second))
	assert.False(t, d.Allowed)
	assert.Equal(t, ClassSession, d.Class)
	assert.Equal(t, 59*time.Second, d.RetryAfter)

	// the denied call did not count against the user class
	assert.Equal(t, 9, user.Remaining("alice", t0.Add(time.Second)))
}

func TestSet_SkipsMissingIdentity(t *testing.T) {
	set := NewSet().Add(ClassUser, New(1, time.Minute)).Add(ClassSession, New(1, time.Minute))

	for i := 0; i < 3; i++ {
		d := set.Admit(map[Class]string{ClassSession: ""}, t0)
		assert.True(t, d.Allowed)
	}
}

func TestSet_Sweep(t *testing.T) {
	set := NewSet().
		Add(ClassUser, New(5, time.Second)).
		Add(ClassSession, New(5, time.Second))

	set.Admit(map[Class]string{ClassUser: "u", ClassSession: "s"}, t0)
	assert.Equal(t, 2, set.Sweep(t0.Add(time.Hour)))
}

func TestNewSetFromConfig(t *testing.T) {
	cfg := config.DefaultRateLimitConfig()
	cfg.User = config.RateLimitClass{}
	cfg.Session = config.RateLimitClass{MaxCalls: 2, Window: time.Minute}

	set := NewSetFromConfig(cfg, nil)

	_, ok := set.Limiter(ClassUser)
	assert.False(t, ok, "zero budget class is disabled")

	l, ok := set.Limiter(ClassSession)
	require.True(t, ok)
	assert.Equal(t, 2, l.MaxCalls())
	assert.Equal(t, time.Minute, l.Window())
}
