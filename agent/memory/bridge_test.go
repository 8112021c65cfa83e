package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/tripflow/llm/retry"
	"github.com/BaSui01/tripflow/types"
)

var fastRetry = retry.RetryPolicy{
	MaxRetries:   2,
	InitialDelay: time.Millisecond,
	MaxDelay:     2 * time.Millisecond,
	Multiplier:   2,
}

// flakyStore fails the first n calls with err.
type flakyStore struct {
	*InMemoryStore
	mu       sync.Mutex
	failures int
	err      error
	loads    int
	appends  int
}

func (f *flakyStore) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	f.mu.Lock()
	f.loads++
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return nil, f.err
	}
	f.mu.Unlock()
	return f.InMemoryStore.Load(ctx, sessionID)
}

func (f *flakyStore) Append(ctx context.Context, sessionID string, obs []string, at time.Time) error {
	f.mu.Lock()
	f.appends++
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return f.err
	}
	f.mu.Unlock()
	return f.InMemoryStore.Append(ctx, sessionID, obs, at)
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingObserver) ObserveMemory(op, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op+":"+status)
}

func TestBridge_LoadMissReturnsEmpty(t *testing.T) {
	b := NewBridge(nil)
	snap, err := b.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", snap.SessionID)
	assert.True(t, snap.Empty())
}

func TestBridge_PersistThenLoad(t *testing.T) {
	obs := &recordingObserver{}
	b := NewBridge(NewInMemoryStore(0), WithMaxObservations(3), WithObserver(obs))
	ctx := context.Background()

	require.NoError(t, b.Persist(ctx, "s1", []string{"o1", " ", "o2"}))
	require.NoError(t, b.Persist(ctx, "s1", []string{"o3", "o4"}))

	snap, err := b.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"o2", "o3", "o4"}, snap.Observations)
	assert.Equal(t, 3, b.MaxObservations())
	assert.Equal(t, []string{"persist:success", "persist:success", "load:success"}, obs.calls)
}

func TestBridge_PersistEmptyIsNoop(t *testing.T) {
	store := &flakyStore{InMemoryStore: NewInMemoryStore(0)}
	b := NewBridge(store)

	require.NoError(t, b.Persist(context.Background(), "s1", nil))
	require.NoError(t, b.Persist(context.Background(), "s1", []string{"", "  "}))
	assert.Zero(t, store.appends)
}

func TestBridge_RetriesTransientLoad(t *testing.T) {
	store := &flakyStore{
		InMemoryStore: NewInMemoryStore(0),
		failures:      1,
		err:           fmt.Errorf("dial: %w", syscall.ECONNREFUSED),
	}
	b := NewBridge(store, WithRetryPolicy(fastRetry))

	snap, err := b.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, snap.Empty())
	assert.Equal(t, 2, store.loads)
}

func TestBridge_PermanentErrorNotRetried(t *testing.T) {
	store := &flakyStore{
		InMemoryStore: NewInMemoryStore(0),
		failures:      5,
		err:           errors.New("schema mismatch"),
	}
	b := NewBridge(store, WithRetryPolicy(fastRetry))

	err := b.Persist(context.Background(), "s1", []string{"o1"})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrMemoryPersistence))
	assert.False(t, types.IsRetryable(err))
	assert.Equal(t, 1, store.appends)
}

func TestBridge_RedisOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	obs := &recordingObserver{}
	b := NewBridge(NewRedisStoreFromClient(client, RedisStoreOptions{}, nil),
		WithRetryPolicy(fastRetry), WithObserver(obs))

	require.NoError(t, b.Persist(context.Background(), "s1", []string{"o1"}))
	mr.Close()

	_, err := b.Load(context.Background(), "s1")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrMemoryPersistence))
	assert.Contains(t, obs.calls, "load:error")
}
