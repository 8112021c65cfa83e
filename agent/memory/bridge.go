package memory

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/llm/retry"
	"github.com/BaSui01/tripflow/types"
)

// DefaultMaxObservations bounds the snapshot handed to agent nodes.
const DefaultMaxObservations = 20

// Observer receives memory operation timings.
type Observer interface {
	ObserveMemory(op, status string, d time.Duration)
}

// Bridge reads a session snapshot before routing and appends the turn's
// observations once the turn completes.
type Bridge struct {
	store           Store
	maxObservations int
	policy          retry.RetryPolicy
	observer        Observer
	now             func() time.Time
	logger          *zap.Logger
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithMaxObservations caps how many recent observations Load returns.
func WithMaxObservations(n int) BridgeOption {
	return func(b *Bridge) {
		if n > 0 {
			b.maxObservations = n
		}
	}
}

// WithRetryPolicy sets the backoff used for transient store errors.
func WithRetryPolicy(p retry.RetryPolicy) BridgeOption {
	return func(b *Bridge) { b.policy = p }
}

// WithObserver reports load/persist timings.
func WithObserver(o Observer) BridgeOption {
	return func(b *Bridge) { b.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) BridgeOption {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) BridgeOption {
	return func(b *Bridge) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBridge wraps store. A nil store falls back to an in-memory one.
func NewBridge(store Store, opts ...BridgeOption) *Bridge {
	if store == nil {
		store = NewInMemoryStore(0)
	}
	b := &Bridge{
		store:           store,
		maxObservations: DefaultMaxObservations,
		policy: retry.RetryPolicy{
			MaxRetries:   2,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     500 * time.Millisecond,
			Multiplier:   2,
			Jitter:       true,
		},
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(zap.String("component", "memory_bridge"))
	return b
}

// Store returns the underlying store.
func (b *Bridge) Store() Store { return b.store }

// MaxObservations returns the load cap.
func (b *Bridge) MaxObservations() int { return b.maxObservations }

func (b *Bridge) retryer() retry.Retryer {
	p := b.policy
	p.RetryIf = func(err error) bool {
		return types.IsRetryable(types.Normalize(err))
	}
	return retry.NewBackoffRetryer(&p, b.logger)
}

// Load returns the session snapshot, or an empty one when the session is
// unknown. Transient store failures are retried.
func (b *Bridge) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	start := b.now()

	snap, err := retry.DoWithResultTyped(b.retryer(), ctx, func() (*Snapshot, error) {
		return b.store.Load(ctx, sessionID)
	})
	if err != nil {
		b.observe("load", "error", start)
		b.logger.Warn("memory load failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, persistenceError("load", err)
	}

	b.observe("load", "success", start)
	if snap == nil {
		return &Snapshot{SessionID: sessionID}, nil
	}
	if b.maxObservations > 0 && len(snap.Observations) > b.maxObservations {
		snap.Observations = snap.Last(b.maxObservations)
	}
	return snap, nil
}

// Persist appends observations as one atomic write. Blank entries are
// dropped; an empty list is a no-op.
func (b *Bridge) Persist(ctx context.Context, sessionID string, observations []string) error {
	cleaned := make([]string, 0, len(observations))
	for _, o := range observations {
		if o = strings.TrimSpace(o); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}

	start := b.now()
	at := start
	err := b.retryer().Do(ctx, func() error {
		return b.store.Append(ctx, sessionID, cleaned, at)
	})
	if err != nil {
		b.observe("persist", "error", start)
		return persistenceError("persist", err)
	}

	b.observe("persist", "success", start)
	b.logger.Debug("memory persisted",
		zap.String("session_id", sessionID),
		zap.Int("observations", len(cleaned)),
	)
	return nil
}

func (b *Bridge) observe(op, status string, start time.Time) {
	if b.observer != nil {
		b.observer.ObserveMemory(op, status, b.now().Sub(start))
	}
}

func persistenceError(op string, err error) *types.Error {
	return types.NewError(types.ErrMemoryPersistence, "memory "+op+" failed").
		WithCause(err).
		WithRetryable(types.IsRetryable(types.Normalize(err)))
}
