package recovery

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/config"
	"github.com/BaSui01/tripflow/llm/retry"
	"github.com/BaSui01/tripflow/types"
)

// Kind classifies a failure.
type Kind string

const (
	KindNone      Kind = ""
	KindTransient Kind = "transient"
	KindPermanent Kind = "permanent"
	KindFatal     Kind = "fatal"
)

// FinalStatus is how a recovered operation ended.
type FinalStatus string

const (
	StatusSucceeded FinalStatus = "succeeded"
	StatusRecovered FinalStatus = "recovered"
	StatusFallback  FinalStatus = "fallback"
	StatusFatal     FinalStatus = "fatal"
)

// Classify maps err onto a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	switch types.Normalize(err).Code {
	case types.ErrTimeout, types.ErrConnection, types.ErrToolThrottled:
		return KindTransient
	case types.ErrRateLimited, types.ErrCancelled:
		return KindFatal
	default:
		return KindPermanent
	}
}

// Decision says what to do after a failed attempt.
type Decision struct {
	Retry    bool
	Delay    time.Duration
	Fallback bool
	Kind     Kind
}

// Outcome summarises a Run.
type Outcome struct {
	AttemptCount int          `json:"attempt_count"`
	FinalStatus  FinalStatus  `json:"final_status"`
	LastError    *types.Error `json:"last_error,omitempty"`
	Kind         Kind         `json:"kind,omitempty"`
}

// Observer receives one callback per finished Run.
type Observer interface {
	ObserveRecovery(kind, status string, attempts int)
}

// Manager applies the retry policy.
type Manager struct {
	maxAttempts int
	backoff     *retry.RetryPolicy
	observer    Observer
	logger      *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver installs an outcome observer.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// New creates a manager allowing maxAttempts executions in total.
func New(maxAttempts int, backoff *retry.RetryPolicy, opts ...Option) *Manager {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if backoff == nil {
		backoff = retry.DefaultRetryPolicy()
	}
	m := &Manager{maxAttempts: maxAttempts, backoff: backoff}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.logger = m.logger.With(zap.String("component", "recovery"))
	return m
}

// NewFromConfig builds a manager from configuration.
func NewFromConfig(cfg config.RecoveryConfig, opts ...Option) *Manager {
	return New(cfg.MaxAttempts, &retry.RetryPolicy{
		MaxRetries:   cfg.MaxAttempts - 1,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		Multiplier:   cfg.Multiplier,
		Jitter:       cfg.Jitter,
	}, opts...)
}

// MaxAttempts returns the execution budget.
func (m *Manager) MaxAttempts() int { return m.maxAttempts }

// Decide is the pure policy: attempt is the number of executions so far.
func (m *Manager) Decide(failure error, attempt int) Decision {
	kind := Classify(failure)
	switch kind {
	case KindNone:
		return Decision{}
	case KindFatal:
		return Decision{Kind: kind}
	case KindTransient:
		if attempt < m.maxAttempts {
			return Decision{Retry: true, Delay: m.backoff.Backoff(attempt), Kind: kind}
		}
	}
	return Decision{Fallback: true, Kind: kind}
}

// Run executes op until it succeeds, fails for good, exhausts MaxAttempts or
// ctx ends. attempt starts at 1.
func (m *Manager) Run(ctx context.Context, op func(ctx context.Context, attempt int) error) Outcome {
	out := m.run(ctx, op)
	if m.observer != nil {
		m.observer.ObserveRecovery(string(out.Kind), string(out.FinalStatus), out.AttemptCount)
	}
	return out
}

func (m *Manager) run(ctx context.Context, op func(ctx context.Context, attempt int) error) Outcome {
	var lastErr *types.Error
	var lastKind Kind

	for attempt := 1; ; attempt++ {
		err := op(ctx, attempt)
		if err == nil {
			status := StatusSucceeded
			if attempt > 1 {
				status = StatusRecovered
				m.logger.Info("recovered after retry", zap.Int("attempt", attempt))
			}
			return Outcome{AttemptCount: attempt, FinalStatus: status, LastError: lastErr, Kind: lastKind}
		}

		lastErr = types.Normalize(err)
		d := m.Decide(err, attempt)
		lastKind = d.Kind

		switch {
		case d.Kind == KindFatal:
			m.logger.Warn("fatal failure", zap.Int("attempt", attempt), zap.Error(err))
			return Outcome{AttemptCount: attempt, FinalStatus: StatusFatal, LastError: lastErr, Kind: d.Kind}
		case !d.Retry:
			m.logger.Info("falling back",
				zap.Int("attempt", attempt),
				zap.String("kind", string(d.Kind)),
				zap.Error(err))
			return Outcome{AttemptCount: attempt, FinalStatus: StatusFallback, LastError: lastErr, Kind: d.Kind}
		}

		m.logger.Debug("retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", d.Delay),
			zap.Error(err))

		if err := sleep(ctx, d.Delay); err != nil {
			out := Outcome{AttemptCount: attempt, LastError: types.Normalize(err), Kind: Classify(err)}
			if errors.Is(err, context.Canceled) {
				out.FinalStatus = StatusFatal
			} else {
				out.FinalStatus = StatusFallback
			}
			return out
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
