package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/config"
	"github.com/BaSui01/tripflow/internal/database"
)

// Snapshot is the ordered observation list of one session.
type Snapshot struct {
	SessionID    string    `json:"session_id"`
	Observations []string  `json:"observations"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Empty reports whether the snapshot holds no observations.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Observations) == 0
}

// Last returns up to n of the most recent observations.
func (s *Snapshot) Last(n int) []string {
	if s == nil || n <= 0 {
		return nil
	}
	obs := s.Observations
	if len(obs) > n {
		obs = obs[len(obs)-n:]
	}
	out := make([]string, len(obs))
	copy(out, obs)
	return out
}

// Store persists session observations. Append must be atomic: either every
// observation is written or none is. Load returns (nil, nil) for an unknown
// session.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Append(ctx context.Context, sessionID string, observations []string, at time.Time) error
	Close() error
}

// InMemoryStore keeps snapshots in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Snapshot
	maxLen   int
}

// NewInMemoryStore creates an in-memory store. maxLen caps the stored
// observations per session; 0 keeps everything.
func NewInMemoryStore(maxLen int) *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*Snapshot),
		maxLen:   maxLen,
	}
}

func (s *InMemoryStore) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	out := *snap
	out.Observations = append([]string(nil), snap.Observations...)
	return &out, nil
}

func (s *InMemoryStore) Append(ctx context.Context, sessionID string, observations []string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.sessions[sessionID]
	if !ok {
		snap = &Snapshot{SessionID: sessionID}
		s.sessions[sessionID] = snap
	}
	snap.Observations = append(snap.Observations, observations...)
	if s.maxLen > 0 && len(snap.Observations) > s.maxLen {
		snap.Observations = append([]string(nil), snap.Observations[len(snap.Observations)-s.maxLen:]...)
	}
	snap.UpdatedAt = at
	return nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error { return nil }

// NewStore builds the store selected by cfg.Backend.
func NewStore(cfg config.MemoryConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Backend {
	case "", "memory":
		return NewInMemoryStore(cfg.MaxObservations), nil
	case "redis":
		store, err := NewRedisStore(cfg.Redis, RedisStoreOptions{
			TTL:    cfg.TTL,
			MaxLen: cfg.MaxObservations,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "sql":
		poolCfg := database.PoolConfigFrom(cfg.Database)
		if err := poolCfg.Validate(); err != nil {
			return nil, fmt.Errorf("memory database pool: %w", err)
		}
		db, err := database.Open(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		pool, err := database.NewPoolManager(db, poolCfg, logger)
		if err != nil {
			return nil, err
		}
		store, err := NewSQLStore(pool, logger)
		if err != nil {
			_ = pool.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported memory backend: %s", cfg.Backend)
	}
}
