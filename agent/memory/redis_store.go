package memory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/config"
)

const defaultRedisKeyPrefix = "tripflow:memory:"

// RedisStoreOptions tunes retention of the Redis store.
type RedisStoreOptions struct {
	KeyPrefix string
	// TTL expires idle sessions; 0 keeps them forever.
	TTL time.Duration
	// MaxLen trims each list to the most recent entries; 0 disables trimming.
	MaxLen int
}

// RedisStore keeps each session as a Redis list of observations plus a hash
// holding the update time. Appends run inside MULTI/EXEC.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	maxLen    int
	logger    *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg config.RedisConfig, opts RedisStoreOptions, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if opts.KeyPrefix == "" {
		opts.KeyPrefix = cfg.KeyPrefix
	}
	return NewRedisStoreFromClient(client, opts, logger), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client redis.UniversalClient, opts RedisStoreOptions, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisStore{
		client:    client,
		keyPrefix: prefix,
		ttl:       opts.TTL,
		maxLen:    opts.MaxLen,
		logger:    logger.With(zap.String("component", "memory_store_redis")),
	}
}

func (s *RedisStore) listKey(sessionID string) string {
	return s.keyPrefix + sessionID + ":obs"
}

func (s *RedisStore) metaKey(sessionID string) string {
	return s.keyPrefix + sessionID + ":meta"
}

// Load reads the session list and its update time in one pipeline.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	var (
		listCmd *redis.StringSliceCmd
		metaCmd *redis.StringCmd
	)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		listCmd = pipe.LRange(ctx, s.listKey(sessionID), 0, -1)
		metaCmd = pipe.HGet(ctx, s.metaKey(sessionID), "updated_at")
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	observations := listCmd.Val()
	raw, metaErr := metaCmd.Result()
	if errors.Is(metaErr, redis.Nil) && len(observations) == 0 {
		return nil, nil
	}

	snap := &Snapshot{SessionID: sessionID, Observations: observations}
	if nanos, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
		snap.UpdatedAt = time.Unix(0, nanos)
	}
	return snap, nil
}

// Append pushes observations and bumps the update time atomically.
func (s *RedisStore) Append(ctx context.Context, sessionID string, observations []string, at time.Time) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if len(observations) == 0 {
		return nil
	}

	values := make([]any, len(observations))
	for i, o := range observations {
		values[i] = o
	}

	listKey, metaKey := s.listKey(sessionID), s.metaKey(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, listKey, values...)
		pipe.HSet(ctx, metaKey, "updated_at", strconv.FormatInt(at.UnixNano(), 10))
		if s.maxLen > 0 {
			pipe.LTrim(ctx, listKey, int64(-s.maxLen), -1)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, listKey, s.ttl)
			pipe.Expire(ctx, metaKey, s.ttl)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("append failed", zap.String("session_id", sessionID), zap.Error(err))
		return fmt.Errorf("append session %s: %w", sessionID, err)
	}
	return nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
