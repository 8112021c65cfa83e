package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/tripflow/internal/database"
)

// sessionRow tracks the next sequence number of a session.
type sessionRow struct {
	SessionID string `gorm:"primaryKey;size:128"`
	NextSeq   int64  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

func (sessionRow) TableName() string { return "memory_sessions" }

type observationRow struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"size:128;not null;uniqueIndex:idx_memory_obs_session_seq"`
	Seq       int64  `gorm:"not null;uniqueIndex:idx_memory_obs_session_seq"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (observationRow) TableName() string { return "memory_observations" }

// SQLStore persists observations through gorm. Each append runs in one
// transaction and assigns consecutive sequence numbers per session.
type SQLStore struct {
	pool       *database.PoolManager
	maxRetries int
	logger     *zap.Logger
}

// NewSQLStore migrates the schema and returns the store.
func NewSQLStore(pool *database.PoolManager, logger *zap.Logger) (*SQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.DB().AutoMigrate(&sessionRow{}, &observationRow{}); err != nil {
		return nil, fmt.Errorf("migrate memory tables: %w", err)
	}
	return &SQLStore{
		pool:       pool,
		maxRetries: 2,
		logger:     logger.With(zap.String("component", "memory_store_sql")),
	}, nil
}

func (s *SQLStore) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	db := s.pool.DB().WithContext(ctx)

	var sess sessionRow
	if err := db.Where("session_id = ?", sessionID).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	var rows []observationRow
	if err := db.Where("session_id = ?", sessionID).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load observations %s: %w", sessionID, err)
	}

	snap := &Snapshot{
		SessionID:    sessionID,
		Observations: make([]string, len(rows)),
		UpdatedAt:    sess.UpdatedAt,
	}
	for i, r := range rows {
		snap.Observations[i] = r.Content
	}
	return snap, nil
}

func (s *SQLStore) Append(ctx context.Context, sessionID string, observations []string, at time.Time) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if len(observations) == 0 {
		return nil
	}

	err := s.pool.WithTransactionRetry(ctx, s.maxRetries, func(tx *gorm.DB) error {
		var sess sessionRow
		err := tx.Where("session_id = ?", sessionID).First(&sess).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			sess = sessionRow{SessionID: sessionID}
			if err := tx.Create(&sess).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		rows := make([]observationRow, len(observations))
		for i, o := range observations {
			rows[i] = observationRow{
				SessionID: sessionID,
				Seq:       sess.NextSeq + int64(i),
				Content:   o,
				CreatedAt: at,
			}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}

		return tx.Model(&sessionRow{}).
			Where("session_id = ?", sessionID).
			Updates(map[string]any{
				"next_seq":   sess.NextSeq + int64(len(observations)),
				"updated_at": at,
			}).Error
	})
	if err != nil {
		s.logger.Warn("append failed", zap.String("session_id", sessionID), zap.Error(err))
		return fmt.Errorf("append session %s: %w", sessionID, err)
	}
	return nil
}

// Close closes the connection pool.
func (s *SQLStore) Close() error {
	return s.pool.Close()
}
