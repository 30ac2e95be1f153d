package planner

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

// AdaptationEventRepo is append-only. Events are the audit trail of every
// automatic or manual plan change, so there is no update or delete path.
type AdaptationEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, event *types.AdaptationEvent) (*types.AdaptationEvent, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.AdaptationEvent, error)
}

type adaptationEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAdaptationEventRepo(db *gorm.DB, baseLog *logger.Logger) AdaptationEventRepo {
	return &adaptationEventRepo{db: db, log: baseLog.With("repo", "AdaptationEventRepo")}
}

func (r *adaptationEventRepo) Create(ctx context.Context, tx *gorm.DB, event *types.AdaptationEvent) (*types.AdaptationEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (r *adaptationEventRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.AdaptationEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}

	var results []*types.AdaptationEvent
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
