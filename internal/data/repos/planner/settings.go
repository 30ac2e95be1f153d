package planner

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

type SettingsRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, settings *types.PlannerSettings) (*types.PlannerSettings, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.PlannerSettings, error)
}

type settingsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSettingsRepo(db *gorm.DB, baseLog *logger.Logger) SettingsRepo {
	return &settingsRepo{db: db, log: baseLog.With("repo", "SettingsRepo")}
}

func (r *settingsRepo) Upsert(ctx context.Context, tx *gorm.DB, settings *types.PlannerSettings) (*types.PlannerSettings, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *settingsRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.PlannerSettings, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.PlannerSettings
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}
