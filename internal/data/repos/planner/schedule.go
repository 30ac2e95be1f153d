package planner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

type ScheduleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, schedule *types.PlannerSchedule) (*types.PlannerSchedule, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PlannerSchedule, error)
	GetByIDWithSessions(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PlannerSchedule, error)
	GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.PlannerSchedule, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PlannerSchedule, error)
	DeactivateActiveForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, exceptID uuid.UUID) (int64, error)
	SoftDelete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type scheduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScheduleRepo(db *gorm.DB, baseLog *logger.Logger) ScheduleRepo {
	return &scheduleRepo{db: db, log: baseLog.With("repo", "ScheduleRepo")}
}

// Create persists the schedule together with its sessions in one insert.
func (r *scheduleRepo) Create(ctx context.Context, tx *gorm.DB, schedule *types.PlannerSchedule) (*types.PlannerSchedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(schedule).Error; err != nil {
		return nil, err
	}
	return schedule, nil
}

func (r *scheduleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PlannerSchedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.PlannerSchedule
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *scheduleRepo) GetByIDWithSessions(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PlannerSchedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.PlannerSchedule
	if err := transaction.WithContext(ctx).
		Preload("Sessions", func(db *gorm.DB) *gorm.DB {
			return db.Order("starts_at ASC")
		}).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// GetActiveByUserID returns the single active schedule for the user, or
// gorm.ErrRecordNotFound when none is active.
func (r *scheduleRepo) GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.PlannerSchedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.PlannerSchedule
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, types.ScheduleStatusActive).
		Order("generated_at DESC").
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *scheduleRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PlannerSchedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.PlannerSchedule
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("generated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// DeactivateActiveForUser flips every active schedule of the user to
// inactive, skipping exceptID when it is non-nil. Activation calls this
// first so that at most one schedule per user is ever active.
func (r *scheduleRepo) DeactivateActiveForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, exceptID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).
		Model(&types.PlannerSchedule{}).
		Where("user_id = ? AND status = ?", userID, types.ScheduleStatusActive)
	if exceptID != uuid.Nil {
		q = q.Where("id <> ?", exceptID)
	}
	res := q.Updates(map[string]any{
		"status":     types.ScheduleStatusInactive,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *scheduleRepo) SoftDelete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.PlannerSchedule{}).Error
}
