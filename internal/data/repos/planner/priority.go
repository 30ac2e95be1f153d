package planner

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

type PriorityRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, priority *types.SubjectPriority) (*types.SubjectPriority, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.SubjectPriority, error)
	GetByUserSubject(ctx context.Context, tx *gorm.DB, userID, subjectID uuid.UUID) (*types.SubjectPriority, error)
}

type priorityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPriorityRepo(db *gorm.DB, baseLog *logger.Logger) PriorityRepo {
	return &priorityRepo{db: db, log: baseLog.With("repo", "PriorityRepo")}
}

// Upsert writes the cache row for one user×subject pair. Last writer wins;
// the scoring function is pure so concurrent writers agree on the value.
func (r *priorityRepo) Upsert(ctx context.Context, tx *gorm.DB, priority *types.SubjectPriority) (*types.SubjectPriority, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "subject_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"coefficient_score",
				"exam_proximity_score",
				"difficulty_score",
				"inactivity_score",
				"performance_gap_score",
				"total_score",
				"calculated_at",
				"updated_at",
			}),
		}).
		Create(priority).Error; err != nil {
		return nil, err
	}
	return priority, nil
}

// GetByUserID returns all cached priorities for a user, highest total first,
// ties broken by subject id for reproducible ordering.
func (r *priorityRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.SubjectPriority, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.SubjectPriority
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("total_score DESC, subject_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *priorityRepo) GetByUserSubject(ctx context.Context, tx *gorm.DB, userID, subjectID uuid.UUID) (*types.SubjectPriority, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.SubjectPriority
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND subject_id = ?", userID, subjectID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}
