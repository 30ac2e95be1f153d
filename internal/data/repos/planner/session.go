package planner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

type SessionRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, sessions []*types.PlannerStudySession) ([]*types.PlannerStudySession, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PlannerStudySession, error)
	ListByScheduleID(ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID) ([]*types.PlannerStudySession, error)
	ListScheduledInRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.PlannerStudySession, error)
	ListMissedSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.PlannerStudySession, error)
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	LastCompletedBySubject(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[uuid.UUID]time.Time, error)
	MarkOverdueMissed(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cutoff time.Time) (int64, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (r *sessionRepo) CreateBatch(ctx context.Context, tx *gorm.DB, sessions []*types.PlannerStudySession) ([]*types.PlannerStudySession, error) {
	if len(sessions) == 0 {
		return sessions, nil
	}
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).CreateInBatches(sessions, 200).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PlannerStudySession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.PlannerStudySession
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *sessionRepo) ListByScheduleID(ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID) ([]*types.PlannerStudySession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.PlannerStudySession
	if err := transaction.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("starts_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListScheduledInRange returns still-pending sessions overlapping [from, to).
func (r *sessionRepo) ListScheduledInRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.PlannerStudySession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.PlannerStudySession
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND status = ? AND starts_at < ? AND ends_at > ?",
			userID, types.SessionStatusScheduled, to, from).
		Order("starts_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *sessionRepo) ListMissedSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.PlannerStudySession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.PlannerStudySession
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND status = ? AND ends_at >= ?",
			userID, types.SessionStatusMissed, since).
		Order("ends_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *sessionRepo) Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.PlannerStudySession{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// LastCompletedBySubject returns, per subject, the end time of the most
// recently completed session. Subjects never studied are absent from the map.
func (r *sessionRepo) LastCompletedBySubject(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[uuid.UUID]time.Time, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rows []struct {
		SubjectID uuid.UUID
		LastEnd   time.Time
	}
	if err := transaction.WithContext(ctx).
		Model(&types.PlannerStudySession{}).
		Select("subject_id, MAX(ends_at) AS last_end").
		Where("user_id = ? AND status = ? AND subject_id IS NOT NULL",
			userID, types.SessionStatusCompleted).
		Group("subject_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]time.Time, len(rows))
	for _, row := range rows {
		out[row.SubjectID] = row.LastEnd
	}
	return out, nil
}

// MarkOverdueMissed flips scheduled sessions whose end time is already in
// the past to missed. Break blocks are left alone, nobody misses a break.
func (r *sessionRepo) MarkOverdueMissed(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cutoff time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.PlannerStudySession{}).
		Where("user_id = ? AND status = ? AND ends_at < ? AND kind <> ?",
			userID, types.SessionStatusScheduled, cutoff, types.SessionKindBreak).
		Updates(map[string]any{
			"status":     types.SessionStatusMissed,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
