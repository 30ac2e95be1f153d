package priority

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	plannerrepo "github.com/memoapp/planner-backend/internal/data/repos/planner"
	"github.com/memoapp/planner-backend/internal/pkg/apperr"
	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

// AcademicProfileProvider supplies the subjects a user studies.
type AcademicProfileProvider interface {
	Subjects(ctx context.Context, userID uuid.UUID) ([]types.Subject, error)
}

// PerformanceProvider supplies per-subject average and target scores on a
// 0-100 scale. Subjects without results or without a goal are absent from
// the respective map.
type PerformanceProvider interface {
	AverageScores(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]float64, error)
	TargetScores(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]float64, error)
}

const recomputeConcurrency = 8

// Service recomputes and caches subject priorities.
type Service struct {
	subjects    AcademicProfileProvider
	performance PerformanceProvider
	priorities  plannerrepo.PriorityRepo
	sessions    plannerrepo.SessionRepo
	log         *logger.Logger
	now         func() time.Time
}

func NewService(
	subjects AcademicProfileProvider,
	performance PerformanceProvider,
	priorities plannerrepo.PriorityRepo,
	sessions plannerrepo.SessionRepo,
	baseLog *logger.Logger,
) *Service {
	return &Service{
		subjects:    subjects,
		performance: performance,
		priorities:  priorities,
		sessions:    sessions,
		log:         baseLog.With("service", "PriorityService"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Recompute rescores every subject of the user and upserts the cache rows.
// Subjects are scored concurrently; each row is last-writer-wins, and the
// scoring is pure, so concurrent recomputations converge on the same values.
func (s *Service) Recompute(ctx context.Context, userID uuid.UUID, settings *types.PlannerSettings) ([]*types.SubjectPriority, error) {
	const op = "priority.recompute"

	subjects, err := s.subjects.Subjects(ctx, userID)
	if err != nil {
		return nil, apperr.New(apperr.CodeInternal, op, "load subjects", err)
	}
	if len(subjects) == 0 {
		return nil, nil
	}

	averages, err := s.performance.AverageScores(ctx, userID)
	if err != nil {
		return nil, apperr.New(apperr.CodeInternal, op, "load performance averages", err)
	}
	targets, err := s.performance.TargetScores(ctx, userID)
	if err != nil {
		return nil, apperr.New(apperr.CodeInternal, op, "load target scores", err)
	}
	lastStudied, err := s.sessions.LastCompletedBySubject(ctx, nil, userID)
	if err != nil {
		return nil, apperr.MapError(op, err)
	}

	weights := WeightsFromSettings(settings)
	now := s.now()

	results := make([]*types.SubjectPriority, len(subjects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recomputeConcurrency)
	for i, subject := range subjects {
		g.Go(func() error {
			var last *time.Time
			if t, ok := lastStudied[subject.ID]; ok {
				last = &t
			}
			var avg *float64
			if a, ok := averages[subject.ID]; ok {
				avg = &a
			}
			var target *float64
			if t, ok := targets[subject.ID]; ok {
				target = &t
			}

			components := ScoreSubject(subject, last, avg, target, now)
			row := &types.SubjectPriority{
				UserID:              userID,
				SubjectID:           subject.ID,
				CoefficientScore:    components.Coefficient,
				ExamProximityScore:  components.ExamProximity,
				DifficultyScore:     components.Difficulty,
				InactivityScore:     components.Inactivity,
				PerformanceGapScore: components.PerformanceGap,
				TotalScore:          components.Total(weights),
				CalculatedAt:        now,
			}
			if _, err := s.priorities.Upsert(gctx, nil, row); err != nil {
				return apperr.MapError(op, err)
			}
			results[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Info("priorities recomputed", "user_id", userID, "subjects", len(subjects))
	return results, nil
}
