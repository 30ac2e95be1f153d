package adaptation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/data/aggregates"
	plannerrepo "github.com/memoapp/planner-backend/internal/data/repos/planner"
	"github.com/memoapp/planner-backend/internal/pkg/apperr"
	"github.com/memoapp/planner-backend/internal/pkg/dbctx"
	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

// Recomputer recalculates and caches all subject priorities for a user.
type Recomputer interface {
	Recompute(ctx context.Context, userID uuid.UUID, settings *types.PlannerSettings) ([]*types.SubjectPriority, error)
}

// Outcome is the audited result of one adaptation run.
type Outcome struct {
	Trigger           string
	PriorityDelta     float64
	Changes           []string
	CreatedSessions   []*types.PlannerStudySession
	Excellence        bool
	NeedsRegeneration bool
}

// Engine applies adaptation rules. Every run is transactional: either all
// priority and schedule mutations land together with their audit event, or
// none do.
type Engine struct {
	settings   plannerrepo.SettingsRepo
	schedules  plannerrepo.ScheduleRepo
	sessions   plannerrepo.SessionRepo
	priorities plannerrepo.PriorityRepo
	events     plannerrepo.AdaptationEventRepo
	tx         aggregates.TxRunner
	recompute  Recomputer
	log        *logger.Logger
	now        func() time.Time
}

func NewEngine(
	settings plannerrepo.SettingsRepo,
	schedules plannerrepo.ScheduleRepo,
	sessions plannerrepo.SessionRepo,
	priorities plannerrepo.PriorityRepo,
	events plannerrepo.AdaptationEventRepo,
	tx aggregates.TxRunner,
	recompute Recomputer,
	baseLog *logger.Logger,
) *Engine {
	return &Engine{
		settings:   settings,
		schedules:  schedules,
		sessions:   sessions,
		priorities: priorities,
		events:     events,
		tx:         tx,
		recompute:  recompute,
		log:        baseLog.With("service", "AdaptationEngine"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ApplyExamResult adjusts the subject's priority and inserts follow-up
// revision sessions according to the score bracket.
func (e *Engine) ApplyExamResult(ctx context.Context, userID, subjectID uuid.UUID, score float64) (*Outcome, error) {
	const op = "adaptation.exam_result"
	if err := ValidateScore(score); err != nil {
		return nil, apperr.Validation(op, err.Error())
	}
	rule := ExamRuleFor(score)

	outcome := &Outcome{
		Trigger:       types.AdaptationTriggerExamResult,
		PriorityDelta: rule.PriorityDelta,
		Changes:       []string{rule.Description},
		Excellence:    score >= ExcellenceScore,
	}

	err := e.tx.InTx(ctx, func(dbc dbctx.Context) error {
		if err := e.adjustPriority(dbc, userID, subjectID, rule.PriorityDelta); err != nil {
			return err
		}
		if rule.ExtraSessionsPerWeek > 0 {
			settings, err := e.settings.GetByUserID(dbc.Ctx, dbc.Tx, userID)
			if err != nil {
				return apperr.MapError(op, err)
			}
			active, err := e.schedules.GetActiveByUserID(dbc.Ctx, dbc.Tx, userID)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				outcome.Changes = append(outcome.Changes, "no active schedule, revision sessions not placed")
			case err != nil:
				return apperr.MapError(op, err)
			default:
				duration := 45
				if rule.ShorterSessions {
					duration = 30
				}
				created, err := e.placeFollowUps(dbc, settings, active.ID, userID, followUpSpec{
					subjectID: subjectID,
					kind:      types.SessionKindRevision,
					count:     rule.ExtraSessionsPerWeek,
					duration:  duration,
				})
				if err != nil {
					return err
				}
				outcome.CreatedSessions = created
				for _, sess := range created {
					outcome.Changes = append(outcome.Changes,
						fmt.Sprintf("revision session added on %s", sess.StartsAt.Format("2006-01-02")))
				}
			}
		}
		return e.writeEvent(dbc, userID, &subjectID, outcome)
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("exam result adapted", "user_id", userID, "score", score, "delta", rule.PriorityDelta)
	return outcome, nil
}

// ApplyTopicTestResult inserts the structural follow-ups of a topic-test
// bracket: practice, retest, spaced reviews. memorization selects the
// tighter review ladder.
func (e *Engine) ApplyTopicTestResult(ctx context.Context, userID, sessionID uuid.UUID, score float64, memorization bool) (*Outcome, error) {
	const op = "adaptation.topic_test"
	if err := ValidateScore(score); err != nil {
		return nil, apperr.Validation(op, err.Error())
	}

	origin, err := e.sessions.GetByID(ctx, nil, sessionID)
	if err != nil {
		return nil, apperr.MapError(op, err)
	}
	if origin.UserID != userID {
		return nil, apperr.New(apperr.CodeNotFound, op, "session does not belong to user", nil)
	}
	if origin.Kind != types.SessionKindTopicTest && origin.Kind != types.SessionKindTest {
		return nil, apperr.Validation(op, "session is not a topic test")
	}
	if origin.SubjectID == nil {
		return nil, apperr.Validation(op, "topic test carries no subject")
	}
	subjectID := *origin.SubjectID
	rule := TopicTestRuleFor(score)

	outcome := &Outcome{
		Trigger: types.AdaptationTriggerTopicTest,
		Changes: []string{rule.Description},
	}

	err = e.tx.InTx(ctx, func(dbc dbctx.Context) error {
		var planned []*types.PlannerStudySession
		base := origin.StartsAt

		for i := 0; i < rule.PracticeSessions; i++ {
			planned = append(planned, followUpSession(origin, subjectID,
				types.SessionKindPractice, base.AddDate(0, 0, 1+i), 45, false))
		}
		if rule.RetestAfterDays > 0 {
			retest := followUpSession(origin, subjectID,
				types.SessionKindTopicTest, base.AddDate(0, 0, rule.RetestAfterDays), origin.DurationMinutes, false)
			retest.OriginTopicTestID = &origin.ID
			planned = append(planned, retest)
		}
		if rule.NextDayReview {
			planned = append(planned, followUpSession(origin, subjectID,
				types.SessionKindSpacedReview, base.AddDate(0, 0, 1), 30, true))
		}
		if rule.ReviewAfterDays > 0 {
			planned = append(planned, followUpSession(origin, subjectID,
				types.SessionKindSpacedReview, base.AddDate(0, 0, rule.ReviewAfterDays), 30, true))
		}
		if rule.SeedSpacedReviews {
			for _, days := range SpacedReviewIntervals(memorization) {
				planned = append(planned, followUpSession(origin, subjectID,
					types.SessionKindSpacedReview, base.AddDate(0, 0, days), 30, true))
			}
		}

		settings, err := e.settings.GetByUserID(dbc.Ctx, dbc.Tx, userID)
		if err != nil {
			return apperr.MapError(op, err)
		}
		if err := e.deconflictFollowUps(dbc, userID, settings, planned); err != nil {
			return err
		}

		if _, err := e.sessions.CreateBatch(dbc.Ctx, dbc.Tx, planned); err != nil {
			return apperr.MapError(op, err)
		}
		outcome.CreatedSessions = planned
		for _, sess := range planned {
			outcome.Changes = append(outcome.Changes,
				fmt.Sprintf("%s session added on %s", sess.Kind, sess.StartsAt.Format("2006-01-02")))
		}
		return e.writeEvent(dbc, userID, &subjectID, outcome)
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("topic test adapted", "user_id", userID, "score", score, "sessions", len(outcome.CreatedSessions))
	return outcome, nil
}

// CheckMissedPattern looks for subjects with repeated misses in the trailing
// window. Returns nil when no subject trips the threshold.
func (e *Engine) CheckMissedPattern(ctx context.Context, userID uuid.UUID) (*Outcome, error) {
	const op = "adaptation.missed_pattern"

	since := e.now().AddDate(0, 0, -MissedPatternWindowDays)
	missed, err := e.sessions.ListMissedSince(ctx, nil, userID, since)
	if err != nil {
		return nil, apperr.MapError(op, err)
	}

	perSubject := make(map[uuid.UUID][]*types.PlannerStudySession)
	for _, sess := range missed {
		if sess.SubjectID != nil {
			perSubject[*sess.SubjectID] = append(perSubject[*sess.SubjectID], sess)
		}
	}
	var tripped []*types.PlannerStudySession
	trippedSubjects := 0
	for _, sessions := range perSubject {
		if len(sessions) >= MissedPatternThreshold {
			trippedSubjects++
			tripped = append(tripped, sessions...)
		}
	}
	if trippedSubjects == 0 {
		return nil, nil
	}

	settings, err := e.settings.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, apperr.MapError(op, err)
	}

	outcome := &Outcome{
		Trigger: types.AdaptationTriggerMissedPattern,
		Changes: []string{fmt.Sprintf("%d subject(s) with repeated missed sessions, priorities recomputed", trippedSubjects)},
	}

	if _, err := e.recompute.Recompute(ctx, userID, settings); err != nil {
		return nil, err
	}

	err = e.tx.InTx(ctx, func(dbc dbctx.Context) error {
		if settings.AutoRescheduleMissed {
			active, err := e.schedules.GetActiveByUserID(dbc.Ctx, dbc.Tx, userID)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				outcome.Changes = append(outcome.Changes, "no active schedule, missed sessions not rescheduled")
			case err != nil:
				return apperr.MapError(op, err)
			default:
				for _, sess := range tripped {
					created, err := e.placeFollowUps(dbc, settings, active.ID, userID, followUpSpec{
						subjectID:      *sess.SubjectID,
						kind:           sess.Kind,
						count:          1,
						duration:       sess.DurationMinutes,
						requiredEnergy: sess.RequiredEnergy,
					})
					if err != nil {
						return err
					}
					outcome.CreatedSessions = append(outcome.CreatedSessions, created...)
				}
				outcome.Changes = append(outcome.Changes,
					fmt.Sprintf("%d missed session(s) rescheduled", len(outcome.CreatedSessions)))
			}
		}
		return e.writeEvent(dbc, userID, nil, outcome)
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// ApplyManual recomputes all priorities and reports whether accumulated
// drift warrants regenerating the schedule.
func (e *Engine) ApplyManual(ctx context.Context, userID uuid.UUID) (*Outcome, error) {
	const op = "adaptation.manual"

	settings, err := e.settings.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, apperr.MapError(op, err)
	}
	before, err := e.priorities.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, apperr.MapError(op, err)
	}
	oldTotals := make(map[uuid.UUID]float64, len(before))
	for _, p := range before {
		oldTotals[p.SubjectID] = p.TotalScore
	}

	after, err := e.recompute.Recompute(ctx, userID, settings)
	if err != nil {
		return nil, err
	}

	drift := meanAbsoluteDrift(oldTotals, after)
	outcome := &Outcome{
		Trigger:           types.AdaptationTriggerManual,
		PriorityDelta:     drift,
		Changes:           []string{fmt.Sprintf("priorities recomputed, mean drift %.1f", drift)},
		NeedsRegeneration: drift > DriftRegenerateThreshold,
	}
	if outcome.NeedsRegeneration {
		outcome.Changes = append(outcome.Changes, "drift exceeds threshold, schedule regeneration required")
	}

	err = e.tx.InTx(ctx, func(dbc dbctx.Context) error {
		return e.writeEvent(dbc, userID, nil, outcome)
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func meanAbsoluteDrift(oldTotals map[uuid.UUID]float64, after []*types.SubjectPriority) float64 {
	sum, n := 0.0, 0
	for _, p := range after {
		old, ok := oldTotals[p.SubjectID]
		if !ok {
			continue
		}
		sum += math.Abs(p.TotalScore - old)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// adjustPriority shifts the cached total score, clamped to [0,100].
// A subject without a cache row starts from the neutral midpoint.
func (e *Engine) adjustPriority(dbc dbctx.Context, userID, subjectID uuid.UUID, delta float64) error {
	const op = "adaptation.adjust_priority"

	row, err := e.priorities.GetByUserSubject(dbc.Ctx, dbc.Tx, userID, subjectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = &types.SubjectPriority{UserID: userID, SubjectID: subjectID, TotalScore: 50}
	} else if err != nil {
		return apperr.MapError(op, err)
	}

	row.TotalScore += delta
	if row.TotalScore < 0 {
		row.TotalScore = 0
	}
	if row.TotalScore > 100 {
		row.TotalScore = 100
	}
	row.CalculatedAt = e.now()

	if _, err := e.priorities.Upsert(dbc.Ctx, dbc.Tx, row); err != nil {
		return apperr.MapError(op, err)
	}
	return nil
}

type followUpSpec struct {
	subjectID      uuid.UUID
	kind           string
	count          int
	duration       int
	requiredEnergy int
}

// placeFollowUps inserts sessions into the coming week, one per day, behind
// each day's last planned session and inside the study window. Days whose
// window cannot fit the session, or whose slot energy falls short, are
// skipped.
func (e *Engine) placeFollowUps(
	dbc dbctx.Context,
	settings *types.PlannerSettings,
	scheduleID uuid.UUID,
	userID uuid.UUID,
	spec followUpSpec,
) ([]*types.PlannerStudySession, error) {
	const op = "adaptation.place_follow_ups"

	windowStart, err := types.ParseClock(settings.StudyStartTime)
	if err != nil {
		return nil, apperr.Validation(op, err.Error())
	}
	windowEnd, err := types.ParseClock(settings.StudyEndTime)
	if err != nil {
		return nil, apperr.Validation(op, err.Error())
	}

	now := e.now()
	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	existing, err := e.sessions.ListScheduledInRange(dbc.Ctx, dbc.Tx, userID,
		tomorrow, tomorrow.AddDate(0, 0, MissedPatternWindowDays))
	if err != nil {
		return nil, apperr.MapError(op, err)
	}

	lastEndByDay := make(map[string]time.Time)
	for _, sess := range existing {
		key := sess.StartsAt.Format("2006-01-02")
		if sess.EndsAt.After(lastEndByDay[key]) {
			lastEndByDay[key] = sess.EndsAt
		}
	}

	var created []*types.PlannerStudySession
	for dayOffset := 0; dayOffset < MissedPatternWindowDays && len(created) < spec.count; dayOffset++ {
		day := tomorrow.AddDate(0, 0, dayOffset)
		start := day.Add(time.Duration(windowStart) * time.Minute)
		if last, ok := lastEndByDay[day.Format("2006-01-02")]; ok {
			start = last.Add(time.Duration(settings.MinBreakBetweenSessions) * time.Minute)
		}
		end := start.Add(time.Duration(spec.duration) * time.Minute)
		if end.After(day.Add(time.Duration(windowEnd) * time.Minute)) {
			continue
		}
		if spec.requiredEnergy > 0 && settings.EnergyLevelForHour(start.Hour()) < spec.requiredEnergy {
			continue
		}

		sess := &types.PlannerStudySession{
			ScheduleID:      scheduleID,
			UserID:          userID,
			SubjectID:       &spec.subjectID,
			StartsAt:        start,
			EndsAt:          end,
			DurationMinutes: spec.duration,
			Kind:            spec.kind,
			RequiredEnergy:  max(spec.requiredEnergy, 4),
			Status:          types.SessionStatusScheduled,
		}
		created = append(created, sess)
		lastEndByDay[day.Format("2006-01-02")] = end
	}

	if _, err := e.sessions.CreateBatch(dbc.Ctx, dbc.Tx, created); err != nil {
		return nil, apperr.MapError(op, err)
	}
	return created, nil
}

// deconflictFollowUps shifts follow-ups that land on top of already
// scheduled sessions. A colliding follow-up keeps its day and moves behind
// the session it hit plus the configured break; follow-ups also yield to
// one another in insertion order.
func (e *Engine) deconflictFollowUps(
	dbc dbctx.Context,
	userID uuid.UUID,
	settings *types.PlannerSettings,
	planned []*types.PlannerStudySession,
) error {
	const op = "adaptation.deconflict_follow_ups"
	if len(planned) == 0 {
		return nil
	}

	from, to := planned[0].StartsAt, planned[0].EndsAt
	for _, sess := range planned {
		if sess.StartsAt.Before(from) {
			from = sess.StartsAt
		}
		if sess.EndsAt.After(to) {
			to = sess.EndsAt
		}
	}
	existing, err := e.sessions.ListScheduledInRange(dbc.Ctx, dbc.Tx, userID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return apperr.MapError(op, err)
	}

	gap := time.Duration(settings.MinBreakBetweenSessions) * time.Minute
	for _, sess := range planned {
		for moved := true; moved; {
			moved = false
			for _, other := range existing {
				if sess.StartsAt.Before(other.EndsAt) && sess.EndsAt.After(other.StartsAt) {
					sess.StartsAt = other.EndsAt.Add(gap)
					sess.EndsAt = sess.StartsAt.Add(time.Duration(sess.DurationMinutes) * time.Minute)
					moved = true
				}
			}
		}
		existing = append(existing, sess)
	}
	return nil
}

// followUpSession clones schedule and window placement from the origin
// session at a later date.
func followUpSession(origin *types.PlannerStudySession, subjectID uuid.UUID, kind string, startsAt time.Time, duration int, spacedReview bool) *types.PlannerStudySession {
	return &types.PlannerStudySession{
		ScheduleID:      origin.ScheduleID,
		UserID:          origin.UserID,
		SubjectID:       &subjectID,
		StartsAt:        startsAt,
		EndsAt:          startsAt.Add(time.Duration(duration) * time.Minute),
		DurationMinutes: duration,
		Kind:            kind,
		RequiredEnergy:  origin.RequiredEnergy,
		IsSpacedReview:  spacedReview,
		Status:          types.SessionStatusScheduled,
	}
}

func (e *Engine) writeEvent(dbc dbctx.Context, userID uuid.UUID, subjectID *uuid.UUID, outcome *Outcome) error {
	const op = "adaptation.write_event"

	changes, err := json.Marshal(outcome.Changes)
	if err != nil {
		return apperr.New(apperr.CodeInternal, op, "marshal change list", err)
	}
	_, err = e.events.Create(dbc.Ctx, dbc.Tx, &types.AdaptationEvent{
		UserID:        userID,
		SubjectID:     subjectID,
		Trigger:       outcome.Trigger,
		PriorityDelta: outcome.PriorityDelta,
		Changes:       changes,
	})
	if err != nil {
		return apperr.MapError(op, err)
	}
	return nil
}
