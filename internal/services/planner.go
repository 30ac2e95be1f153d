// Package services wires the planning engine to its repos and external
// collaborators behind one orchestration surface.
package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	plannerrepo "github.com/memoapp/planner-backend/internal/data/repos/planner"
	"github.com/memoapp/planner-backend/internal/pkg/apperr"
	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/planner/adaptation"
	"github.com/memoapp/planner-backend/internal/planner/allocator"
	"github.com/memoapp/planner-backend/internal/planner/availability"
	"github.com/memoapp/planner-backend/internal/planner/lifecycle"
	"github.com/memoapp/planner-backend/internal/planner/priority"
	"github.com/memoapp/planner-backend/internal/types"
)

const algorithmVersion = "v1"

// AcademicProfileProvider supplies subjects and the learner's context.
type AcademicProfileProvider interface {
	Subjects(ctx context.Context, userID uuid.UUID) ([]types.Subject, error)
	AcademicContext(ctx context.Context, userID uuid.UUID) (types.AcademicContext, error)
}

// ContentSuggestionProvider attaches content to sessions, best effort.
type ContentSuggestionProvider interface {
	SuggestContent(ctx context.Context, subjectID uuid.UUID, phase string) (*string, error)
}

// NotificationDispatcher delivers reminders and achievement signals.
// All calls are fire-and-forget; failures never abort planning.
type NotificationDispatcher interface {
	ScheduleReminder(ctx context.Context, session *types.PlannerStudySession) error
	EmitExcellence(ctx context.Context, userID, subjectID uuid.UUID) error
}

// PlannerService is the entry point the HTTP layer talks to.
type PlannerService struct {
	settings   plannerrepo.SettingsRepo
	priorities plannerrepo.PriorityRepo
	events     plannerrepo.AdaptationEventRepo

	priority     *priority.Service
	availability *availability.Model
	adaptation   *adaptation.Engine
	lifecycle    *lifecycle.Manager

	profile AcademicProfileProvider
	content ContentSuggestionProvider
	notify  NotificationDispatcher

	log *logger.Logger
	now func() time.Time
}

func NewPlannerService(
	settings plannerrepo.SettingsRepo,
	priorities plannerrepo.PriorityRepo,
	events plannerrepo.AdaptationEventRepo,
	prioritySvc *priority.Service,
	availabilityModel *availability.Model,
	adaptationEngine *adaptation.Engine,
	lifecycleManager *lifecycle.Manager,
	profile AcademicProfileProvider,
	content ContentSuggestionProvider,
	notify NotificationDispatcher,
	baseLog *logger.Logger,
) *PlannerService {
	return &PlannerService{
		settings:     settings,
		priorities:   priorities,
		events:       events,
		priority:     prioritySvc,
		availability: availabilityModel,
		adaptation:   adaptationEngine,
		lifecycle:    lifecycleManager,
		profile:      profile,
		content:      content,
		notify:       notify,
		log:          baseLog.With("service", "PlannerService"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// UpdateSettings validates and upserts the user's planner settings.
func (s *PlannerService) UpdateSettings(ctx context.Context, settings *types.PlannerSettings) (*types.PlannerSettings, error) {
	const op = "planner.update_settings"
	if settings == nil || settings.UserID == uuid.Nil {
		return nil, apperr.Validation(op, "settings with a user are required")
	}
	if err := settings.Validate(); err != nil {
		return nil, apperr.Validation(op, err.Error())
	}
	saved, err := s.settings.Upsert(ctx, nil, settings)
	if err != nil {
		return nil, apperr.MapError(op, err)
	}
	return saved, nil
}

// GenerateSchedule computes and persists a draft schedule for the range.
// The computation is serialized per user; zero free capacity yields a valid
// empty schedule.
func (s *PlannerService) GenerateSchedule(ctx context.Context, userID uuid.UUID, start, end time.Time, mode string) (*types.PlannerSchedule, error) {
	const op = "planner.generate"
	if end.Before(start) {
		return nil, apperr.Validation(op, "end date precedes start date")
	}
	if mode == "" {
		mode = "auto"
	}

	var schedule *types.PlannerSchedule
	err := s.lifecycle.WithUserLock(userID, func() error {
		settings, err := s.settings.GetByUserID(ctx, nil, userID)
		if err != nil {
			return apperr.New(apperr.CodeValidation, op, "planner settings missing or unreadable", err)
		}
		if err := settings.Validate(); err != nil {
			return apperr.Validation(op, err.Error())
		}

		rows, err := s.priority.Recompute(ctx, userID, settings)
		if err != nil {
			return err
		}
		subjects, err := s.profile.Subjects(ctx, userID)
		if err != nil {
			return apperr.New(apperr.CodeInternal, op, "load subjects", err)
		}
		subjectByID := make(map[uuid.UUID]types.Subject, len(subjects))
		for _, subj := range subjects {
			subjectByID[subj.ID] = subj
		}
		inputs := make([]allocator.SubjectInput, 0, len(rows))
		for _, row := range rows {
			subj, ok := subjectByID[row.SubjectID]
			if !ok {
				continue
			}
			inputs = append(inputs, allocator.SubjectInput{Subject: subj, Priority: *row})
		}

		days, err := s.availability.ComputeRange(ctx, settings, start, end)
		if err != nil {
			return apperr.Validation(op, err.Error())
		}

		result, err := allocator.Allocate(allocator.Input{
			UserID:   userID,
			Settings: settings,
			Days:     days,
			Subjects: inputs,
			Mode:     mode,
		})
		if err != nil {
			return err
		}

		s.attachContent(ctx, result.Sessions)

		covered, err := json.Marshal(result.SubjectsCovered)
		if err != nil {
			return apperr.New(apperr.CodeInternal, op, "marshal covered subjects", err)
		}
		draft := &types.PlannerSchedule{
			UserID:           userID,
			StartDate:        start,
			EndDate:          end,
			Mode:             mode,
			AlgorithmVersion: algorithmVersion,
			TotalStudyHours:  float64(result.TotalStudyMinutes) / 60,
			SubjectsCovered:  datatypes.JSON(covered),
			FeasibilityScore: result.FeasibilityScore,
		}
		for _, sess := range result.Sessions {
			draft.Sessions = append(draft.Sessions, *sess)
		}

		schedule, err = s.lifecycle.SaveDraft(ctx, draft)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("schedule generated",
		"user_id", userID, "schedule_id", schedule.ID,
		"sessions", len(schedule.Sessions), "feasibility", schedule.FeasibilityScore)
	return schedule, nil
}

// ActivateSchedule flips the schedule to active and schedules reminders.
func (s *PlannerService) ActivateSchedule(ctx context.Context, userID, scheduleID uuid.UUID) (*types.PlannerSchedule, error) {
	activated, err := s.lifecycle.Activate(ctx, userID, scheduleID)
	if err != nil {
		return nil, err
	}
	go s.sendReminders(activated)
	return activated, nil
}

func (s *PlannerService) DeleteSchedule(ctx context.Context, userID, scheduleID uuid.UUID) error {
	return s.lifecycle.Delete(ctx, userID, scheduleID)
}

func (s *PlannerService) GetActiveSchedule(ctx context.Context, userID uuid.UUID) (*types.PlannerSchedule, error) {
	return s.lifecycle.GetActive(ctx, userID)
}

// RecordExamResult runs the exam adaptation and emits the excellence signal
// when earned.
func (s *PlannerService) RecordExamResult(ctx context.Context, userID, subjectID uuid.UUID, score float64) (*adaptation.Outcome, error) {
	outcome, err := s.adaptation.ApplyExamResult(ctx, userID, subjectID, score)
	if err != nil {
		return nil, err
	}
	if outcome.Excellence && s.notify != nil {
		go func() {
			if err := s.notify.EmitExcellence(context.Background(), userID, subjectID); err != nil {
				s.log.Warn("excellence signal failed", "user_id", userID, "error", err)
			}
		}()
	}
	return outcome, nil
}

// RecordTopicTestResult runs the topic-test adaptation. Language subjects
// use the tighter memorization review ladder.
func (s *PlannerService) RecordTopicTestResult(ctx context.Context, userID, sessionID uuid.UUID, score float64) (*adaptation.Outcome, error) {
	memorization := false
	origin, err := s.lifecycle.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if origin.SubjectID != nil {
		subjects, err := s.profile.Subjects(ctx, userID)
		if err != nil {
			return nil, apperr.New(apperr.CodeInternal, "planner.topic_test", "load subjects", err)
		}
		for _, subj := range subjects {
			if subj.ID == *origin.SubjectID && subj.IsLanguage {
				memorization = true
			}
		}
	}
	return s.adaptation.ApplyTopicTestResult(ctx, userID, sessionID, score, memorization)
}

// MarkSession applies a session transition; a transition into missed also
// runs the missed-pattern check.
func (s *PlannerService) MarkSession(ctx context.Context, userID, sessionID uuid.UUID, toStatus string, outcome lifecycle.SessionOutcome) (*types.PlannerStudySession, error) {
	session, err := s.lifecycle.TransitionSession(ctx, userID, sessionID, toStatus, outcome)
	if err != nil {
		return nil, err
	}
	if toStatus == types.SessionStatusMissed || toStatus == types.SessionStatusSkipped {
		if _, err := s.adaptation.CheckMissedPattern(ctx, userID); err != nil {
			s.log.Warn("missed-pattern check failed", "user_id", userID, "error", err)
		}
	}
	return session, nil
}

// RunMissedSessionCheck sweeps overdue sessions to missed and evaluates the
// missed pattern once.
func (s *PlannerService) RunMissedSessionCheck(ctx context.Context, userID uuid.UUID) (*adaptation.Outcome, error) {
	if _, err := s.lifecycle.MarkOverdueSessions(ctx, userID); err != nil {
		return nil, err
	}
	return s.adaptation.CheckMissedPattern(ctx, userID)
}

// RecomputePriorities runs a manual adaptation: full recompute, plus a
// schedule regeneration when the accumulated drift warrants it.
func (s *PlannerService) RecomputePriorities(ctx context.Context, userID uuid.UUID) (*adaptation.Outcome, error) {
	outcome, err := s.adaptation.ApplyManual(ctx, userID)
	if err != nil {
		return nil, err
	}
	if outcome.NeedsRegeneration {
		if err := s.regenerateFromNow(ctx, userID); err != nil {
			s.log.Warn("drift regeneration failed", "user_id", userID, "error", err)
		}
	}
	return outcome, nil
}

// regenerateFromNow rebuilds and activates the schedule from today to the
// active schedule's end date. Completed sessions stay on the old schedule
// as historical fact.
func (s *PlannerService) regenerateFromNow(ctx context.Context, userID uuid.UUID) error {
	active, err := s.lifecycle.GetActive(ctx, userID)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil
		}
		return err
	}
	today := s.now().Truncate(24 * time.Hour)
	if active.EndDate.Before(today) {
		return nil
	}
	draft, err := s.GenerateSchedule(ctx, userID, today, active.EndDate, active.Mode)
	if err != nil {
		return err
	}
	_, err = s.lifecycle.Activate(ctx, userID, draft.ID)
	return err
}

// GetPriorities returns the cached priority rows, highest total first.
func (s *PlannerService) GetPriorities(ctx context.Context, userID uuid.UUID) ([]*types.SubjectPriority, error) {
	rows, err := s.priorities.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, apperr.MapError("planner.get_priorities", err)
	}
	return rows, nil
}

// ListAdaptationEvents returns the most recent adaptation audit entries.
func (s *PlannerService) ListAdaptationEvents(ctx context.Context, userID uuid.UUID, limit int) ([]*types.AdaptationEvent, error) {
	events, err := s.events.ListByUserID(ctx, nil, userID, limit)
	if err != nil {
		return nil, apperr.MapError("planner.list_events", err)
	}
	return events, nil
}

// attachContent asks the content provider for a suggestion per study
// session. Failures degrade to sessions without content.
func (s *PlannerService) attachContent(ctx context.Context, sessions []*types.PlannerStudySession) {
	if s.content == nil {
		return
	}
	for _, sess := range sessions {
		if sess.SubjectID == nil || sess.IsBreak() {
			continue
		}
		phase := phaseForKind(sess.Kind)
		ref, err := s.content.SuggestContent(ctx, *sess.SubjectID, phase)
		if err != nil {
			s.log.Debug("content suggestion unavailable", "kind", sess.Kind, "error", err)
			continue
		}
		if ref != nil {
			sess.ContentRef = ref
			sess.ContentPhase = phase
		}
	}
}

func phaseForKind(kind string) string {
	switch kind {
	case types.SessionKindPractice, types.SessionKindTopicTest, types.SessionKindTest:
		return types.ContentPhasePractice
	case types.SessionKindRevision, types.SessionKindLongRevision, types.SessionKindSpacedReview:
		return types.ContentPhaseReview
	default:
		return types.ContentPhaseIntro
	}
}

// sendReminders dispatches one reminder per upcoming session.
func (s *PlannerService) sendReminders(schedule *types.PlannerSchedule) {
	if s.notify == nil || schedule == nil {
		return
	}
	ctx := context.Background()
	for i := range schedule.Sessions {
		sess := &schedule.Sessions[i]
		if sess.IsBreak() {
			continue
		}
		if err := s.notify.ScheduleReminder(ctx, sess); err != nil {
			s.log.Warn("reminder dispatch failed", "schedule_id", schedule.ID, "error", err)
			return
		}
	}
}
