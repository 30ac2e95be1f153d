// Package lifecycle owns schedule and session state: drafts, the
// exactly-one-active invariant, deletion rules and the session state
// machine.
package lifecycle

import (
	"context"
	"errors"
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

type Manager struct {
	schedules plannerrepo.ScheduleRepo
	sessions  plannerrepo.SessionRepo
	tx        aggregates.TxRunner
	guard     aggregates.Guard
	locks     *userLocks
	log       *logger.Logger
	now       func() time.Time
}

func NewManager(
	schedules plannerrepo.ScheduleRepo,
	sessions plannerrepo.SessionRepo,
	tx aggregates.TxRunner,
	guard aggregates.Guard,
	baseLog *logger.Logger,
) *Manager {
	return &Manager{
		schedules: schedules,
		sessions:  sessions,
		tx:        tx,
		guard:     guard,
		locks:     newUserLocks(),
		log:       baseLog.With("service", "LifecycleManager"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithUserLock runs fn while holding the user's serialization lock. The
// schedule-generation path wraps its compute-and-persist in this.
func (m *Manager) WithUserLock(userID uuid.UUID, fn func() error) error {
	unlock := m.locks.Lock(userID)
	defer unlock()
	return fn()
}

// SaveDraft persists a freshly computed schedule as a draft. Any earlier
// draft of the user is superseded and soft-deleted in the same transaction.
func (m *Manager) SaveDraft(ctx context.Context, schedule *types.PlannerSchedule) (*types.PlannerSchedule, error) {
	const op = "lifecycle.save_draft"
	if schedule == nil || schedule.UserID == uuid.Nil {
		return nil, apperr.Validation(op, "schedule with a user is required")
	}
	schedule.Status = types.ScheduleStatusDraft
	schedule.GeneratedAt = m.now()

	err := m.tx.InTx(ctx, func(dbc dbctx.Context) error {
		existing, err := m.schedules.ListByUserID(dbc.Ctx, dbc.Tx, schedule.UserID)
		if err != nil {
			return apperr.MapError(op, err)
		}
		for _, prior := range existing {
			if prior.Status == types.ScheduleStatusDraft {
				if err := m.schedules.SoftDelete(dbc.Ctx, dbc.Tx, prior.ID); err != nil {
					return apperr.MapError(op, err)
				}
			}
		}
		if _, err := m.schedules.Create(dbc.Ctx, dbc.Tx, schedule); err != nil {
			return apperr.MapError(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info("draft schedule saved",
		"user_id", schedule.UserID, "schedule_id", schedule.ID, "sessions", len(schedule.Sessions))
	return schedule, nil
}

// Activate makes the schedule the user's single active one. The previous
// active schedule is deactivated in the same transaction, and the final
// flip is a compare-and-set so racing activations cannot both win.
func (m *Manager) Activate(ctx context.Context, userID, scheduleID uuid.UUID) (*types.PlannerSchedule, error) {
	const op = "lifecycle.activate"

	var activated *types.PlannerSchedule
	err := m.WithUserLock(userID, func() error {
		return m.tx.InTx(ctx, func(dbc dbctx.Context) error {
			schedule, err := m.schedules.GetByID(dbc.Ctx, dbc.Tx, scheduleID)
			if err != nil {
				return apperr.MapError(op, err)
			}
			if schedule.UserID != userID {
				return apperr.New(apperr.CodeNotFound, op, "schedule does not belong to user", nil)
			}
			if err := aggregates.RequireStatusAllowed(op, schedule.Status,
				types.ScheduleStatusDraft, types.ScheduleStatusInactive); err != nil {
				return err
			}

			if _, err := m.schedules.DeactivateActiveForUser(dbc.Ctx, dbc.Tx, userID, scheduleID); err != nil {
				return apperr.MapError(op, err)
			}

			ok, err := m.guard.UpdateByStatus(dbc, schedule.TableName(), scheduleID,
				[]string{types.ScheduleStatusDraft, types.ScheduleStatusInactive},
				map[string]any{"status": types.ScheduleStatusActive, "updated_at": m.now()})
			if err != nil {
				return apperr.MapError(op, err)
			}
			if err := aggregates.RequireCASSuccess(ok, op, "schedule was changed concurrently"); err != nil {
				return err
			}

			schedule.Status = types.ScheduleStatusActive
			activated = schedule
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	m.log.Info("schedule activated", "user_id", userID, "schedule_id", scheduleID)
	return activated, nil
}

// Delete soft-deletes a schedule. The active schedule is protected; it must
// be superseded by activating another one first.
func (m *Manager) Delete(ctx context.Context, userID, scheduleID uuid.UUID) error {
	const op = "lifecycle.delete"

	return m.tx.InTx(ctx, func(dbc dbctx.Context) error {
		schedule, err := m.schedules.GetByID(dbc.Ctx, dbc.Tx, scheduleID)
		if err != nil {
			return apperr.MapError(op, err)
		}
		if schedule.UserID != userID {
			return apperr.New(apperr.CodeNotFound, op, "schedule does not belong to user", nil)
		}
		if schedule.Status == types.ScheduleStatusActive {
			return apperr.Conflict(op, "cannot delete the active schedule")
		}
		if err := m.schedules.SoftDelete(dbc.Ctx, dbc.Tx, scheduleID); err != nil {
			return apperr.MapError(op, err)
		}
		return nil
	})
}

// GetActive returns the user's active schedule with its sessions, or a
// not_found error when none is active.
func (m *Manager) GetActive(ctx context.Context, userID uuid.UUID) (*types.PlannerSchedule, error) {
	const op = "lifecycle.get_active"

	active, err := m.schedules.GetActiveByUserID(ctx, nil, userID)
	if err != nil {
		return nil, apperr.MapError(op, err)
	}
	full, err := m.schedules.GetByIDWithSessions(ctx, nil, active.ID)
	if err != nil {
		return nil, apperr.MapError(op, err)
	}
	return full, nil
}

// GetSession returns one of the user's sessions without transitioning it.
func (m *Manager) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*types.PlannerStudySession, error) {
	const op = "lifecycle.get_session"

	session, err := m.sessions.GetByID(ctx, nil, sessionID)
	if err != nil {
		return nil, apperr.MapError(op, err)
	}
	if session.UserID != userID {
		return nil, apperr.New(apperr.CodeNotFound, op, "session does not belong to user", nil)
	}
	return session, nil
}

// SessionOutcome carries the completion fields recorded with a transition.
type SessionOutcome struct {
	CompletionPercent *int
	Mood              *string
	Score             *float64
	Notes             *string
	SkipReason        *string
}

// TransitionSession moves a session through its state machine. Outcome
// fields are written once, on entering a terminal state, and are immutable
// afterwards.
func (m *Manager) TransitionSession(ctx context.Context, userID, sessionID uuid.UUID, toStatus string, outcome SessionOutcome) (*types.PlannerStudySession, error) {
	const op = "lifecycle.transition_session"

	var updated *types.PlannerStudySession
	err := m.tx.InTx(ctx, func(dbc dbctx.Context) error {
		session, err := m.sessions.GetByID(dbc.Ctx, dbc.Tx, sessionID)
		if err != nil {
			return apperr.MapError(op, err)
		}
		if session.UserID != userID {
			return apperr.New(apperr.CodeNotFound, op, "session does not belong to user", nil)
		}
		if types.IsTerminalStatus(session.Status) {
			return apperr.Conflict(op, "session already finished, outcome is immutable")
		}
		if !types.CanTransitionSession(session.Status, toStatus) {
			return apperr.Conflict(op, "transition "+session.Status+" -> "+toStatus+" is not allowed")
		}

		updates := map[string]any{
			"status":     toStatus,
			"updated_at": m.now(),
		}
		if toStatus == types.SessionStatusCompleted {
			if outcome.CompletionPercent != nil {
				updates["completion_percent"] = *outcome.CompletionPercent
			}
			if outcome.Mood != nil {
				updates["mood"] = *outcome.Mood
			}
			if outcome.Score != nil {
				updates["score"] = *outcome.Score
			}
			if outcome.Notes != nil {
				updates["notes"] = *outcome.Notes
			}
		}
		if toStatus == types.SessionStatusSkipped && outcome.SkipReason != nil {
			updates["skip_reason"] = *outcome.SkipReason
		}

		if err := m.sessions.Update(dbc.Ctx, dbc.Tx, sessionID, updates); err != nil {
			return apperr.MapError(op, err)
		}
		updated, err = m.sessions.GetByID(dbc.Ctx, dbc.Tx, sessionID)
		if err != nil {
			return apperr.MapError(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MarkOverdueSessions flips past scheduled sessions to missed and reports
// how many were affected.
func (m *Manager) MarkOverdueSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "lifecycle.mark_overdue"

	n, err := m.sessions.MarkOverdueMissed(ctx, nil, userID, m.now())
	if err != nil {
		return 0, apperr.MapError(op, err)
	}
	if n > 0 {
		m.log.Info("overdue sessions marked missed", "user_id", userID, "count", n)
	}
	return n, nil
}

// HasActive reports whether the user currently has an active schedule.
func (m *Manager) HasActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	_, err := m.schedules.GetActiveByUserID(ctx, nil, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.MapError("lifecycle.has_active", err)
	}
	return true, nil
}
