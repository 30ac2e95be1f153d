// Package allocator turns prioritized subjects and free intervals into a
// concrete, non-overlapping set of study sessions. The algorithm is greedy,
// priority-ordered and day-by-day, and fully deterministic: identical inputs
// always produce the identical schedule.
package allocator

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/memoapp/planner-backend/internal/pkg/apperr"
	"github.com/memoapp/planner-backend/internal/planner/availability"
	"github.com/memoapp/planner-backend/internal/planner/priority"
	"github.com/memoapp/planner-backend/internal/types"
)

// ModeExamPrep biases the subject ordering toward imminent exams.
const ModeExamPrep = "exam-prep"

// SubjectInput pairs a subject with its cached priority.
type SubjectInput struct {
	Subject  types.Subject
	Priority types.SubjectPriority
}

// Input is everything an allocation run needs. It is self-contained so the
// computation stays pure and testable without a datastore.
type Input struct {
	UserID   uuid.UUID
	Settings *types.PlannerSettings
	Days     []availability.Day
	Subjects []SubjectInput
	Mode     string
}

// Result is the computed schedule body, not yet persisted.
type Result struct {
	Sessions          []*types.PlannerStudySession
	TotalStudyMinutes int
	SubjectsCovered   []uuid.UUID
	FeasibilityScore  float64
}

type rankedSubject struct {
	SubjectInput
	rank           float64
	requiredEnergy int
}

// Allocate runs the greedy placement over the whole range. Zero free time
// yields a zero-session result, never an error.
func Allocate(input Input) (Result, error) {
	const op = "allocator.allocate"
	if input.Settings == nil {
		return Result{}, apperr.Validation(op, "planner settings are required")
	}
	settings := input.Settings

	ranked := rankSubjects(input.Subjects, settings, input.Mode)

	var result Result
	covered := make(map[uuid.UUID]bool)
	weekCounts := make(map[uuid.UUID]int)
	goalMinutes := 0

	for dayIdx, day := range input.Days {
		if dayIdx%7 == 0 {
			weekCounts = make(map[uuid.UUID]int)
		}
		goalMinutes += dayGoalMinutes(settings, day)

		daySessions := allocateDay(input.UserID, settings, day, ranked, weekCounts)
		for _, sess := range daySessions {
			if !sess.IsBreak() {
				result.TotalStudyMinutes += sess.DurationMinutes
				if sess.SubjectID != nil && !covered[*sess.SubjectID] {
					covered[*sess.SubjectID] = true
					result.SubjectsCovered = append(result.SubjectsCovered, *sess.SubjectID)
				}
			}
		}
		result.Sessions = append(result.Sessions, daySessions...)
	}

	result.FeasibilityScore = feasibility(result.TotalStudyMinutes, goalMinutes)
	return result, nil
}

// rankSubjects orders subjects by descending priority, ties by subject id.
// In exam-prep mode the exam-proximity weight is doubled for ordering only;
// stored priorities are untouched.
func rankSubjects(subjects []SubjectInput, settings *types.PlannerSettings, mode string) []rankedSubject {
	weights := priority.WeightsFromSettings(settings)
	if mode == ModeExamPrep {
		weights.ExamProximity *= 2
	}

	ranked := make([]rankedSubject, 0, len(subjects))
	for _, s := range subjects {
		components := priority.Components{
			Coefficient:    s.Priority.CoefficientScore,
			ExamProximity:  s.Priority.ExamProximityScore,
			Difficulty:     s.Priority.DifficultyScore,
			Inactivity:     s.Priority.InactivityScore,
			PerformanceGap: s.Priority.PerformanceGapScore,
		}
		ranked = append(ranked, rankedSubject{
			SubjectInput:   s,
			rank:           components.Total(weights),
			requiredEnergy: requiredEnergyFor(s.Subject.Difficulty),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].rank != ranked[j].rank {
			return ranked[i].rank > ranked[j].rank
		}
		return ranked[i].Subject.ID.String() < ranked[j].Subject.ID.String()
	})
	return ranked
}

func allocateDay(
	userID uuid.UUID,
	settings *types.PlannerSettings,
	day availability.Day,
	ranked []rankedSubject,
	weekCounts map[uuid.UUID]int,
) []*types.PlannerStudySession {
	state := newDayState()
	var sessions []*types.PlannerStudySession

	if day.MockSlot != nil {
		sessions = append(sessions, buildSession(userID, nil, day.Date, *day.MockSlot,
			types.SessionKindMockExam, 4, 0))
		state.studyMinutes += day.MockSlot.Duration()
	}

	remaining := append([]availability.Interval(nil), day.Free...)

	for {
		placed := false
		for _, candidate := range pickOrder(settings, ranked, state) {
			if weekCounts[candidate.Subject.ID] >= weeklySessionTarget(candidate.rank) {
				continue
			}
			if state.perSubject[candidate.Subject.ID] >= settings.MaxPerSubjectPerDay {
				continue
			}
			coef7 := candidate.Subject.Coefficient >= 7
			if coef7 && state.coef7Count >= settings.MaxCoef7PerDay {
				continue
			}
			hard := candidate.requiredEnergy >= settings.HardEnergyThreshold
			if hard && state.hardCount >= settings.MaxHardPerDay {
				continue
			}
			if hard && state.lastWasHard && settings.NoConsecutiveHard {
				continue
			}

			sess, brk, idx := placeInFirstFit(userID, settings, day.Date, remaining, candidate, state)
			if sess == nil {
				continue
			}

			sessions = append(sessions, sess)
			newStart := remaining[idx].Start + sess.DurationMinutes
			if brk != nil {
				sessions = append(sessions, brk)
				newStart += brk.DurationMinutes
			} else if !settings.UsePomodoro {
				newStart += settings.MinBreakBetweenSessions
			}
			remaining[idx].Start = newStart

			state.recordStudy(candidate.Subject.ID, sess.DurationMinutes, coef7, hard,
				candidate.Subject.IsLanguage)
			weekCounts[candidate.Subject.ID]++
			placed = true
			break
		}
		if !placed {
			break
		}
	}

	return trimTrailingBreak(sessions)
}

// pickOrder yields the candidate ordering for the next placement. With the
// language guarantee on and no language session placed yet, language
// subjects are tried first; otherwise pure priority order.
func pickOrder(settings *types.PlannerSettings, ranked []rankedSubject, state *dayState) []rankedSubject {
	if !settings.LanguageDailyGuarantee || state.languagePlaced {
		return ranked
	}
	ordered := make([]rankedSubject, 0, len(ranked))
	for _, s := range ranked {
		if s.Subject.IsLanguage {
			ordered = append(ordered, s)
		}
	}
	if len(ordered) == 0 {
		return ranked
	}
	for _, s := range ranked {
		if !s.Subject.IsLanguage {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

// placeInFirstFit finds the earliest interval whose energy matches and
// builds the session, plus a pomodoro break when one fits behind it.
// Returns nils when no interval can host the candidate.
func placeInFirstFit(
	userID uuid.UUID,
	settings *types.PlannerSettings,
	date time.Time,
	remaining []availability.Interval,
	candidate rankedSubject,
	state *dayState,
) (*types.PlannerStudySession, *types.PlannerStudySession, int) {
	budget := settings.MaxStudyHoursPerDay*60 - state.studyMinutes
	if budget < MinSessionMinutes {
		return nil, nil, -1
	}

	for idx, iv := range remaining {
		if iv.Duration() < MinSessionMinutes {
			continue
		}
		slotEnergy := settings.EnergyLevelForHour(iv.Start / 60)
		if slotEnergy < candidate.requiredEnergy {
			continue
		}

		minutes := sessionDuration(settings, candidate.Subject.Coefficient, slotEnergy, candidate.requiredEnergy)
		if minutes > iv.Duration() {
			minutes = roundTo5(iv.Duration())
		}
		if minutes > budget {
			minutes = roundTo5(budget)
		}
		if minutes < MinSessionMinutes {
			continue
		}

		slot := availability.Interval{Start: iv.Start, End: iv.Start + minutes}
		subjectID := candidate.Subject.ID
		sess := buildSession(userID, &subjectID, date, slot,
			types.SessionKindStudy, candidate.requiredEnergy, candidate.rank)

		var brk *types.PlannerStudySession
		if settings.UsePomodoro {
			brkMinutes := settings.ShortBreak
			if settings.PomodorosBeforeLongBreak > 0 &&
				(state.pomodoroCount+1)%settings.PomodorosBeforeLongBreak == 0 {
				brkMinutes = settings.LongBreak
			}
			if brkMinutes > 0 && slot.End+brkMinutes <= iv.End {
				brk = buildSession(userID, nil, date,
					availability.Interval{Start: slot.End, End: slot.End + brkMinutes},
					types.SessionKindBreak, 1, 0)
			}
		}
		return sess, brk, idx
	}
	return nil, nil, -1
}

func buildSession(
	userID uuid.UUID,
	subjectID *uuid.UUID,
	date time.Time,
	slot availability.Interval,
	kind string,
	requiredEnergy int,
	priorityScore float64,
) *types.PlannerStudySession {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return &types.PlannerStudySession{
		UserID:          userID,
		SubjectID:       subjectID,
		StartsAt:        midnight.Add(time.Duration(slot.Start) * time.Minute),
		EndsAt:          midnight.Add(time.Duration(slot.End) * time.Minute),
		DurationMinutes: slot.Duration(),
		Kind:            kind,
		RequiredEnergy:  requiredEnergy,
		PriorityScore:   priorityScore,
		Status:          types.SessionStatusScheduled,
	}
}

// trimTrailingBreak drops a break that would end the day.
func trimTrailingBreak(sessions []*types.PlannerStudySession) []*types.PlannerStudySession {
	if n := len(sessions); n > 0 && sessions[n-1].IsBreak() {
		return sessions[:n-1]
	}
	return sessions
}

// dayGoalMinutes is how much study the day could reasonably hold, used for
// the feasibility score.
func dayGoalMinutes(settings *types.PlannerSettings, day availability.Day) int {
	available := availability.TotalMinutes(day.Free)
	if day.MockSlot != nil {
		available += day.MockSlot.Duration()
	}
	if limit := settings.MaxStudyHoursPerDay * 60; available > limit {
		return limit
	}
	return available
}

func feasibility(placed, goal int) float64 {
	if goal <= 0 {
		return 100
	}
	score := float64(placed) / float64(goal) * 100
	if score > 100 {
		score = 100
	}
	return score
}
