package allocator

import (
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/memoapp/planner-backend/internal/planner/availability"
	"github.com/memoapp/planner-backend/internal/types"
)

var day0 = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func allocSettings() *types.PlannerSettings {
	return &types.PlannerSettings{
		StudyStartTime:           "16:00",
		StudyEndTime:             "20:00",
		SleepStartTime:           "23:00",
		SleepEndTime:             "07:00",
		MorningEnergyLevel:       7,
		AfternoonEnergyLevel:     6,
		EveningEnergyLevel:       8,
		NightEnergyLevel:         4,
		CoefficientWeight:        35,
		ExamProximityWeight:      25,
		DifficultyWeight:         15,
		InactivityWeight:         10,
		PerformanceGapWeight:     5,
		MaxCoef7PerDay:           1,
		MaxHardPerDay:            2,
		MaxStudyHoursPerDay:      8,
		MaxPerSubjectPerDay:      2,
		MinBreakBetweenSessions:  10,
		NoConsecutiveHard:        true,
		HardEnergyThreshold:      7,
		BufferRate:               0.2,
		MockDayOfWeek:            "saturday",
		MockDurationMinutes:      100,
		UsePomodoro:              true,
		PomodoroDuration:         25,
		ShortBreak:               5,
		LongBreak:                15,
		PomodorosBeforeLongBreak: 4,
	}
}

func subjectInput(coef, difficulty int, language bool, comps types.SubjectPriority) SubjectInput {
	id := uuid.New()
	comps.SubjectID = id
	return SubjectInput{
		Subject: types.Subject{
			ID:          id,
			Coefficient: coef,
			Difficulty:  difficulty,
			IsLanguage:  language,
		},
		Priority: comps,
	}
}

func assertNoOverlap(t *testing.T, sessions []*types.PlannerStudySession) {
	t.Helper()
	sorted := append([]*types.PlannerStudySession(nil), sessions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartsAt.Before(sorted[j].StartsAt) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].StartsAt.Before(sorted[i-1].EndsAt) {
			t.Fatalf("sessions overlap: %v-%v then %v-%v",
				sorted[i-1].StartsAt, sorted[i-1].EndsAt, sorted[i].StartsAt, sorted[i].EndsAt)
		}
	}
}

func TestAllocateFillsWindowInFixedBlocks(t *testing.T) {
	s := allocSettings()
	s.BufferRate = 0
	s.UsePomodoro = false
	s.MinBreakBetweenSessions = 0
	s.MaxCoef7PerDay = 4
	s.MaxPerSubjectPerDay = 4
	s.CoefficientDurations = []byte(`{"7":45}`)

	subject := subjectInput(7, 1, false, types.SubjectPriority{
		CoefficientScore: 100, InactivityScore: 100,
	})
	days := []availability.Day{{
		Date: day0,
		Free: []availability.Interval{{Start: 16 * 60, End: 20 * 60}},
	}}

	result, err := Allocate(Input{
		UserID:   uuid.New(),
		Settings: s,
		Days:     days,
		Subjects: []SubjectInput{subject},
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(result.Sessions) != 4 {
		t.Fatalf("expected 4 sessions up to the coefficient cap, got %d", len(result.Sessions))
	}
	for i, sess := range result.Sessions {
		if sess.DurationMinutes != 45 {
			t.Fatalf("session %d: expected 45 minutes, got %d", i, sess.DurationMinutes)
		}
	}
	assertNoOverlap(t, result.Sessions)
	last := result.Sessions[len(result.Sessions)-1]
	wantEnd := day0.Add(19 * time.Hour)
	if !last.EndsAt.Equal(wantEnd) {
		t.Fatalf("expected final session to end at 19:00, got %v", last.EndsAt)
	}
	if result.TotalStudyMinutes != 180 {
		t.Fatalf("expected 180 study minutes, got %d", result.TotalStudyMinutes)
	}
}

func TestAllocateZeroFreeTimeYieldsEmptySchedule(t *testing.T) {
	result, err := Allocate(Input{
		UserID:   uuid.New(),
		Settings: allocSettings(),
		Days:     []availability.Day{{Date: day0}},
		Subjects: []SubjectInput{subjectInput(5, 5, false, types.SubjectPriority{CoefficientScore: 70})},
	})
	if err != nil {
		t.Fatalf("zero capacity must not error: %v", err)
	}
	if len(result.Sessions) != 0 {
		t.Fatalf("expected no sessions, got %d", len(result.Sessions))
	}
}

func TestAllocateRespectsHardCapsAndAdjacency(t *testing.T) {
	s := allocSettings()
	s.MaxPerSubjectPerDay = 3

	hardA := subjectInput(6, 9, false, types.SubjectPriority{CoefficientScore: 90, DifficultyScore: 90})
	hardB := subjectInput(5, 8, false, types.SubjectPriority{CoefficientScore: 85, DifficultyScore: 80})
	easy := subjectInput(3, 2, false, types.SubjectPriority{CoefficientScore: 40})

	days := []availability.Day{{
		Date: day0,
		Free: []availability.Interval{{Start: 17 * 60, End: 22 * 60}},
	}}
	result, err := Allocate(Input{
		UserID:   uuid.New(),
		Settings: s,
		Days:     days,
		Subjects: []SubjectInput{hardA, hardB, easy},
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	assertNoOverlap(t, result.Sessions)

	hardCount := 0
	var ordered []*types.PlannerStudySession
	for _, sess := range result.Sessions {
		if sess.IsBreak() {
			continue
		}
		ordered = append(ordered, sess)
		if sess.RequiredEnergy >= s.HardEnergyThreshold {
			hardCount++
		}
	}
	if hardCount > s.MaxHardPerDay {
		t.Fatalf("hard cap violated: %d > %d", hardCount, s.MaxHardPerDay)
	}
	for i := 1; i < len(ordered); i++ {
		prevHard := ordered[i-1].RequiredEnergy >= s.HardEnergyThreshold
		curHard := ordered[i].RequiredEnergy >= s.HardEnergyThreshold
		if prevHard && curHard {
			t.Fatalf("two hard sessions adjacent at %v", ordered[i].StartsAt)
		}
	}
}

func TestAllocateIsDeterministic(t *testing.T) {
	s := allocSettings()
	subjects := []SubjectInput{
		subjectInput(7, 6, false, types.SubjectPriority{CoefficientScore: 100, DifficultyScore: 60}),
		subjectInput(4, 3, true, types.SubjectPriority{CoefficientScore: 57}),
		subjectInput(5, 7, false, types.SubjectPriority{CoefficientScore: 71, DifficultyScore: 70}),
	}
	days := []availability.Day{
		{Date: day0, Free: []availability.Interval{{Start: 16 * 60, End: 21 * 60}}},
		{Date: day0.AddDate(0, 0, 1), Free: []availability.Interval{{Start: 17 * 60, End: 20 * 60}}},
	}
	input := Input{UserID: uuid.New(), Settings: s, Days: days, Subjects: subjects}

	a, err := Allocate(input)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	b, err := Allocate(input)
	if err != nil {
		t.Fatalf("allocate again: %v", err)
	}
	if len(a.Sessions) != len(b.Sessions) {
		t.Fatalf("runs differ in session count: %d vs %d", len(a.Sessions), len(b.Sessions))
	}
	for i := range a.Sessions {
		x, y := a.Sessions[i], b.Sessions[i]
		if !x.StartsAt.Equal(y.StartsAt) || x.DurationMinutes != y.DurationMinutes || x.Kind != y.Kind {
			t.Fatalf("session %d differs between identical runs", i)
		}
	}
}

func TestAllocateLanguageGuaranteeTakesFirstSlot(t *testing.T) {
	s := allocSettings()
	s.LanguageDailyGuarantee = true

	strong := subjectInput(7, 3, false, types.SubjectPriority{CoefficientScore: 100, InactivityScore: 100})
	language := subjectInput(2, 2, true, types.SubjectPriority{CoefficientScore: 29})

	days := []availability.Day{{
		Date: day0,
		Free: []availability.Interval{{Start: 16 * 60, End: 21 * 60}},
	}}
	result, err := Allocate(Input{
		UserID:   uuid.New(),
		Settings: s,
		Days:     days,
		Subjects: []SubjectInput{strong, language},
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(result.Sessions) == 0 {
		t.Fatalf("expected sessions")
	}
	first := result.Sessions[0]
	if first.SubjectID == nil || *first.SubjectID != language.Subject.ID {
		t.Fatalf("expected the language subject in the first slot")
	}
}

func TestAllocatePlacesMockExamFirst(t *testing.T) {
	s := allocSettings()
	mock := availability.Interval{Start: 16 * 60, End: 16*60 + 100}
	days := []availability.Day{{
		Date:     day0.AddDate(0, 0, 5), // saturday
		Free:     []availability.Interval{{Start: 18 * 60, End: 21 * 60}},
		MockSlot: &mock,
	}}
	result, err := Allocate(Input{
		UserID:   uuid.New(),
		Settings: s,
		Days:     days,
		Subjects: []SubjectInput{subjectInput(5, 4, false, types.SubjectPriority{CoefficientScore: 70})},
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(result.Sessions) == 0 || result.Sessions[0].Kind != types.SessionKindMockExam {
		t.Fatalf("expected a mock-exam session first, got %+v", result.Sessions)
	}
	if result.Sessions[0].DurationMinutes != 100 {
		t.Fatalf("mock session must use the configured duration, got %d", result.Sessions[0].DurationMinutes)
	}
	assertNoOverlap(t, result.Sessions)
}

func TestAllocateEnergyMatchingSkipsLowEnergySlots(t *testing.T) {
	s := allocSettings()
	s.NightEnergyLevel = 3
	// Only a night interval is free; a difficulty-9 subject needs energy 7.
	days := []availability.Day{{
		Date: day0,
		Free: []availability.Interval{{Start: 22 * 60, End: 23 * 60}},
	}}
	hard := subjectInput(6, 9, false, types.SubjectPriority{CoefficientScore: 86, DifficultyScore: 90})
	result, err := Allocate(Input{
		UserID:   uuid.New(),
		Settings: s,
		Days:     days,
		Subjects: []SubjectInput{hard},
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(result.Sessions) != 0 {
		t.Fatalf("low-energy slot must not host a hard subject, got %d sessions", len(result.Sessions))
	}
}

func TestAllocateExamPrepModeReordersSubjects(t *testing.T) {
	s := allocSettings()
	s.MaxPerSubjectPerDay = 1

	examSoon := subjectInput(2, 3, false, types.SubjectPriority{
		CoefficientScore: 29, ExamProximityScore: 100,
	})
	heavyweight := subjectInput(7, 3, false, types.SubjectPriority{
		CoefficientScore: 100, ExamProximityScore: 10,
	})

	days := []availability.Day{{
		Date: day0,
		Free: []availability.Interval{{Start: 16 * 60, End: 21 * 60}},
	}}
	normal, err := Allocate(Input{
		UserID: uuid.New(), Settings: s, Days: days,
		Subjects: []SubjectInput{examSoon, heavyweight},
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	prep, err := Allocate(Input{
		UserID: uuid.New(), Settings: s, Days: days,
		Subjects: []SubjectInput{examSoon, heavyweight},
		Mode:     ModeExamPrep,
	})
	if err != nil {
		t.Fatalf("allocate exam-prep: %v", err)
	}

	firstSubject := func(r Result) uuid.UUID {
		for _, sess := range r.Sessions {
			if sess.SubjectID != nil {
				return *sess.SubjectID
			}
		}
		return uuid.Nil
	}
	if firstSubject(normal) != heavyweight.Subject.ID {
		t.Fatalf("normal mode should lead with the heavyweight subject")
	}
	if firstSubject(prep) != examSoon.Subject.ID {
		t.Fatalf("exam-prep mode should lead with the imminent-exam subject")
	}
}

func TestAllocatePomodoroBreaksNeverTrail(t *testing.T) {
	s := allocSettings()
	s.MaxPerSubjectPerDay = 4
	s.MaxCoef7PerDay = 4
	days := []availability.Day{{
		Date: day0,
		Free: []availability.Interval{{Start: 16 * 60, End: 22 * 60}},
	}}
	result, err := Allocate(Input{
		UserID:   uuid.New(),
		Settings: s,
		Days:     days,
		Subjects: []SubjectInput{subjectInput(7, 2, false, types.SubjectPriority{CoefficientScore: 100, InactivityScore: 100})},
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(result.Sessions) == 0 {
		t.Fatalf("expected sessions")
	}
	if result.Sessions[len(result.Sessions)-1].IsBreak() {
		t.Fatalf("day must not end with a break")
	}
	breaks, studyMinutes := 0, 0
	for _, sess := range result.Sessions {
		if sess.IsBreak() {
			breaks++
			if sess.SubjectID != nil {
				t.Fatalf("breaks carry no subject")
			}
			continue
		}
		studyMinutes += sess.DurationMinutes
	}
	if breaks == 0 {
		t.Fatalf("expected pomodoro breaks between sessions")
	}
	if studyMinutes != result.TotalStudyMinutes {
		t.Fatalf("study minutes must exclude breaks: counted %d, reported %d",
			studyMinutes, result.TotalStudyMinutes)
	}
	assertNoOverlap(t, result.Sessions)
}
