package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

type fakePrayer struct {
	times []int
	err   error
}

func (f fakePrayer) Times(context.Context, float64, float64, time.Time) ([]int, error) {
	return f.times, f.err
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func baseSettings() *types.PlannerSettings {
	return &types.PlannerSettings{
		StudyStartTime:          "16:00",
		StudyEndTime:            "22:00",
		SleepStartTime:          "23:00",
		SleepEndTime:            "07:00",
		MinBreakBetweenSessions: 10,
		MockDayOfWeek:           "saturday",
		MockDurationMinutes:     100,
	}
}

// Monday 2026-03-02.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestSubtractSplitsInterval(t *testing.T) {
	free := []Interval{{Start: 960, End: 1320}}
	got := Subtract(free, Interval{Start: 1080, End: 1140})
	want := []Interval{{Start: 960, End: 1080}, {Start: 1140, End: 1320}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSubtractNoOverlap(t *testing.T) {
	free := []Interval{{Start: 960, End: 1320}}
	got := Subtract(free, Interval{Start: 600, End: 700})
	if len(got) != 1 || got[0] != free[0] {
		t.Fatalf("non-overlapping block must not change intervals, got %+v", got)
	}
}

func TestComputeDayPlainWindow(t *testing.T) {
	m := NewModel(nil, testLogger(t))
	day, err := m.ComputeDay(context.Background(), baseSettings(), monday)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(day.Free) != 1 {
		t.Fatalf("expected one free interval, got %+v", day.Free)
	}
	if day.Free[0].Start != 16*60 || day.Free[0].End != 22*60 {
		t.Fatalf("expected 16:00-22:00, got %+v", day.Free[0])
	}
	if day.MockSlot != nil {
		t.Fatalf("monday must not carry a mock slot")
	}
}

func TestComputeDayNonStudyDayIsEmpty(t *testing.T) {
	s := baseSettings()
	s.StudyDays = []byte(`["tuesday","thursday"]`)
	m := NewModel(nil, testLogger(t))
	day, err := m.ComputeDay(context.Background(), s, monday)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(day.Free) != 0 {
		t.Fatalf("non-study day must be empty, got %+v", day.Free)
	}
}

func TestComputeDayMidnightCrossingSleepClipsMorning(t *testing.T) {
	s := baseSettings()
	s.StudyStartTime = "05:00"
	s.StudyEndTime = "22:00"
	// Sleep 23:00-07:00 removes the 05:00-07:00 piece of the study window.
	m := NewModel(nil, testLogger(t))
	day, err := m.ComputeDay(context.Background(), s, monday)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(day.Free) != 1 || day.Free[0].Start != 7*60 {
		t.Fatalf("expected free time to begin at 07:00, got %+v", day.Free)
	}
}

func TestComputeDayExerciseAndPrayerBlocks(t *testing.T) {
	s := baseSettings()
	s.ExerciseEnabled = true
	s.ExerciseTime = "18:00"
	s.ExerciseDurationMinutes = 60
	s.EnablePrayerTimes = true
	s.PrayerDurationMinutes = 15
	// One prayer at 20:00.
	m := NewModel(fakePrayer{times: []int{20 * 60}}, testLogger(t))
	day, err := m.ComputeDay(context.Background(), s, monday)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	want := []Interval{
		{Start: 16 * 60, End: 18 * 60},
		{Start: 19 * 60, End: 20 * 60},
		{Start: 20*60 + 15, End: 22 * 60},
	}
	if len(day.Free) != len(want) {
		t.Fatalf("got %+v, want %+v", day.Free, want)
	}
	for i := range want {
		if day.Free[i] != want[i] {
			t.Fatalf("interval %d: got %+v, want %+v", i, day.Free[i], want[i])
		}
	}
}

func TestComputeDayPrayerFailureDegradesGracefully(t *testing.T) {
	s := baseSettings()
	s.EnablePrayerTimes = true
	m := NewModel(fakePrayer{err: errors.New("api down")}, testLogger(t))
	day, err := m.ComputeDay(context.Background(), s, monday)
	if err != nil {
		t.Fatalf("prayer failure must not fail the day: %v", err)
	}
	if len(day.Free) != 1 || day.Free[0].Duration() != 6*60 {
		t.Fatalf("expected full window without prayer blocks, got %+v", day.Free)
	}
}

func TestComputeDayMockSlotCarvedOnMockDay(t *testing.T) {
	// Saturday 2026-03-07.
	saturday := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	m := NewModel(nil, testLogger(t))
	day, err := m.ComputeDay(context.Background(), baseSettings(), saturday)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if day.MockSlot == nil {
		t.Fatalf("saturday must carry a mock slot")
	}
	if day.MockSlot.Start != 16*60 || day.MockSlot.Duration() != 100 {
		t.Fatalf("mock slot must open the first interval, got %+v", day.MockSlot)
	}
	for _, iv := range day.Free {
		if iv.Start < day.MockSlot.End && iv.End > day.MockSlot.Start {
			t.Fatalf("free interval %+v overlaps mock slot %+v", iv, day.MockSlot)
		}
	}
}

func TestComputeDayMockSlotCarvedOnRestDay(t *testing.T) {
	// Saturday 2026-03-07 is the mock day but not a study day.
	saturday := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	s := baseSettings()
	s.StudyDays = []byte(`["monday","tuesday","wednesday","thursday","friday"]`)
	m := NewModel(nil, testLogger(t))
	day, err := m.ComputeDay(context.Background(), s, saturday)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if day.MockSlot == nil {
		t.Fatalf("the mock day must carry its slot even on a rest day")
	}
	if day.MockSlot.Start != 16*60 || day.MockSlot.Duration() != 100 {
		t.Fatalf("mock slot must open the day window, got %+v", day.MockSlot)
	}
	if len(day.Free) != 0 {
		t.Fatalf("a rest day must offer no study intervals, got %+v", day.Free)
	}
}

func TestComputeDayDiscardsUselessGaps(t *testing.T) {
	s := baseSettings()
	s.StudyStartTime = "16:00"
	s.StudyEndTime = "16:30"
	// 30 min window < 10 min break + 30 min smallest session.
	m := NewModel(nil, testLogger(t))
	day, err := m.ComputeDay(context.Background(), s, monday)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(day.Free) != 0 {
		t.Fatalf("a gap too small for any session must be dropped, got %+v", day.Free)
	}
}

func TestComputeRangeCoversInclusiveDays(t *testing.T) {
	m := NewModel(nil, testLogger(t))
	days, err := m.ComputeRange(context.Background(), baseSettings(), monday, monday.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
}
