package availability

import (
	"context"
	"strings"
	"time"

	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

// PrayerTimeProvider supplies the prayer times of a day at a location, as
// minutes from midnight. Implementations may be backed by a remote API and
// a cache; callers treat failures as "no prayer windows".
type PrayerTimeProvider interface {
	Times(ctx context.Context, latitude, longitude float64, day time.Time) ([]int, error)
}

// Day is the availability of one calendar day.
type Day struct {
	Date time.Time
	// Free intervals, ordered, disjoint, net of all blocks. May be empty.
	Free []Interval
	// MockSlot is the reserved weekly mock-exam interval, nil on other days.
	MockSlot *Interval
}

// Model computes per-day free intervals from planner settings.
type Model struct {
	prayer PrayerTimeProvider
	log    *logger.Logger
}

func NewModel(prayer PrayerTimeProvider, baseLog *logger.Logger) *Model {
	return &Model{prayer: prayer, log: baseLog.With("service", "AvailabilityModel")}
}

// ComputeDay derives the free intervals of one day. Blocks are subtracted in
// a fixed order: sleep, exercise, prayer, mock exam. A day outside the
// configured study days has no free time, but the weekly mock slot is still
// carved when the mock day falls on it.
func (m *Model) ComputeDay(ctx context.Context, settings *types.PlannerSettings, date time.Time) (Day, error) {
	day := Day{Date: date}
	weekday := strings.ToLower(date.Weekday().String())

	studyDay := containsDay(settings.StudyDayList(), weekday)
	mockDay := strings.EqualFold(settings.MockDayOfWeek, weekday)
	if !studyDay && !mockDay {
		return day, nil
	}

	studyStart, err := types.ParseClock(settings.StudyStartTime)
	if err != nil {
		return day, err
	}
	studyEnd, err := types.ParseClock(settings.StudyEndTime)
	if err != nil {
		return day, err
	}
	free := []Interval{{Start: studyStart, End: studyEnd}}

	sleepBlocks, err := sleepBlocks(settings)
	if err != nil {
		return day, err
	}
	free = SubtractAll(free, sleepBlocks)

	if settings.ExerciseEnabled && containsDay(settings.ExerciseDayList(), weekday) {
		exStart, err := types.ParseClock(settings.ExerciseTime)
		if err != nil {
			return day, err
		}
		free = Subtract(free, Interval{Start: exStart, End: exStart + settings.ExerciseDurationMinutes})
	}

	if settings.EnablePrayerTimes && m.prayer != nil {
		times, err := m.prayer.Times(ctx, settings.PrayerLatitude, settings.PrayerLongitude, date)
		if err != nil {
			m.log.Warn("prayer times unavailable, scheduling without prayer windows",
				"date", date.Format("2006-01-02"), "error", err)
		} else {
			for _, t := range times {
				free = Subtract(free, Interval{Start: t, End: t + settings.PrayerDurationMinutes})
			}
		}
	}

	if mockDay {
		if slot := carveMockSlot(free, settings.MockDurationMinutes); slot != nil {
			day.MockSlot = slot
			free = Subtract(free, *slot)
		}
	}
	if !studyDay {
		// Rest days host the mock only; nothing else gets placed.
		return day, nil
	}

	day.Free = DropShorterThan(free, minUsefulMinutes(settings))
	return day, nil
}

// ComputeRange derives availability for each day of [start, end] inclusive.
func (m *Model) ComputeRange(ctx context.Context, settings *types.PlannerSettings, start, end time.Time) ([]Day, error) {
	var days []Day
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		day, err := m.ComputeDay(ctx, settings, d)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

// sleepBlocks converts the sleep window into same-day blocks. A window that
// crosses midnight becomes two pieces, tonight's start and this morning's end.
func sleepBlocks(settings *types.PlannerSettings) ([]Interval, error) {
	start, err := types.ParseClock(settings.SleepStartTime)
	if err != nil {
		return nil, err
	}
	end, err := types.ParseClock(settings.SleepEndTime)
	if err != nil {
		return nil, err
	}
	if start == end {
		return nil, nil
	}
	if start < end {
		return []Interval{{Start: start, End: end}}, nil
	}
	return []Interval{
		{Start: 0, End: end},
		{Start: start, End: 24 * 60},
	}, nil
}

// carveMockSlot reserves the first free interval long enough for the mock.
func carveMockSlot(free []Interval, minutes int) *Interval {
	for _, iv := range free {
		if iv.Duration() >= minutes {
			return &Interval{Start: iv.Start, End: iv.Start + minutes}
		}
	}
	return nil
}

// minUsefulMinutes is the shortest gap worth keeping: the configured break
// plus the smallest configured session duration.
func minUsefulMinutes(settings *types.PlannerSettings) int {
	smallest := settings.DurationForCoefficient(1)
	for c := 2; c <= 7; c++ {
		if d := settings.DurationForCoefficient(c); d < smallest {
			smallest = d
		}
	}
	return settings.MinBreakBetweenSessions + smallest
}

func containsDay(days []string, weekday string) bool {
	for _, d := range days {
		if d == weekday {
			return true
		}
	}
	return false
}
