package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PlannerSettings is the per-user time-window and algorithm configuration.
// One row per user, upserted, never deleted. The field set is the stable
// contract other systems read and write.
type PlannerSettings struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	// Study time window, "HH:MM" clock strings.
	StudyStartTime string         `gorm:"not null;default:'08:00'" json:"study_start_time"`
	StudyEndTime   string         `gorm:"not null;default:'22:00'" json:"study_end_time"`
	StudyDays      datatypes.JSON `gorm:"type:jsonb" json:"study_days"`

	// Sleep window; may cross midnight.
	SleepStartTime string `gorm:"not null;default:'23:00'" json:"sleep_start_time"`
	SleepEndTime   string `gorm:"not null;default:'07:00'" json:"sleep_end_time"`

	// Exercise window.
	ExerciseEnabled         bool           `gorm:"not null;default:false" json:"exercise_enabled"`
	ExerciseDays            datatypes.JSON `gorm:"type:jsonb" json:"exercise_days"`
	ExerciseTime            string         `json:"exercise_time"`
	ExerciseDurationMinutes int            `gorm:"not null;default:60" json:"exercise_duration_minutes"`

	// Prayer-time integration.
	EnablePrayerTimes     bool    `gorm:"not null;default:false" json:"enable_prayer_times"`
	PrayerDurationMinutes int     `gorm:"not null;default:15" json:"prayer_duration_minutes"`
	PrayerLatitude        float64 `json:"prayer_latitude"`
	PrayerLongitude       float64 `json:"prayer_longitude"`

	// Energy level per day part, 1-10.
	MorningEnergyLevel   int `gorm:"not null;default:7" json:"morning_energy_level"`
	AfternoonEnergyLevel int `gorm:"not null;default:6" json:"afternoon_energy_level"`
	EveningEnergyLevel   int `gorm:"not null;default:8" json:"evening_energy_level"`
	NightEnergyLevel     int `gorm:"not null;default:4" json:"night_energy_level"`

	// Pomodoro configuration.
	UsePomodoro              bool `gorm:"not null;default:true" json:"use_pomodoro"`
	PomodoroDuration         int  `gorm:"not null;default:25" json:"pomodoro_duration"`
	ShortBreak               int  `gorm:"not null;default:5" json:"short_break"`
	LongBreak                int  `gorm:"not null;default:15" json:"long_break"`
	PomodorosBeforeLongBreak int  `gorm:"not null;default:4" json:"pomodoros_before_long_break"`

	// Priority weights, 0-100 each. Independent multipliers, normalized by
	// their sum at scoring time; they do not need to sum to 100.
	CoefficientWeight    int `gorm:"not null;default:35" json:"coefficient_weight"`
	ExamProximityWeight  int `gorm:"not null;default:25" json:"exam_proximity_weight"`
	DifficultyWeight     int `gorm:"not null;default:15" json:"difficulty_weight"`
	InactivityWeight     int `gorm:"not null;default:10" json:"inactivity_weight"`
	PerformanceGapWeight int `gorm:"not null;default:5" json:"performance_gap_weight"`

	// Hard caps.
	MaxCoef7PerDay          int `gorm:"not null;default:1" json:"max_coef7_per_day"`
	MaxHardPerDay           int `gorm:"not null;default:2" json:"max_hard_per_day"`
	MaxStudyHoursPerDay     int `gorm:"not null;default:8" json:"max_study_hours_per_day"`
	MaxPerSubjectPerDay     int `gorm:"not null;default:2" json:"max_per_subject_per_day"`
	MinBreakBetweenSessions int `gorm:"not null;default:10" json:"min_break_between_sessions"`

	// Algorithm toggles.
	LanguageDailyGuarantee bool    `gorm:"not null;default:false" json:"language_daily_guarantee"`
	NoConsecutiveHard      bool    `gorm:"not null;default:true" json:"no_consecutive_hard"`
	BufferRate             float64 `gorm:"not null;default:0.2" json:"buffer_rate"`
	AutoRescheduleMissed   bool    `gorm:"not null;default:true" json:"auto_reschedule_missed"`
	HardEnergyThreshold    int     `gorm:"not null;default:7" json:"hard_energy_threshold"`

	// Weekly mock exam.
	MockDayOfWeek       string `gorm:"not null;default:'saturday'" json:"mock_day_of_week"`
	MockDurationMinutes int    `gorm:"not null;default:100" json:"mock_duration_minutes"`

	// Per-coefficient default session durations, minutes, keyed "1".."7".
	CoefficientDurations datatypes.JSON `gorm:"type:jsonb" json:"coefficient_durations"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (PlannerSettings) TableName() string { return "planner_settings" }

var allWeekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// DefaultCoefficientDurations maps coefficient to base session minutes.
func DefaultCoefficientDurations() map[int]int {
	return map[int]int{1: 30, 2: 40, 3: 50, 4: 60, 5: 75, 6: 80, 7: 90}
}

// StudyDayList returns the configured study weekdays, defaulting to all days.
func (s *PlannerSettings) StudyDayList() []string {
	return weekdayList(s.StudyDays)
}

// ExerciseDayList returns the weekdays with an exercise window.
func (s *PlannerSettings) ExerciseDayList() []string {
	if !s.ExerciseEnabled {
		return nil
	}
	return weekdayList(s.ExerciseDays)
}

func weekdayList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return append([]string(nil), allWeekdays...)
	}
	var days []string
	if err := json.Unmarshal(raw, &days); err != nil || len(days) == 0 {
		return append([]string(nil), allWeekdays...)
	}
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, strings.ToLower(strings.TrimSpace(d)))
	}
	return out
}

// DurationForCoefficient returns the configured base duration for a
// coefficient, falling back to the defaults.
func (s *PlannerSettings) DurationForCoefficient(coefficient int) int {
	defaults := DefaultCoefficientDurations()
	if len(s.CoefficientDurations) > 0 {
		var configured map[string]int
		if err := json.Unmarshal(s.CoefficientDurations, &configured); err == nil {
			if d, ok := configured[strconv.Itoa(coefficient)]; ok && d > 0 {
				return d
			}
		}
	}
	if d, ok := defaults[coefficient]; ok {
		return d
	}
	return 60
}

// EnergyLevelForHour returns the configured 1-10 energy level for an hour.
// Day parts: morning 05-12, afternoon 12-17, evening 17-22, night otherwise.
func (s *PlannerSettings) EnergyLevelForHour(hour int) int {
	switch {
	case hour >= 5 && hour < 12:
		return s.MorningEnergyLevel
	case hour >= 12 && hour < 17:
		return s.AfternoonEnergyLevel
	case hour >= 17 && hour < 22:
		return s.EveningEnergyLevel
	default:
		return s.NightEnergyLevel
	}
}

// Validate rejects invalid configurations before they reach the allocator.
func (s *PlannerSettings) Validate() error {
	if _, err := ParseClock(s.StudyStartTime); err != nil {
		return fmt.Errorf("study_start_time: %w", err)
	}
	if _, err := ParseClock(s.StudyEndTime); err != nil {
		return fmt.Errorf("study_end_time: %w", err)
	}
	if _, err := ParseClock(s.SleepStartTime); err != nil {
		return fmt.Errorf("sleep_start_time: %w", err)
	}
	if _, err := ParseClock(s.SleepEndTime); err != nil {
		return fmt.Errorf("sleep_end_time: %w", err)
	}
	start, _ := ParseClock(s.StudyStartTime)
	end, _ := ParseClock(s.StudyEndTime)
	if end <= start {
		return fmt.Errorf("study window %s-%s is empty", s.StudyStartTime, s.StudyEndTime)
	}
	if s.ExerciseEnabled {
		if _, err := ParseClock(s.ExerciseTime); err != nil {
			return fmt.Errorf("exercise_time: %w", err)
		}
		if s.ExerciseDurationMinutes <= 0 {
			return fmt.Errorf("exercise_duration_minutes must be positive")
		}
	}
	for name, w := range map[string]int{
		"coefficient_weight":     s.CoefficientWeight,
		"exam_proximity_weight":  s.ExamProximityWeight,
		"difficulty_weight":      s.DifficultyWeight,
		"inactivity_weight":      s.InactivityWeight,
		"performance_gap_weight": s.PerformanceGapWeight,
	} {
		if w < 0 || w > 100 {
			return fmt.Errorf("%s %d out of range 0-100", name, w)
		}
	}
	if s.CoefficientWeight+s.ExamProximityWeight+s.DifficultyWeight+s.InactivityWeight+s.PerformanceGapWeight == 0 {
		return fmt.Errorf("priority weights sum to zero")
	}
	for name, level := range map[string]int{
		"morning_energy_level":   s.MorningEnergyLevel,
		"afternoon_energy_level": s.AfternoonEnergyLevel,
		"evening_energy_level":   s.EveningEnergyLevel,
		"night_energy_level":     s.NightEnergyLevel,
	} {
		if level < 1 || level > 10 {
			return fmt.Errorf("%s %d out of range 1-10", name, level)
		}
	}
	if s.BufferRate < 0 || s.BufferRate >= 1 {
		return fmt.Errorf("buffer_rate %.2f out of range [0,1)", s.BufferRate)
	}
	if s.MaxStudyHoursPerDay <= 0 || s.MaxStudyHoursPerDay > 24 {
		return fmt.Errorf("max_study_hours_per_day %d out of range 1-24", s.MaxStudyHoursPerDay)
	}
	if s.MinBreakBetweenSessions < 0 {
		return fmt.Errorf("min_break_between_sessions must not be negative")
	}
	if s.MaxCoef7PerDay < 0 || s.MaxHardPerDay < 0 || s.MaxPerSubjectPerDay < 0 {
		return fmt.Errorf("daily caps must not be negative")
	}
	if !validWeekday(s.MockDayOfWeek) {
		return fmt.Errorf("mock_day_of_week %q is not a weekday", s.MockDayOfWeek)
	}
	if s.MockDurationMinutes <= 0 {
		return fmt.Errorf("mock_duration_minutes must be positive")
	}
	return nil
}

func validWeekday(day string) bool {
	day = strings.ToLower(strings.TrimSpace(day))
	for _, d := range allWeekdays {
		if d == day {
			return true
		}
	}
	return false
}

// ParseClock parses "HH:MM" into minutes from midnight.
func ParseClock(clock string) (int, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("clock %q is not HH:MM", clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("clock %q has invalid hour", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock %q has invalid minute", clock)
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
