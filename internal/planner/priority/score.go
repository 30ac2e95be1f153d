// Package priority computes per-subject priority scores. The scoring
// functions are pure so recomputation is deterministic and concurrency-safe.
package priority

import (
	"math"
	"time"

	"github.com/memoapp/planner-backend/internal/types"
)

// Weights are the user-configured multipliers for the five components.
// They are independent 0-100 knobs normalized by their sum, so a user can
// raise one without rebalancing the rest.
type Weights struct {
	Coefficient    int
	ExamProximity  int
	Difficulty     int
	Inactivity     int
	PerformanceGap int
}

// WeightsFromSettings extracts the priority weights from planner settings.
func WeightsFromSettings(s *types.PlannerSettings) Weights {
	return Weights{
		Coefficient:    s.CoefficientWeight,
		ExamProximity:  s.ExamProximityWeight,
		Difficulty:     s.DifficultyWeight,
		Inactivity:     s.InactivityWeight,
		PerformanceGap: s.PerformanceGapWeight,
	}
}

func (w Weights) sum() int {
	return w.Coefficient + w.ExamProximity + w.Difficulty + w.Inactivity + w.PerformanceGap
}

// Components are the five normalized 0-100 component scores.
type Components struct {
	Coefficient    float64
	ExamProximity  float64
	Difficulty     float64
	Inactivity     float64
	PerformanceGap float64
}

// Total collapses the components into one weighted 0-100 score.
// A zero weight sum is rejected upstream by settings validation; here it
// degrades to zero rather than dividing by it.
func (c Components) Total(w Weights) float64 {
	sum := w.sum()
	if sum <= 0 {
		return 0
	}
	weighted := c.Coefficient*float64(w.Coefficient) +
		c.ExamProximity*float64(w.ExamProximity) +
		c.Difficulty*float64(w.Difficulty) +
		c.Inactivity*float64(w.Inactivity) +
		c.PerformanceGap*float64(w.PerformanceGap)
	return clampScore(weighted / float64(sum))
}

// ScoreSubject computes all five components for one subject.
// lastStudied and avgScore are nil when no history exists; targetScore is
// nil when the user set no goal for the subject.
func ScoreSubject(subject types.Subject, lastStudied *time.Time, avgScore, targetScore *float64, now time.Time) Components {
	return Components{
		Coefficient:    CoefficientScore(subject.Coefficient),
		ExamProximity:  ExamProximityScore(subject.ExamDates, now),
		Difficulty:     DifficultyScore(subject.Difficulty),
		Inactivity:     InactivityScore(lastStudied, now),
		PerformanceGap: PerformanceGapScore(avgScore, targetScore),
	}
}

// CoefficientScore maps the administrative coefficient 1-7 onto 0-100.
func CoefficientScore(coefficient int) float64 {
	if coefficient < 1 {
		coefficient = 1
	}
	if coefficient > 7 {
		coefficient = 7
	}
	return float64(coefficient) / 7 * 100
}

// ExamProximityScore maps the days until the nearest future exam onto
// bracketed urgency. Subjects with no upcoming exam keep a floor of 10.
func ExamProximityScore(examDates []time.Time, now time.Time) float64 {
	days, ok := daysUntilNearestExam(examDates, now)
	if !ok {
		return 10
	}
	switch {
	case days <= 7:
		return 100
	case days <= 14:
		return 80
	case days <= 30:
		return 60
	case days <= 60:
		return 40
	case days <= 90:
		return 20
	default:
		return 10
	}
}

func daysUntilNearestExam(examDates []time.Time, now time.Time) (int, bool) {
	best := -1
	for _, d := range examDates {
		if d.Before(now) {
			continue
		}
		days := int(math.Ceil(d.Sub(now).Hours() / 24))
		if best == -1 || days < best {
			best = days
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// DifficultyScore maps rated difficulty 1-10 onto 0-100.
func DifficultyScore(difficulty int) float64 {
	if difficulty < 1 {
		difficulty = 1
	}
	if difficulty > 10 {
		difficulty = 10
	}
	return float64(difficulty) * 10
}

// InactivityScore rewards neglect: the longer a subject has gone unstudied
// the higher the score. Never-studied subjects score the maximum.
func InactivityScore(lastStudied *time.Time, now time.Time) float64 {
	if lastStudied == nil {
		return 100
	}
	days := int(now.Sub(*lastStudied).Hours() / 24)
	switch {
	case days <= 1:
		return 0
	case days <= 3:
		return 20
	case days <= 7:
		return 50
	case days <= 14:
		return 70
	case days <= 30:
		return 90
	default:
		return 100
	}
}

// PerformanceGapScore is the distance between the subject's target score and
// its average result, scaled to 0-100 so a near-miss on a modest target and a
// near-miss on a perfect target weigh the same. Without history the gap is
// unknown and scores a neutral 50; without a target the subject aims for 100.
func PerformanceGapScore(avgScore, targetScore *float64) float64 {
	if avgScore == nil {
		return 50
	}
	target := 100.0
	if targetScore != nil && *targetScore > 0 {
		target = *targetScore
	}
	return clampScore((target - *avgScore) / target * 100)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
