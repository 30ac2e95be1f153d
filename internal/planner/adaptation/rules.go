// Package adaptation mutates priorities and the active schedule in response
// to results and behavior. Rules live in explicit tables so brackets can be
// added without touching control flow, and tested in isolation.
package adaptation

import "fmt"

// ExamRule describes how one exam-score bracket adjusts the plan.
// Brackets are half-open [MinScore, MaxScore).
type ExamRule struct {
	MinScore             float64
	MaxScore             float64
	PriorityDelta        float64
	ExtraSessionsPerWeek int
	ShorterSessions      bool
	Description          string
}

// examRules from weakest to strongest result.
var examRules = []ExamRule{
	{
		MinScore:             0,
		MaxScore:             60,
		PriorityDelta:        30,
		ExtraSessionsPerWeek: 2,
		ShorterSessions:      true,
		Description:          "weak exam result: priority raised by 30, extra revision sessions added",
	},
	{
		MinScore:             60,
		MaxScore:             80,
		PriorityDelta:        10,
		ExtraSessionsPerWeek: 1,
		Description:          "average exam result: priority raised by 10, one extra session added",
	},
	{
		MinScore:      80,
		MaxScore:      101,
		PriorityDelta: -10,
		Description:   "strong exam result: priority lowered by 10 to free capacity",
	},
}

// ExamRuleFor returns the bracket matching an exam score.
func ExamRuleFor(score float64) ExamRule {
	for _, r := range examRules {
		if score >= r.MinScore && score < r.MaxScore {
			return r
		}
	}
	return examRules[len(examRules)-1]
}

// TopicTestRule describes the structural follow-up of a topic-test bracket.
type TopicTestRule struct {
	MinScore         float64
	MaxScore         float64
	PracticeSessions int
	// RetestAfterDays schedules another topic test, 0 means none.
	RetestAfterDays int
	// ReviewAfterDays schedules a spaced-review session, 0 means none.
	ReviewAfterDays int
	// NextDayReview adds one extra review the following day.
	NextDayReview bool
	// SeedSpacedReviews starts the full review ladder from the test date.
	SeedSpacedReviews bool
	Description       string
}

var topicTestRules = []TopicTestRule{
	{
		MinScore:         0,
		MaxScore:         60,
		PracticeSessions: 1,
		RetestAfterDays:  3,
		NextDayReview:    true,
		Description:      "failed topic test: practice added, retest in 3 days, review tomorrow",
	},
	{
		MinScore:         60,
		MaxScore:         80,
		PracticeSessions: 1,
		ReviewAfterDays:  3,
		Description:      "passable topic test: practice added, spaced review in 3 days",
	},
	{
		MinScore:          80,
		MaxScore:          101,
		SeedSpacedReviews: true,
		Description:       "passed topic test: spaced-review ladder seeded",
	},
}

// TopicTestRuleFor returns the bracket matching a topic-test score.
func TopicTestRuleFor(score float64) TopicTestRule {
	for _, r := range topicTestRules {
		if score >= r.MinScore && score < r.MaxScore {
			return r
		}
	}
	return topicTestRules[len(topicTestRules)-1]
}

// Spaced-review ladders, in days after the learning event.
var (
	spacedReviewIntervals = []int{1, 3, 7, 14, 30}
	memorizationIntervals = []int{1, 2, 4, 7, 14}
)

// SpacedReviewIntervals returns the review ladder for a subject type.
func SpacedReviewIntervals(memorization bool) []int {
	if memorization {
		return append([]int(nil), memorizationIntervals...)
	}
	return append([]int(nil), spacedReviewIntervals...)
}

const (
	// ExcellenceScore is the exam score that emits an achievement signal.
	ExcellenceScore = 90

	// Missed-pattern detection: this many missed sessions of one subject
	// within the trailing window trips the trigger.
	MissedPatternThreshold  = 3
	MissedPatternWindowDays = 7

	// DriftRegenerateThreshold is the mean absolute priority change above
	// which a manual recompute also regenerates the schedule.
	DriftRegenerateThreshold = 15.0
)

// ValidateScore rejects result scores outside the percentage range.
func ValidateScore(score float64) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("score %.1f outside the 0-100 range", score)
	}
	return nil
}
