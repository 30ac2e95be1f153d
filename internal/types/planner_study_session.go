package types

import (
	"time"

	"github.com/google/uuid"
)

// Session kinds.
const (
	SessionKindStudy        = "study"
	SessionKindRevision     = "revision"
	SessionKindPractice     = "practice"
	SessionKindLongRevision = "long-revision"
	SessionKindTest         = "test"
	SessionKindTopicTest    = "topic-test"
	SessionKindMockExam     = "mock-exam"
	SessionKindSpacedReview = "spaced-review"
	SessionKindBreak        = "break"
)

// Session statuses.
const (
	SessionStatusScheduled  = "scheduled"
	SessionStatusInProgress = "in-progress"
	SessionStatusPaused     = "paused"
	SessionStatusCompleted  = "completed"
	SessionStatusMissed     = "missed"
	SessionStatusSkipped    = "skipped"
)

// Content phases from the content-suggestion collaborator.
const (
	ContentPhaseIntro    = "intro"
	ContentPhasePractice = "practice"
	ContentPhaseReview   = "review"
)

// PlannerStudySession is the atomic schedulable unit. Break sessions carry a
// nil SubjectID. Outcome fields are populated only on completion and are
// immutable afterwards.
type PlannerStudySession struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ScheduleID uuid.UUID  `gorm:"type:uuid;not null;index" json:"schedule_id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	SubjectID  *uuid.UUID `gorm:"type:uuid;index" json:"subject_id,omitempty"`

	StartsAt        time.Time `gorm:"not null;index" json:"starts_at"`
	EndsAt          time.Time `gorm:"not null" json:"ends_at"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`

	Kind           string  `gorm:"not null;default:'study'" json:"kind"`
	RequiredEnergy int     `gorm:"not null;default:4" json:"required_energy"`
	PriorityScore  float64 `gorm:"not null;default:0" json:"priority_score"`

	ContentRef   *string `json:"content_ref,omitempty"`
	ContentPhase string  `gorm:"not null;default:''" json:"content_phase"`

	IsSpacedReview    bool       `gorm:"not null;default:false" json:"is_spaced_review"`
	OriginTopicTestID *uuid.UUID `gorm:"type:uuid" json:"origin_topic_test_id,omitempty"`

	Status string `gorm:"not null;default:'scheduled';index" json:"status"`

	// Outcome fields, completion only.
	CompletionPercent *int     `json:"completion_percent,omitempty"`
	Mood              *string  `json:"mood,omitempty"`
	Score             *float64 `json:"score,omitempty"`
	Notes             *string  `json:"notes,omitempty"`
	SkipReason        *string  `json:"skip_reason,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (PlannerStudySession) TableName() string { return "planner_study_sessions" }

// IsBreak reports whether the session is a break (no subject attached).
func (s *PlannerStudySession) IsBreak() bool { return s.Kind == SessionKindBreak }

// IsTerminalStatus reports whether a status permits no further transitions.
func IsTerminalStatus(status string) bool {
	switch status {
	case SessionStatusCompleted, SessionStatusMissed, SessionStatusSkipped:
		return true
	}
	return false
}

// CanTransitionSession reports whether a session status transition is part of
// the state machine: scheduled → in-progress ⇄ paused → completed | missed |
// skipped.
func CanTransitionSession(from, to string) bool {
	switch from {
	case SessionStatusScheduled:
		switch to {
		case SessionStatusInProgress, SessionStatusMissed, SessionStatusSkipped:
			return true
		}
	case SessionStatusInProgress:
		switch to {
		case SessionStatusPaused, SessionStatusCompleted, SessionStatusMissed, SessionStatusSkipped:
			return true
		}
	case SessionStatusPaused:
		switch to {
		case SessionStatusInProgress, SessionStatusCompleted, SessionStatusSkipped:
			return true
		}
	}
	return false
}
