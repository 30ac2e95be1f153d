package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Adaptation triggers.
const (
	AdaptationTriggerExamResult    = "exam_result"
	AdaptationTriggerTopicTest     = "topic_test"
	AdaptationTriggerMissedPattern = "missed_pattern"
	AdaptationTriggerManual        = "manual"
)

// AdaptationEvent records one adaptation decision for audit and
// explainability. Append-only; never mutated after creation.
type AdaptationEvent struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	SubjectID *uuid.UUID `gorm:"type:uuid;index" json:"subject_id,omitempty"`

	Trigger       string         `gorm:"not null;index" json:"trigger"`
	PriorityDelta float64        `gorm:"not null;default:0" json:"priority_delta"`
	Changes       datatypes.JSON `gorm:"type:jsonb" json:"changes"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (AdaptationEvent) TableName() string { return "adaptation_events" }
