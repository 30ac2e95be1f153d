package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ScheduleStatusDraft    = "draft"
	ScheduleStatusActive   = "active"
	ScheduleStatusInactive = "inactive"
)

// PlannerSchedule is one generated plan over [StartDate, EndDate).
// At most one schedule per user is active; superseded schedules are kept
// (soft-deleted at worst) for analytics history.
type PlannerSchedule struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`
	Status    string    `gorm:"not null;default:'draft';index" json:"status"`
	Mode      string    `gorm:"not null;default:'auto'" json:"mode"`

	AlgorithmVersion string         `gorm:"not null;default:''" json:"algorithm_version"`
	TotalStudyHours  float64        `gorm:"not null;default:0" json:"total_study_hours"`
	SubjectsCovered  datatypes.JSON `gorm:"type:jsonb" json:"subjects_covered"`
	FeasibilityScore float64        `gorm:"not null;default:0" json:"feasibility_score"`
	GeneratedAt      time.Time      `gorm:"not null" json:"generated_at"`

	Sessions []PlannerStudySession `gorm:"foreignKey:ScheduleID" json:"sessions,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PlannerSchedule) TableName() string { return "planner_schedules" }
