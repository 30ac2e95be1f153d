package types

import (
	"time"

	"github.com/google/uuid"
)

// SubjectPriority is the cached scoring result for one user×subject pair.
// It is overwritten on every recomputation; a cache, not a ledger.
type SubjectPriority struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subject_priority_user_subject" json:"user_id"`
	SubjectID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subject_priority_user_subject" json:"subject_id"`

	CoefficientScore    float64 `gorm:"not null;default:0" json:"coefficient_score"`
	ExamProximityScore  float64 `gorm:"not null;default:0" json:"exam_proximity_score"`
	DifficultyScore     float64 `gorm:"not null;default:0" json:"difficulty_score"`
	InactivityScore     float64 `gorm:"not null;default:0" json:"inactivity_score"`
	PerformanceGapScore float64 `gorm:"not null;default:0" json:"performance_gap_score"`
	TotalScore          float64 `gorm:"not null;default:0;index" json:"total_score"`

	CalculatedAt time.Time `gorm:"not null" json:"calculated_at"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (SubjectPriority) TableName() string { return "subject_priorities" }
