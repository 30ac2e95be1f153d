package types

import (
	"time"

	"github.com/google/uuid"
)

// Subject is the academic-profile view of one subject. It is supplied by the
// academic profile provider and never persisted by this engine.
type Subject struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Coefficient int         `json:"coefficient"` // administrative weight, 1-7
	Difficulty  int         `json:"difficulty"`  // rated difficulty, 1-10
	IsLanguage  bool        `json:"is_language"`
	ExamDates   []time.Time `json:"exam_dates"`
}

// AcademicContext is the provider's coarse description of the learner.
type AcademicContext struct {
	Year   string `json:"year"`
	Stream string `json:"stream"`
}
