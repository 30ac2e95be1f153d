package allocator

import "github.com/google/uuid"

// dayState accumulates the per-day counters the placement rules check.
// One instance per day, passed through the loop, never shared.
type dayState struct {
	coef7Count     int
	hardCount      int
	studyMinutes   int
	pomodoroCount  int
	lastWasHard    bool
	languagePlaced bool
	perSubject     map[uuid.UUID]int
}

func newDayState() *dayState {
	return &dayState{perSubject: make(map[uuid.UUID]int)}
}

func (d *dayState) recordStudy(subjectID uuid.UUID, minutes int, coef7, hard, language bool) {
	if coef7 {
		d.coef7Count++
	}
	if hard {
		d.hardCount++
	}
	if language {
		d.languagePlaced = true
	}
	d.lastWasHard = hard
	d.studyMinutes += minutes
	d.pomodoroCount++
	d.perSubject[subjectID]++
}
