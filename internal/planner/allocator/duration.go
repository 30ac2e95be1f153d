package allocator

import (
	"math"

	"github.com/memoapp/planner-backend/internal/types"
)

const (
	// MinSessionMinutes is the shortest session worth scheduling.
	MinSessionMinutes = 15
	// MaxSessionMinutes caps any single session.
	MaxSessionMinutes = 180
)

// sessionDuration computes the minutes a session should run: the
// coefficient's base duration inflated by the buffer rate, compressed when
// the slot's energy only just matches the requirement, rounded to 5 minutes
// and clamped. Clipping to the interval remainder happens at placement.
func sessionDuration(settings *types.PlannerSettings, coefficient, slotEnergy, requiredEnergy int) int {
	base := float64(settings.DurationForCoefficient(coefficient))
	base *= 1 + settings.BufferRate
	if slotEnergy-requiredEnergy < 2 {
		base *= 0.9
	}
	minutes := int(math.Round(base/5)) * 5
	if minutes < MinSessionMinutes {
		minutes = MinSessionMinutes
	}
	if minutes > MaxSessionMinutes {
		minutes = MaxSessionMinutes
	}
	return minutes
}

// requiredEnergyFor maps rated difficulty onto the 1-10 energy a session
// needs from its slot.
func requiredEnergyFor(difficulty int) int {
	switch {
	case difficulty >= 7:
		return 7
	case difficulty >= 4:
		return 4
	default:
		return 2
	}
}

// weeklySessionTarget is the per-week cap for one subject, scaled with its
// priority so strong subjects cannot monopolize the calendar.
func weeklySessionTarget(totalScore float64) int {
	return 2 + int(math.Round(totalScore/20))
}

// roundTo5 rounds minutes down to the previous multiple of five.
func roundTo5(minutes int) int {
	return minutes - minutes%5
}
