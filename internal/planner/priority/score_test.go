package priority

import (
	"testing"
	"time"

	"github.com/memoapp/planner-backend/internal/types"
)

func TestExamProximityScoreBrackets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		days int
		want float64
	}{
		{"five days out", 5, 100},
		{"exactly seven", 7, 100},
		{"ten days", 10, 80},
		{"three weeks", 21, 60},
		{"six weeks", 45, 40},
		{"twelve weeks", 84, 20},
		{"far future", 200, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exam := now.AddDate(0, 0, tc.days)
			got := ExamProximityScore([]time.Time{exam}, now)
			if got != tc.want {
				t.Fatalf("days=%d: got %.0f, want %.0f", tc.days, got, tc.want)
			}
		})
	}
}

func TestExamProximityScoreIgnoresPastExams(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -10)
	if got := ExamProximityScore([]time.Time{past}, now); got != 10 {
		t.Fatalf("past exam must not raise urgency, got %.0f", got)
	}
	if got := ExamProximityScore(nil, now); got != 10 {
		t.Fatalf("no exams should score the floor, got %.0f", got)
	}
	// The nearest future exam wins over later ones.
	near := now.AddDate(0, 0, 3)
	far := now.AddDate(0, 0, 40)
	if got := ExamProximityScore([]time.Time{far, near, past}, now); got != 100 {
		t.Fatalf("nearest future exam must win, got %.0f", got)
	}
}

func TestInactivityScoreBrackets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		days int
		want float64
	}{
		{0, 0}, {1, 0}, {2, 20}, {5, 50}, {10, 70}, {20, 90}, {45, 100},
	}
	for _, tc := range cases {
		last := now.AddDate(0, 0, -tc.days)
		if got := InactivityScore(&last, now); got != tc.want {
			t.Fatalf("days=%d: got %.0f, want %.0f", tc.days, got, tc.want)
		}
	}
	if got := InactivityScore(nil, now); got != 100 {
		t.Fatalf("never studied must score 100, got %.0f", got)
	}
}

func TestDifficultyAndCoefficientScores(t *testing.T) {
	if got := DifficultyScore(7); got != 70 {
		t.Fatalf("difficulty 7: got %.0f", got)
	}
	if got := DifficultyScore(15); got != 100 {
		t.Fatalf("difficulty clamps high, got %.0f", got)
	}
	if got := CoefficientScore(7); got != 100 {
		t.Fatalf("coefficient 7: got %.0f", got)
	}
	if got := CoefficientScore(0); got != CoefficientScore(1) {
		t.Fatalf("coefficient clamps low")
	}
}

func TestPerformanceGapScore(t *testing.T) {
	avg := 65.0
	if got := PerformanceGapScore(&avg, nil); got != 35 {
		t.Fatalf("avg 65 without target: got %.0f", got)
	}
	if got := PerformanceGapScore(nil, nil); got != 50 {
		t.Fatalf("no history must be neutral, got %.0f", got)
	}
	high := 120.0
	if got := PerformanceGapScore(&high, nil); got != 0 {
		t.Fatalf("gap clamps at 0, got %.0f", got)
	}
}

func TestPerformanceGapScoreAgainstTarget(t *testing.T) {
	avg, target := 60.0, 80.0
	if got := PerformanceGapScore(&avg, &target); got != 25 {
		t.Fatalf("avg 60 target 80: got %.0f, want 25", got)
	}
	met := 85.0
	if got := PerformanceGapScore(&met, &target); got != 0 {
		t.Fatalf("average above target must score 0, got %.0f", got)
	}
	perfect := 100.0
	if got := PerformanceGapScore(&avg, &perfect); got != 40 {
		t.Fatalf("explicit target 100 must match the default, got %.0f", got)
	}
	zero := 0.0
	if got := PerformanceGapScore(&avg, &zero); got != 40 {
		t.Fatalf("a non-positive target must fall back to 100, got %.0f", got)
	}
}

func TestTotalWeighting(t *testing.T) {
	c := Components{Coefficient: 100, ExamProximity: 0, Difficulty: 0, Inactivity: 0, PerformanceGap: 0}
	w := Weights{Coefficient: 50, ExamProximity: 50}
	if got := c.Total(w); got != 50 {
		t.Fatalf("expected 50, got %.1f", got)
	}
	// Weights need not sum to 100; normalization handles any positive sum.
	w2 := Weights{Coefficient: 3, ExamProximity: 1}
	if got := c.Total(w2); got != 75 {
		t.Fatalf("expected 75 with 3:1 weights, got %.1f", got)
	}
	if got := c.Total(Weights{}); got != 0 {
		t.Fatalf("zero weights must degrade to 0, got %.1f", got)
	}
}

func TestScoreSubjectIsDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	last := now.AddDate(0, 0, -5)
	avg := 70.0
	subject := types.Subject{
		Coefficient: 5,
		Difficulty:  8,
		ExamDates:   []time.Time{now.AddDate(0, 0, 12)},
	}
	a := ScoreSubject(subject, &last, &avg, nil, now)
	b := ScoreSubject(subject, &last, &avg, nil, now)
	if a != b {
		t.Fatalf("same inputs produced different components: %+v vs %+v", a, b)
	}
	if a.ExamProximity != 80 || a.Inactivity != 50 || a.Difficulty != 80 || a.PerformanceGap != 30 {
		t.Fatalf("unexpected components: %+v", a)
	}
}
