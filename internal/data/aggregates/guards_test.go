package aggregates

import (
	"testing"

	"github.com/memoapp/planner-backend/internal/pkg/apperr"
)

func TestRequireCASSuccess(t *testing.T) {
	if err := RequireCASSuccess(true, "op", "msg"); err != nil {
		t.Fatalf("expected nil for ok=true, got %v", err)
	}
	err := RequireCASSuccess(false, "schedule.activate", "lost race")
	if !apperr.IsCode(err, apperr.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRequireStatusAllowed(t *testing.T) {
	if err := RequireStatusAllowed("op", "draft", "draft", "inactive"); err != nil {
		t.Fatalf("draft should be allowed: %v", err)
	}
	if err := RequireStatusAllowed("op", "Active", "active"); err != nil {
		t.Fatalf("status match must be case-insensitive: %v", err)
	}
	err := RequireStatusAllowed("op", "active", "draft")
	if !apperr.IsCode(err, apperr.CodeConflict) {
		t.Fatalf("expected conflict for disallowed status, got %v", err)
	}
	err = RequireStatusAllowed("op", "draft")
	if !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("expected validation for empty allowed list, got %v", err)
	}
}
