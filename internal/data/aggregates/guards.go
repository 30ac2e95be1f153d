package aggregates

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/pkg/apperr"
	"github.com/memoapp/planner-backend/internal/pkg/dbctx"
)

// Guard is the status-conditioned compare-and-set contract.
type Guard interface {
	UpdateByStatus(dbc dbctx.Context, table string, id uuid.UUID, allowedStatuses []string, updates map[string]any) (bool, error)
}

// StatusGuard provides status-conditioned compare-and-set updates.
// Schedule activation depends on it: the winner of a race flips the row,
// the loser sees zero rows affected and gets a typed conflict.
type StatusGuard struct {
	db *gorm.DB
}

func NewStatusGuard(db *gorm.DB) StatusGuard {
	return StatusGuard{db: db}
}

func (g StatusGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, apperr.Validation("guard.db", "missing db transaction context")
}

// UpdateByStatus updates a row only when id+status guard matches.
func (g StatusGuard) UpdateByStatus(dbc dbctx.Context, table string, id uuid.UUID, allowedStatuses []string, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, apperr.Validation("guard.update_by_status", "table and id are required")
	}
	if len(allowedStatuses) == 0 {
		return false, apperr.Validation("guard.update_by_status", "allowedStatuses must not be empty")
	}
	res := db.Table(table).
		Where("id = ? AND status IN ?", id, allowedStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict.
func RequireCASSuccess(ok bool, op, message string) error {
	if ok {
		return nil
	}
	return apperr.Conflict(op, strings.TrimSpace(message))
}

// RequireStatusAllowed validates current status against allowed values.
func RequireStatusAllowed(op, current string, allowed ...string) error {
	current = strings.TrimSpace(current)
	if len(allowed) == 0 {
		return apperr.Validation(op, "allowed statuses cannot be empty")
	}
	for _, s := range allowed {
		if strings.EqualFold(current, strings.TrimSpace(s)) {
			return nil
		}
	}
	return apperr.Conflict(op, "status transition not allowed")
}
