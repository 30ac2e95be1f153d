package aggregates

import (
	"context"

	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/pkg/apperr"
	"github.com/memoapp/planner-backend/internal/pkg/dbctx"
)

// TxRunner provides a shared transaction boundary for planner writes.
// Generation and adaptation mutate schedules, sessions and priorities
// all-or-nothing through it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

// NewGormTxRunner returns a transaction runner backed by GORM transactions.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return apperr.New(apperr.CodeInternal, "planner.tx", "transaction runner has nil db", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
