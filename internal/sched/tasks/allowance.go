// Package tasks holds the maintenance tasks registered with the scheduler.
package tasks

import (
	"context"
	"time"

	"allowly/internal/domain/allowance"

	"go.uber.org/zap"
)

// AllowancePayer books one ledger entry per allowance scheduled on the
// current weekday. All bookkeeping happens inside the scheduler's
// transaction, so a payout is never recorded without its marker or vice
// versa.
type AllowancePayer struct {
	Allowances allowance.Repo
	Log        *zap.Logger
}

func (t *AllowancePayer) Name() string { return "allowance-payer" }

func (t *AllowancePayer) Run(ctx context.Context, now time.Time) error {
	paid, err := t.Allowances.PayDue(ctx, now)
	if err != nil {
		return err
	}
	if paid > 0 {
		t.Log.Info("allowances paid", zap.Int64("count", paid))
	}
	return nil
}
