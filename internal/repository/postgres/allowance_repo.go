package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"allowly/internal/domain/allowance"
	"allowly/internal/domain/transaction"

	"github.com/jackc/pgx/v5"
)

var _ allowance.Repo = (*AllowanceRepo)(nil)

type AllowanceRepo struct {
	db *DB
}

func NewAllowanceRepo(db *DB) *AllowanceRepo { return &AllowanceRepo{db: db} }

const (
	qAllowanceInsert = `
INSERT INTO allowances (uid, user_uid, amount, schedule)
VALUES ($1, $2, $3, $4);
`

	qAllowanceGet = `
SELECT uid, user_uid, amount, schedule
FROM allowances
WHERE uid = $1;
`

	qAllowanceGetByUser = `
SELECT uid, user_uid, amount, schedule
FROM allowances
WHERE user_uid = $1;
`

	qAllowanceUpdate = `
UPDATE allowances
SET amount = $2, schedule = $3
WHERE uid = $1;
`

	// One insert-select books every allowance due on a weekday atomically
	// with the caller's transaction.
	qAllowancePayDue = `
INSERT INTO transactions (kind, user_uid, description, amount, time)
SELECT $1, user_uid, '', amount, $2
FROM allowances
WHERE schedule = $3;
`
)

func scanAllowance(row pgx.Row, a *allowance.Allowance) error {
	if err := row.Scan(&a.UID, &a.UserUID, &a.Amount, &a.Schedule); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan allowance: %w", err)
	}
	return nil
}

func (r *AllowanceRepo) Create(ctx context.Context, a *allowance.Allowance) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.querier(ctx).Exec(ctx, qAllowanceInsert, a.UID, a.UserUID, a.Amount, a.Schedule)
	if uniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert allowance: %w", err)
	}
	return nil
}

func (r *AllowanceRepo) GetByUID(ctx context.Context, uid string) (*allowance.Allowance, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var a allowance.Allowance
	if err := scanAllowance(r.db.querier(ctx).QueryRow(ctx, qAllowanceGet, uid), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AllowanceRepo) GetByUser(ctx context.Context, userUID string) (*allowance.Allowance, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var a allowance.Allowance
	if err := scanAllowance(r.db.querier(ctx).QueryRow(ctx, qAllowanceGetByUser, userUID), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AllowanceRepo) Update(ctx context.Context, a *allowance.Allowance) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.querier(ctx).Exec(ctx, qAllowanceUpdate, a.UID, a.Amount, a.Schedule)
	if err != nil {
		return fmt.Errorf("update allowance: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AllowanceRepo) PayDue(ctx context.Context, now time.Time) (int64, error) {
	// No statement timeout here: the payout runs inside the scheduler's
	// transaction and must share its lifetime.
	cmd, err := r.db.querier(ctx).Exec(ctx, qAllowancePayDue,
		transaction.KindAllowance, now.UTC(), allowance.ScheduleOn(now.UTC()))
	if err != nil {
		return 0, fmt.Errorf("pay due allowances: %w", err)
	}
	return cmd.RowsAffected(), nil
}
