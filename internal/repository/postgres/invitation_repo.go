package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"allowly/internal/domain/invitation"

	"github.com/jackc/pgx/v5"
)

var _ invitation.Repo = (*InvitationRepo)(nil)

type InvitationRepo struct {
	db *DB
}

func NewInvitationRepo(db *DB) *InvitationRepo { return &InvitationRepo{db: db} }

const (
	qInvInsert = `
INSERT INTO invitations
  (uid, role, name, email, allowance_amount, allowance_schedule, time, family_uid)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`

	qInvGet = `
SELECT uid, role, name, email, allowance_amount, allowance_schedule, time, family_uid
FROM invitations
WHERE uid = $1;
`

	qInvListByFamily = `
SELECT uid, role, name, email, allowance_amount, allowance_schedule, time, family_uid
FROM invitations
WHERE family_uid = $1
ORDER BY time;
`

	qInvDelete = `DELETE FROM invitations WHERE uid = $1;`

	qInvDeleteOld = `DELETE FROM invitations WHERE time < $1;`
)

func scanInvitation(row pgx.Row, inv *invitation.Invitation) error {
	if err := row.Scan(&inv.UID, &inv.Role, &inv.Name, &inv.Email,
		&inv.AllowanceAmount, &inv.AllowanceSchedule, &inv.Time, &inv.FamilyUID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan invitation: %w", err)
	}
	return nil
}

func (r *InvitationRepo) Create(ctx context.Context, inv *invitation.Invitation) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.querier(ctx).Exec(ctx, qInvInsert,
		inv.UID, inv.Role, inv.Name, inv.Email,
		inv.AllowanceAmount, inv.AllowanceSchedule, inv.Time, inv.FamilyUID)
	if uniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

func (r *InvitationRepo) GetByUID(ctx context.Context, uid string) (*invitation.Invitation, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var inv invitation.Invitation
	if err := scanInvitation(r.db.querier(ctx).QueryRow(ctx, qInvGet, uid), &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvitationRepo) ListByFamily(ctx context.Context, familyUID string) ([]*invitation.Invitation, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.querier(ctx).Query(ctx, qInvListByFamily, familyUID)
	if err != nil {
		return nil, fmt.Errorf("query invitations: %w", err)
	}
	defer rows.Close()

	var out []*invitation.Invitation
	for rows.Next() {
		var inv invitation.Invitation
		if err := scanInvitation(rows, &inv); err != nil {
			return nil, err
		}
		out = append(out, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *InvitationRepo) Delete(ctx context.Context, uid string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.querier(ctx).Exec(ctx, qInvDelete, uid)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *InvitationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	// Runs inside the scheduler's transaction; no separate timeout.
	cmd, err := r.db.querier(ctx).Exec(ctx, qInvDeleteOld, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("reap invitations: %w", err)
	}
	return cmd.RowsAffected(), nil
}
