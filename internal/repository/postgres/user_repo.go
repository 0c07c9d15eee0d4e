package postgres

import (
	"context"
	"errors"
	"fmt"

	"allowly/internal/domain/family"

	"github.com/jackc/pgx/v5"
)

var _ family.UserRepo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const (
	qUserInsert = `
INSERT INTO users (uid, role, name, email, family_uid)
VALUES ($1, $2, $3, NULLIF($4, ''), $5);
`

	qUserGet = `
SELECT uid, role, name, COALESCE(email, ''), family_uid
FROM users
WHERE uid = $1;
`

	qUserGetByEmail = `
SELECT uid, role, name, COALESCE(email, ''), family_uid
FROM users
WHERE email = $1;
`

	qUserGetByName = `
SELECT uid, role, name, COALESCE(email, ''), family_uid
FROM users
WHERE family_uid = $1 AND name = $2;
`

	qUserListByFamily = `
SELECT uid, role, name, COALESCE(email, ''), family_uid
FROM users
WHERE family_uid = $1
ORDER BY name;
`

	qUserUpdate = `
UPDATE users
SET role = $2, name = $3, email = NULLIF($4, ''), family_uid = $5
WHERE uid = $1;
`

	qUserDelete = `DELETE FROM users WHERE uid = $1;`
)

func scanUser(row pgx.Row, u *family.User) error {
	if err := row.Scan(&u.UID, &u.Role, &u.Name, &u.Email, &u.FamilyUID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan user: %w", err)
	}
	return nil
}

func (r *UserRepo) Create(ctx context.Context, u *family.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.querier(ctx).Exec(ctx, qUserInsert, u.UID, u.Role, u.Name, u.Email, u.FamilyUID)
	if uniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByUID(ctx context.Context, uid string) (*family.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u family.User
	if err := scanUser(r.db.querier(ctx).QueryRow(ctx, qUserGet, uid), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*family.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u family.User
	if err := scanUser(r.db.querier(ctx).QueryRow(ctx, qUserGetByEmail, email), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByName(ctx context.Context, familyUID, name string) (*family.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u family.User
	if err := scanUser(r.db.querier(ctx).QueryRow(ctx, qUserGetByName, familyUID, name), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ListByFamily(ctx context.Context, familyUID string) ([]*family.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.querier(ctx).Query(ctx, qUserListByFamily, familyUID)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []*family.User
	for rows.Next() {
		var u family.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *UserRepo) Update(ctx context.Context, u *family.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.querier(ctx).Exec(ctx, qUserUpdate, u.UID, u.Role, u.Name, u.Email, u.FamilyUID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, uid string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.querier(ctx).Exec(ctx, qUserDelete, uid)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
