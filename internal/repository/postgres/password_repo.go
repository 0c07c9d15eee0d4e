package postgres

import (
	"context"
	"errors"
	"fmt"

	"allowly/internal/domain/family"

	"github.com/jackc/pgx/v5"
)

var _ family.PasswordRepo = (*PasswordRepo)(nil)

type PasswordRepo struct {
	db *DB
}

func NewPasswordRepo(db *DB) *PasswordRepo { return &PasswordRepo{db: db} }

const (
	qPasswordSet = `
INSERT INTO passwords (user_uid, hash)
VALUES ($1, $2)
ON CONFLICT (user_uid) DO UPDATE SET hash = EXCLUDED.hash;
`

	qPasswordGet = `SELECT hash FROM passwords WHERE user_uid = $1;`
)

func (r *PasswordRepo) Set(ctx context.Context, userUID, hash string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.querier(ctx).Exec(ctx, qPasswordSet, userUID, hash); err != nil {
		return fmt.Errorf("upsert password: %w", err)
	}
	return nil
}

func (r *PasswordRepo) Hash(ctx context.Context, userUID string) (string, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var hash string
	if err := r.db.querier(ctx).QueryRow(ctx, qPasswordGet, userUID).Scan(&hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("scan password: %w", err)
	}
	return hash, nil
}
