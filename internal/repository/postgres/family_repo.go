package postgres

import (
	"context"
	"errors"
	"fmt"

	"allowly/internal/domain/family"

	"github.com/jackc/pgx/v5"
)

var _ family.Repo = (*FamilyRepo)(nil)

type FamilyRepo struct {
	db *DB
}

func NewFamilyRepo(db *DB) *FamilyRepo { return &FamilyRepo{db: db} }

const (
	qFamilyInsert = `INSERT INTO families (uid, name) VALUES ($1, $2);`
	qFamilyGet    = `SELECT uid, name FROM families WHERE uid = $1;`
)

func (r *FamilyRepo) Create(ctx context.Context, f *family.Family) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.querier(ctx).Exec(ctx, qFamilyInsert, f.UID, f.Name)
	if uniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert family: %w", err)
	}
	return nil
}

func (r *FamilyRepo) GetByUID(ctx context.Context, uid string) (*family.Family, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var f family.Family
	if err := r.db.querier(ctx).QueryRow(ctx, qFamilyGet, uid).Scan(&f.UID, &f.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan family: %w", err)
	}
	return &f, nil
}
