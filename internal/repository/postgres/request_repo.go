package postgres

import (
	"context"
	"errors"
	"fmt"

	"allowly/internal/domain/request"

	"github.com/jackc/pgx/v5"
)

var _ request.Repo = (*RequestRepo)(nil)

type RequestRepo struct {
	db *DB
}

func NewRequestRepo(db *DB) *RequestRepo { return &RequestRepo{db: db} }

const (
	qRequestInsert = `
INSERT INTO requests (user_uid, name, description, amount, url, time)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
RETURNING uid;
`

	qRequestGet = `
SELECT uid, user_uid, name, description, amount, COALESCE(url, ''), time
FROM requests
WHERE uid = $1;
`

	qRequestListByUser = `
SELECT uid, user_uid, name, description, amount, COALESCE(url, ''), time
FROM requests
WHERE user_uid = $1
ORDER BY time DESC;
`

	qRequestDelete = `DELETE FROM requests WHERE uid = $1;`
)

func scanRequest(row pgx.Row, rq *request.Request) error {
	if err := row.Scan(&rq.UID, &rq.UserUID, &rq.Name, &rq.Description, &rq.Amount, &rq.URL, &rq.Time); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan request: %w", err)
	}
	return nil
}

func (r *RequestRepo) Create(ctx context.Context, rq *request.Request) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	row := r.db.querier(ctx).QueryRow(ctx, qRequestInsert,
		rq.UserUID, rq.Name, rq.Description, rq.Amount, rq.URL, rq.Time)
	if err := row.Scan(&rq.UID); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (r *RequestRepo) GetByUID(ctx context.Context, uid int64) (*request.Request, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var rq request.Request
	if err := scanRequest(r.db.querier(ctx).QueryRow(ctx, qRequestGet, uid), &rq); err != nil {
		return nil, err
	}
	return &rq, nil
}

func (r *RequestRepo) ListByUser(ctx context.Context, userUID string) ([]*request.Request, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.querier(ctx).Query(ctx, qRequestListByUser, userUID)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	var out []*request.Request
	for rows.Next() {
		var rq request.Request
		if err := scanRequest(rows, &rq); err != nil {
			return nil, err
		}
		out = append(out, &rq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *RequestRepo) Delete(ctx context.Context, uid int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.querier(ctx).Exec(ctx, qRequestDelete, uid)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
