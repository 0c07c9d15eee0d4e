package postgres

import (
	"context"
	"fmt"

	"allowly/internal/domain/transaction"
)

var _ transaction.Repo = (*TransactionRepo)(nil)

type TransactionRepo struct {
	db *DB
}

func NewTransactionRepo(db *DB) *TransactionRepo { return &TransactionRepo{db: db} }

const (
	qTxInsert = `
INSERT INTO transactions (kind, user_uid, description, amount, time)
VALUES ($1, $2, $3, $4, $5)
RETURNING uid;
`

	qTxListByUser = `
SELECT uid, kind, user_uid, description, amount, time
FROM transactions
WHERE user_uid = $1
ORDER BY time DESC, uid DESC
LIMIT $2;
`

	qTxBalance = `
SELECT COALESCE(SUM(amount), 0)
FROM transactions
WHERE user_uid = $1;
`
)

func (r *TransactionRepo) Create(ctx context.Context, t *transaction.Transaction) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	row := r.db.querier(ctx).QueryRow(ctx, qTxInsert, t.Kind, t.UserUID, t.Description, t.Amount, t.Time)
	if err := row.Scan(&t.UID); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepo) ListByUser(ctx context.Context, userUID string, limit int) ([]*transaction.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.querier(ctx).Query(ctx, qTxListByUser, userUID, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []*transaction.Transaction
	for rows.Next() {
		var t transaction.Transaction
		if err := rows.Scan(&t.UID, &t.Kind, &t.UserUID, &t.Description, &t.Amount, &t.Time); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *TransactionRepo) BalanceByUser(ctx context.Context, userUID string) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var sum int64
	if err := r.db.querier(ctx).QueryRow(ctx, qTxBalance, userUID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return sum, nil
}
