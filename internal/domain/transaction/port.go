package transaction

import "context"

type Repo interface {
	// Create assigns the generated uid to t.
	Create(ctx context.Context, t *Transaction) error
	// ListByUser returns entries newest first, at most limit of them.
	ListByUser(ctx context.Context, userUID string, limit int) ([]*Transaction, error)
	// BalanceByUser sums all entries for a user.
	BalanceByUser(ctx context.Context, userUID string) (int64, error)
}
