package allowance

import (
	"context"
	"time"
)

type Repo interface {
	Create(ctx context.Context, a *Allowance) error
	GetByUID(ctx context.Context, uid string) (*Allowance, error)
	GetByUser(ctx context.Context, userUID string) (*Allowance, error)
	Update(ctx context.Context, a *Allowance) error

	// PayDue books one allowance transaction for every allowance scheduled
	// on now's weekday, stamped with now. It must observe the transaction
	// carried by ctx so the payout commits atomically with its caller.
	PayDue(ctx context.Context, now time.Time) (int64, error)
}
