package request

import "context"

type Repo interface {
	// Create assigns the generated uid to r.
	Create(ctx context.Context, r *Request) error
	GetByUID(ctx context.Context, uid int64) (*Request, error)
	ListByUser(ctx context.Context, userUID string) ([]*Request, error)
	Delete(ctx context.Context, uid int64) error
}
