package invitation

import (
	"context"
	"time"
)

type Repo interface {
	Create(ctx context.Context, inv *Invitation) error
	GetByUID(ctx context.Context, uid string) (*Invitation, error)
	ListByFamily(ctx context.Context, familyUID string) ([]*Invitation, error)
	Delete(ctx context.Context, uid string) error
	// DeleteOlderThan removes invitations created before cutoff and reports
	// how many were removed. Used by the reaper task; must observe the
	// transaction carried by ctx.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
