package tasks

import (
	"context"
	"time"

	"allowly/internal/domain/invitation"

	"go.uber.org/zap"
)

// InvitationReaper deletes invitations that were never accepted. An expired
// invitation link simply stops resolving.
type InvitationReaper struct {
	Invitations invitation.Repo
	TTL         time.Duration
	Log         *zap.Logger
}

func (t *InvitationReaper) Name() string { return "invitation-reaper" }

func (t *InvitationReaper) Run(ctx context.Context, now time.Time) error {
	ttl := t.TTL
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	reaped, err := t.Invitations.DeleteOlderThan(ctx, now.Add(-ttl))
	if err != nil {
		return err
	}
	if reaped > 0 {
		t.Log.Info("stale invitations removed", zap.Int64("count", reaped))
	}
	return nil
}
