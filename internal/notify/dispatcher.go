package notify

import (
	"context"

	"allowly/internal/channel"
	"allowly/internal/domain/event"
	"allowly/internal/domain/family"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Dispatcher resolves a target to concrete users and publishes once per
// user. It is a best-effort side channel: every failure is logged and
// swallowed so the business transaction that produced the event is never
// affected.
type Dispatcher struct {
	users   family.UserRepo
	backend channel.Backend
	log     *zap.Logger
}

var (
	mSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_events_published_total", Help: "Events published to user channels",
	})
	mFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_publish_failures_total", Help: "Failed resolutions and publishes",
	})
)

func NewDispatcher(users family.UserRepo, backend channel.Backend, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		users:   users,
		backend: backend,
		log:     log.With(zap.String("component", "notify.dispatcher")),
	}
}

// Send fans ev out to the users named by target. The membership read runs
// through ctx, so inside a transaction it observes the mutation that
// produced the event. Send never returns an error.
func (d *Dispatcher) Send(ctx context.Context, target Target, ev *event.Event, actor string) {
	for _, uid := range d.resolve(ctx, target, actor) {
		if err := d.backend.Publish(ctx, uid, ev); err != nil {
			mFailed.Inc()
			d.log.Warn("publish failed",
				zap.String("channel", uid),
				zap.String("event", string(ev.Kind)),
				zap.Error(err),
			)
			continue
		}
		mSent.Inc()
	}
}

// resolve computes the recipient uids. A failed membership read resolves to
// no recipients.
func (d *Dispatcher) resolve(ctx context.Context, target Target, actor string) []string {
	switch target.kind {
	case targetMember:
		return []string{target.userUID}
	case targetFamily:
		return d.members(ctx, target.familyUID, func(u *family.User) bool {
			return u.UID != actor
		})
	case targetMemberAndParents:
		return d.members(ctx, target.familyUID, func(u *family.User) bool {
			return (u.UID == target.userUID || u.Role == family.RoleParent) && u.UID != actor
		})
	case targetParents:
		return d.members(ctx, target.familyUID, func(u *family.User) bool {
			return u.Role == family.RoleParent && u.UID != actor
		})
	default:
		return nil
	}
}

func (d *Dispatcher) members(ctx context.Context, familyUID string, keep func(*family.User) bool) []string {
	users, err := d.users.ListByFamily(ctx, familyUID)
	if err != nil {
		mFailed.Inc()
		d.log.Warn("load family failed", zap.String("family", familyUID), zap.Error(err))
		return nil
	}
	var out []string
	for _, u := range users {
		if keep(u) {
			out = append(out, u.UID)
		}
	}
	return out
}
