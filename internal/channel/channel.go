// Package channel is the pub/sub layer that carries notification events to
// live client connections. A channel is a per-user mailbox addressed by the
// user's uid; the backend decides whether it lives in process memory or on a
// broker shared by several processes.
package channel

import "context"

import "allowly/internal/domain/event"

// Delivery is one received event, or the error that replaced it. A decode
// failure poisons a single delivery, never the stream.
type Delivery struct {
	Event *event.Event
	Err   error
}

// Subscription is a live feed of one channel. Events published before the
// subscription existed are not replayed.
type Subscription interface {
	// Events yields deliveries in publish order. The channel is closed when
	// the subscription is closed or the backend shuts down.
	Events() <-chan Delivery
	Close() error
}

// Backend is the capability interface over the pub/sub implementation,
// chosen once at process start.
type Backend interface {
	Publish(ctx context.Context, channel string, ev *event.Event) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}
