package channel

import (
	"context"
	"sync"

	"allowly/internal/domain/event"
)

// Fixture is a deterministic backend for tests of downstream consumers.
// Every Subscribe yields the same pre-seeded deliveries, regardless of what
// has been published; publishes are recorded for assertions and can be made
// to fail.
type Fixture struct {
	mu        sync.Mutex
	seeded    []Delivery
	published []Published
	// PublishErr, when set, is returned by every Publish call.
	PublishErr error
}

// Published is one recorded Publish call.
type Published struct {
	Channel string
	Event   *event.Event
}

// NewFixture seeds the deliveries replayed to every subscriber.
func NewFixture(seeded ...Delivery) *Fixture {
	return &Fixture{seeded: seeded}
}

// NewFixtureEvents is NewFixture for the common error-free case.
func NewFixtureEvents(events ...*event.Event) *Fixture {
	seeded := make([]Delivery, 0, len(events))
	for _, ev := range events {
		seeded = append(seeded, Delivery{Event: ev})
	}
	return NewFixture(seeded...)
}

var _ Backend = (*Fixture)(nil)

func (f *Fixture) Publish(_ context.Context, channel string, ev *event.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.published = append(f.published, Published{Channel: channel, Event: ev})
	return nil
}

func (f *Fixture) Subscribe(context.Context, string) (Subscription, error) {
	f.mu.Lock()
	seeded := append([]Delivery(nil), f.seeded...)
	f.mu.Unlock()

	out := make(chan Delivery, len(seeded))
	for _, d := range seeded {
		out <- d
	}
	close(out)
	return fixtureSub{out: out}, nil
}

// PublishedTo lists the events recorded for one channel, in publish order.
func (f *Fixture) PublishedTo(channel string) []*event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*event.Event
	for _, p := range f.published {
		if p.Channel == channel {
			out = append(out, p.Event)
		}
	}
	return out
}

// Published returns every recorded Publish call.
func (f *Fixture) Recorded() []Published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Published(nil), f.published...)
}

type fixtureSub struct {
	out chan Delivery
}

func (s fixtureSub) Events() <-chan Delivery { return s.out }
func (s fixtureSub) Close() error            { return nil }
