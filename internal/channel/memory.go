package channel

import (
	"context"
	"sync"

	"allowly/internal/domain/event"
)

// Memory is an in-process backend for single-instance deployments and tests.
// Subscribers get an unbounded, order-preserving feed; a channel exists only
// while it has subscribers.
type Memory struct {
	mu   sync.Mutex
	subs map[string][]*memorySub
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]*memorySub)}
}

var _ Backend = (*Memory)(nil)

type memorySub struct {
	backend *Memory
	channel string

	mu      sync.Mutex
	pending []Delivery
	wake    chan struct{}
	out     chan Delivery
	closed  bool
	done    chan struct{}
}

func (m *Memory) Publish(_ context.Context, channel string, ev *event.Event) error {
	m.mu.Lock()
	subs := append([]*memorySub(nil), m.subs[channel]...)
	m.mu.Unlock()

	for _, s := range subs {
		s.enqueue(Delivery{Event: ev})
	}
	return nil
}

func (m *Memory) Subscribe(_ context.Context, channel string) (Subscription, error) {
	s := &memorySub{
		backend: m,
		channel: channel,
		wake:    make(chan struct{}, 1),
		out:     make(chan Delivery),
		done:    make(chan struct{}),
	}
	m.mu.Lock()
	m.subs[channel] = append(m.subs[channel], s)
	m.mu.Unlock()

	go s.pump()
	return s, nil
}

// enqueue buffers without bound so a slow consumer never blocks a publisher.
func (s *memorySub) enqueue(d Delivery) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, d)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *memorySub) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, d := range batch {
			select {
			case s.out <- d:
			case <-s.done:
				return
			}
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}

func (s *memorySub) Events() <-chan Delivery { return s.out }

func (s *memorySub) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	close(s.done)

	m := s.backend
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[s.channel]
	for i, sub := range subs {
		if sub == s {
			m.subs[s.channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(m.subs[s.channel]) == 0 {
		delete(m.subs, s.channel)
	}
	return nil
}
