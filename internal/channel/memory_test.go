package channel

import (
	"context"
	"testing"
	"time"

	"allowly/internal/domain/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, sub Subscription, n int) []*event.Event {
	t.Helper()
	out := make([]*event.Event, 0, n)
	for len(out) < n {
		select {
		case d, ok := <-sub.Events():
			require.True(t, ok, "subscription closed early")
			require.NoError(t, d.Err)
			out = append(out, d.Event)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestMemoryPreservesPublishOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	sub, err := m.Subscribe(ctx, "u1")
	require.NoError(t, err)
	defer sub.Close()

	published := []*event.Event{
		event.Ping(),
		event.FamilyMemberAdded(event.Member{UID: "u2"}, "u1"),
		event.Logout(),
	}
	for _, ev := range published {
		require.NoError(t, m.Publish(ctx, "u1", ev))
	}

	assert.Equal(t, published, collect(t, sub, len(published)))
}

func TestMemoryNoReplayBeforeSubscribe(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Publish(ctx, "u1", event.Ping()))

	sub, err := m.Subscribe(ctx, "u1")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, m.Publish(ctx, "u1", event.Logout()))

	got := collect(t, sub, 1)
	assert.Equal(t, event.TypeLogout, got[0].Kind)
}

func TestMemoryChannelsAreIndependent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	s1, err := m.Subscribe(ctx, "u1")
	require.NoError(t, err)
	defer s1.Close()
	s2, err := m.Subscribe(ctx, "u2")
	require.NoError(t, err)
	defer s2.Close()

	require.NoError(t, m.Publish(ctx, "u1", event.Ping()))

	got := collect(t, s1, 1)
	assert.Equal(t, event.TypePing, got[0].Kind)

	select {
	case d := <-s2.Events():
		t.Fatalf("unexpected delivery on other channel: %+v", d)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryPublisherNeverBlocks(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	sub, err := m.Subscribe(ctx, "u1")
	require.NoError(t, err)
	defer sub.Close()

	// Nobody reads while publishing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_ = m.Publish(ctx, "u1", event.Ping())
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow consumer")
	}

	got := collect(t, sub, 1000)
	assert.Len(t, got, 1000)
}

func TestMemoryCloseEndsStream(t *testing.T) {
	m := NewMemory()
	sub, err := m.Subscribe(context.Background(), "u1")
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed")
	}

	// Publishing to a closed subscription is a no-op.
	require.NoError(t, m.Publish(context.Background(), "u1", event.Ping()))
}
