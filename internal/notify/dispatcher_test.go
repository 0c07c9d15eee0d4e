package notify

import (
	"context"
	"errors"
	"sort"
	"testing"

	"allowly/internal/channel"
	"allowly/internal/domain/event"
	"allowly/internal/domain/family"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubUsers serves one family from memory.
type stubUsers struct {
	byFamily map[string][]*family.User
	listErr  error
}

func (s *stubUsers) ListByFamily(_ context.Context, familyUID string) ([]*family.User, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.byFamily[familyUID], nil
}

func (s *stubUsers) Create(context.Context, *family.User) error { return nil }
func (s *stubUsers) GetByUID(context.Context, string) (*family.User, error) {
	return nil, errors.New("not implemented")
}
func (s *stubUsers) GetByEmail(context.Context, string) (*family.User, error) {
	return nil, errors.New("not implemented")
}
func (s *stubUsers) GetByName(context.Context, string, string) (*family.User, error) {
	return nil, errors.New("not implemented")
}
func (s *stubUsers) Update(context.Context, *family.User) error { return nil }
func (s *stubUsers) Delete(context.Context, string) error       { return nil }

func testFamily() *stubUsers {
	return &stubUsers{byFamily: map[string][]*family.User{
		"f1": {
			{UID: "mom", Role: family.RoleParent, FamilyUID: "f1"},
			{UID: "dad", Role: family.RoleParent, FamilyUID: "f1"},
			{UID: "kid1", Role: family.RoleChild, FamilyUID: "f1"},
			{UID: "kid2", Role: family.RoleChild, FamilyUID: "f1"},
		},
	}}
}

func channelsOf(f *channel.Fixture) []string {
	var out []string
	for _, p := range f.Recorded() {
		out = append(out, p.Channel)
	}
	sort.Strings(out)
	return out
}

func TestSendToFamilyExcludesActor(t *testing.T) {
	f := channel.NewFixture()
	d := NewDispatcher(testFamily(), f, zap.NewNop())

	d.Send(context.Background(), ToFamily("f1"), event.Ping(), "mom")

	assert.Equal(t, []string{"dad", "kid1", "kid2"}, channelsOf(f))
}

func TestSendToParentsExcludesActorAndChildren(t *testing.T) {
	f := channel.NewFixture()
	d := NewDispatcher(testFamily(), f, zap.NewNop())

	d.Send(context.Background(), ToParents("f1"), event.Ping(), "kid1")

	assert.Equal(t, []string{"dad", "mom"}, channelsOf(f))
}

func TestSendToMemberAndParents(t *testing.T) {
	f := channel.NewFixture()
	d := NewDispatcher(testFamily(), f, zap.NewNop())

	d.Send(context.Background(), ToMemberAndParents("kid1", "f1"), event.Ping(), "mom")

	assert.Equal(t, []string{"dad", "kid1"}, channelsOf(f))
}

func TestSendToMemberAlwaysIncludesSelf(t *testing.T) {
	f := channel.NewFixture()
	d := NewDispatcher(testFamily(), f, zap.NewNop())

	// Forced logout targets the actor themselves.
	d.Send(context.Background(), ToMember("kid1"), event.Logout(), "kid1")

	require.Len(t, f.Recorded(), 1)
	assert.Equal(t, "kid1", f.Recorded()[0].Channel)
	assert.Equal(t, event.TypeLogout, f.Recorded()[0].Event.Kind)
}

func TestSendSwallowsPublishFailures(t *testing.T) {
	f := channel.NewFixture()
	f.PublishErr = errors.New("broker down")
	d := NewDispatcher(testFamily(), f, zap.NewNop())

	// Must not panic or propagate anything.
	d.Send(context.Background(), ToFamily("f1"), event.Ping(), "mom")

	assert.Empty(t, f.Recorded())
}

func TestSendSwallowsResolutionFailures(t *testing.T) {
	f := channel.NewFixture()
	users := testFamily()
	users.listErr = errors.New("db down")
	d := NewDispatcher(users, f, zap.NewNop())

	d.Send(context.Background(), ToFamily("f1"), event.Ping(), "mom")

	assert.Empty(t, f.Recorded())
}

func TestSendToUnknownFamilyReachesNobody(t *testing.T) {
	f := channel.NewFixture()
	d := NewDispatcher(testFamily(), f, zap.NewNop())

	d.Send(context.Background(), ToFamily("nope"), event.Ping(), "mom")

	assert.Empty(t, f.Recorded())
}
