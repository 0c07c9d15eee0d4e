package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"allowly/internal/channel"
	"allowly/internal/domain/family"
	"allowly/internal/domain/invitation"
	"allowly/internal/domain/request"
	"allowly/internal/domain/transaction"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type overviewBody struct {
	Family       family.Family             `json:"family"`
	Members      []family.User             `json:"members"`
	Invitations  []invitation.Invitation   `json:"invitations"`
	Requests     []request.Request         `json:"requests"`
	Transactions []transaction.Transaction `json:"transactions"`
	Balances     map[string]int64          `json:"balances"`
}

func seedOverview(t *testing.T, store *memStore, child *family.User) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, memInvites{s: store}.Create(ctx, &invitation.Invitation{
		UID: "inv-1", Role: string(family.RoleChild), Name: "Newbie",
		Email: "newbie@example.com", Time: time.Now(), FamilyUID: child.FamilyUID,
	}))
	require.NoError(t, memRequests{s: store}.Create(ctx, &request.Request{
		UserUID: child.UID, Name: "lego set", Amount: 4999, Time: time.Now(),
	}))
	ledger := memLedger{s: store}
	for i := 0; i < overviewTransactionLimit+2; i++ {
		require.NoError(t, ledger.Create(ctx, &transaction.Transaction{
			Kind: transaction.KindAllowance, UserUID: child.UID, Amount: 100, Time: time.Now(),
		}))
	}
}

func TestOverviewForParent(t *testing.T) {
	store := newMemStore()
	parent, _, child := seedFamily(t, store)
	seedOverview(t, store, child)
	srv := newTestServer(store, channel.NewFixture())

	w := doJSON(t, srv.Router(), http.MethodGet, "/api/overview/f1", nil, sessionCookieFor(t, parent))
	require.Equal(t, http.StatusOK, w.Code)

	var body overviewBody
	decode(t, w, &body)
	assert.Equal(t, "Testers", body.Family.Name)
	assert.Len(t, body.Members, 3)
	assert.Len(t, body.Invitations, 1)
	require.Len(t, body.Requests, 1)
	assert.Equal(t, child.UID, body.Requests[0].UserUID)
	// Recent activity is capped per child; the balance covers everything.
	assert.Len(t, body.Transactions, overviewTransactionLimit)
	assert.Equal(t, map[string]int64{child.UID: 700}, body.Balances)
}

func TestOverviewForChildSeesOnlyOwnMoney(t *testing.T) {
	store := newMemStore()
	_, _, child := seedFamily(t, store)
	other := &family.User{UID: "kid2", Role: family.RoleChild, Name: "Kid2", FamilyUID: "f1"}
	require.NoError(t, memUsers{s: store}.Create(context.Background(), other))
	seedOverview(t, store, child)
	require.NoError(t, memLedger{s: store}.Create(context.Background(), &transaction.Transaction{
		Kind: transaction.KindAllowance, UserUID: other.UID, Amount: 9999, Time: time.Now(),
	}))
	require.NoError(t, memRequests{s: store}.Create(context.Background(), &request.Request{
		UserUID: other.UID, Name: "pony", Amount: 100000, Time: time.Now(),
	}))
	srv := newTestServer(store, channel.NewFixture())

	w := doJSON(t, srv.Router(), http.MethodGet, "/api/overview/f1", nil, sessionCookieFor(t, child))
	require.Equal(t, http.StatusOK, w.Code)

	var body overviewBody
	decode(t, w, &body)
	assert.Len(t, body.Members, 4)
	require.Len(t, body.Requests, 1)
	assert.Equal(t, child.UID, body.Requests[0].UserUID)
	for _, entry := range body.Transactions {
		assert.Equal(t, child.UID, entry.UserUID)
	}
	assert.Equal(t, map[string]int64{child.UID: 700}, body.Balances)
}

func TestOverviewOtherFamilyForbidden(t *testing.T) {
	store := newMemStore()
	parent, _, _ := seedFamily(t, store)
	srv := newTestServer(store, channel.NewFixture())

	w := doJSON(t, srv.Router(), http.MethodGet, "/api/overview/f-other", nil, sessionCookieFor(t, parent))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
