package api

import (
	"net/http"

	"allowly/internal/domain/family"
	"allowly/internal/domain/request"
	"allowly/internal/domain/transaction"

	"github.com/gin-gonic/gin"
)

// overviewTransactionLimit caps the recent entries returned per child.
const overviewTransactionLimit = 5

// overview aggregates everything the landing page needs in one response:
// the family, its members and pending invitations, the outstanding requests
// visible to the caller, and the recent ledger activity per child. Parents
// see every child; children see only themselves.
func (s *Server) overview(c *gin.Context) {
	st := state(c)
	familyUID := c.Param("family")
	if st.FamilyUID != familyUID {
		fail(c, http.StatusForbidden, "forbidden")
		return
	}

	ctx := c.Request.Context()
	fam, err := s.Families.GetByUID(ctx, familyUID)
	if err != nil {
		failFrom(c, err)
		return
	}
	members, err := s.Users.ListByFamily(ctx, familyUID)
	if err != nil {
		failFrom(c, err)
		return
	}
	invites, err := s.Invites.ListByFamily(ctx, familyUID)
	if err != nil {
		failFrom(c, err)
		return
	}

	var children []*family.User
	for _, m := range members {
		switch {
		case st.IsParent() && m.Role == family.RoleChild:
			children = append(children, m)
		case !st.IsParent() && m.UID == st.UserUID:
			children = append(children, m)
		}
	}

	requests := []*request.Request{}
	if st.IsParent() {
		for _, m := range members {
			rs, err := s.Requests.ListByUser(ctx, m.UID)
			if err != nil {
				failFrom(c, err)
				return
			}
			requests = append(requests, rs...)
		}
	} else {
		if requests, err = s.Requests.ListByUser(ctx, st.UserUID); err != nil {
			failFrom(c, err)
			return
		}
	}

	transactions := []*transaction.Transaction{}
	balances := map[string]int64{}
	for _, child := range children {
		entries, err := s.Ledger.ListByUser(ctx, child.UID, overviewTransactionLimit)
		if err != nil {
			failFrom(c, err)
			return
		}
		transactions = append(transactions, entries...)
		balance, err := s.Ledger.BalanceByUser(ctx, child.UID)
		if err != nil {
			failFrom(c, err)
			return
		}
		balances[child.UID] = balance
	}

	c.JSON(http.StatusOK, gin.H{
		"family":       fam,
		"members":      members,
		"invitations":  invites,
		"requests":     requests,
		"transactions": transactions,
		"balances":     balances,
	})
}
