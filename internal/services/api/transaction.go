package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"allowly/internal/domain/family"
	"allowly/internal/domain/transaction"

	"github.com/gin-gonic/gin"
)

const defaultTransactionLimit = 50

// listTransactions returns a user's newest ledger entries plus their
// current balance. Children may only read their own ledger.
func (s *Server) listTransactions(c *gin.Context) {
	st := state(c)
	userUID := c.Param("user")
	if st.Role == family.RoleChild && userUID != st.UserUID {
		fail(c, http.StatusForbidden, "forbidden")
		return
	}
	limit := defaultTransactionLimit
	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			fail(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	u, err := s.Users.GetByUID(ctx, userUID)
	if err != nil {
		failFrom(c, err)
		return
	}
	if u.FamilyUID != st.FamilyUID {
		fail(c, http.StatusForbidden, "forbidden")
		return
	}
	entries, err := s.Ledger.ListByUser(ctx, userUID, limit)
	if err != nil {
		failFrom(c, err)
		return
	}
	balance, err := s.Ledger.BalanceByUser(ctx, userUID)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entries, "balance": balance})
}

type createTransactionReq struct {
	Description string `json:"description" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
}

// createTransaction books a manual ledger entry for a family member, for
// gifts or corrections outside the allowance cycle.
func (s *Server) createTransaction(c *gin.Context) {
	st := state(c)
	userUID := c.Param("user")
	if !st.IsParent() {
		fail(c, http.StatusForbidden, "forbidden")
		return
	}
	var req createTransactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	entry := &transaction.Transaction{
		Kind:        transaction.KindManual,
		UserUID:     userUID,
		Description: req.Description,
		Amount:      req.Amount,
		Time:        time.Now().UTC(),
	}
	err := s.Tx.WithTx(c.Request.Context(), func(ctx context.Context) error {
		u, err := s.Users.GetByUID(ctx, userUID)
		if err != nil {
			return err
		}
		if u.FamilyUID != st.FamilyUID {
			return errForbidden
		}
		return s.Ledger.Create(ctx, entry)
	})
	if err != nil {
		if err == errForbidden {
			fail(c, http.StatusForbidden, "forbidden")
			return
		}
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": entry})
}
