package api

import (
	"context"
	"errors"
	"net/http"

	"allowly/internal/domain/allowance"
	"allowly/internal/domain/event"
	"allowly/internal/domain/family"
	"allowly/internal/notify"
	pg "allowly/internal/repository/postgres"

	"github.com/gin-gonic/gin"
)

type updateAllowanceReq struct {
	Amount   *int64  `json:"amount"`
	Schedule *string `json:"schedule"`
}

// updateAllowance changes a child's amount or payout weekday. The child and
// all other parents are notified.
func (s *Server) updateAllowance(c *gin.Context) {
	st := state(c)
	userUID := c.Param("user")
	allowanceUID := c.Param("allowance")
	if !st.IsParent() {
		fail(c, http.StatusForbidden, "forbidden")
		return
	}
	var req updateAllowanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	var a *allowance.Allowance
	err := s.Tx.WithTx(c.Request.Context(), func(ctx context.Context) error {
		u, err := s.Users.GetByUID(ctx, userUID)
		if err != nil {
			return err
		}
		if u.FamilyUID != st.FamilyUID {
			return errForbidden
		}
		if a, err = s.Allowances.GetByUID(ctx, allowanceUID); err != nil {
			return err
		}
		if a.UserUID != u.UID {
			return pg.ErrNotFound
		}
		if req.Amount != nil {
			a.Amount = *req.Amount
		}
		if req.Schedule != nil {
			sched, err := allowance.ParseSchedule(*req.Schedule)
			if err != nil {
				return errBadSchedule
			}
			a.Schedule = sched
		}
		if err := s.Allowances.Update(ctx, a); err != nil {
			return err
		}
		s.Dispatch.Send(ctx, notify.ToMemberAndParents(u.UID, st.FamilyUID), event.AllowanceUpdated(*a, st.UserUID), st.UserUID)
		return nil
	})
	switch {
	case errors.Is(err, errForbidden):
		fail(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, errBadSchedule):
		fail(c, http.StatusBadRequest, "invalid schedule")
	case err != nil:
		failFrom(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"allowance": a})
	}
}

var errBadSchedule = errors.New("invalid schedule")

// getUser returns a family member together with their allowance, if any.
func (s *Server) getUser(c *gin.Context) {
	st := state(c)
	userUID := c.Param("user")

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
	var a *allowance.Allowance
	if u.Role == family.RoleChild {
		if a, err = s.Allowances.GetByUser(ctx, u.UID); err != nil && !errors.Is(err, pg.ErrNotFound) {
			failFrom(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "allowance": a})
}
