package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"allowly/internal/domain/event"
	"allowly/internal/domain/family"
	"allowly/internal/domain/request"
	"allowly/internal/domain/transaction"
	"allowly/internal/notify"

	"github.com/gin-gonic/gin"
)

func requestUIDParam(c *gin.Context) (int64, bool) {
	uid, err := strconv.ParseInt(c.Param("request"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid request uid")
		return 0, false
	}
	return uid, true
}

type makeRequestReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Amount      int64  `json:"amount" binding:"required"`
	URL         string `json:"url"`
}

// makeRequest lets a child ask to buy something. The parents are notified;
// the child is the actor, so they are not.
func (s *Server) makeRequest(c *gin.Context) {
	st := state(c)
	if st.Role != family.RoleChild || c.Param("user") != st.UserUID {
		fail(c, http.StatusForbidden, "forbidden")
		return
	}
	var req makeRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	r := &request.Request{
		UserUID:     st.UserUID,
		Name:        req.Name,
		Description: req.Description,
		Amount:      req.Amount,
		URL:         req.URL,
		Time:        time.Now().UTC(),
	}
	err := s.Tx.WithTx(c.Request.Context(), func(ctx context.Context) error {
		if err := s.Requests.Create(ctx, r); err != nil {
			return err
		}
		s.Dispatch.Send(ctx, notify.ToParents(st.FamilyUID), event.RequestCreated(*r, st.UserUID), st.UserUID)
		return nil
	})
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": r})
}

// listRequests returns a user's pending requests. Children may only list
// their own; parents anyone in their family.
func (s *Server) listRequests(c *gin.Context) {
	st := state(c)
	userUID := c.Param("user")
	if st.Role == family.RoleChild && userUID != st.UserUID {
		fail(c, http.StatusForbidden, "forbidden")
		return
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
	rs, err := s.Requests.ListByUser(ctx, userUID)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": rs})
}

type grantRequestReq struct {
	// Cost is the reviewed cost; the requested amount applies when absent.
	Cost *int64 `json:"cost"`
}

// grantRequest approves a purchase: the request is removed and its cost is
// booked against the child's balance. Child and parents learn about it,
// except the granting parent.
func (s *Server) grantRequest(c *gin.Context) {
	st := state(c)
	userUID := c.Param("user")
	reqUID, ok := requestUIDParam(c)
	if !ok {
		return
	}
	if !st.IsParent() {
		fail(c, http.StatusForbidden, "forbidden")
		return
	}
	var req grantRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	var (
		granted *request.Request
		entry   *transaction.Transaction
	)
	err := s.Tx.WithTx(c.Request.Context(), func(ctx context.Context) error {
		var err error
		if granted, err = s.Requests.GetByUID(ctx, reqUID); err != nil {
			return err
		}
		u, err := s.Users.GetByUID(ctx, userUID)
		if err != nil {
			return err
		}
		if granted.UserUID != u.UID || u.FamilyUID != st.FamilyUID {
			return errForbidden
		}
		cost := granted.Amount
		if req.Cost != nil {
			cost = *req.Cost
		}
		entry = &transaction.Transaction{
			Kind:        transaction.KindRequest,
			UserUID:     u.UID,
			Description: granted.Name,
			Amount:      -cost,
			Time:        time.Now().UTC(),
		}
		if err := s.Ledger.Create(ctx, entry); err != nil {
			return err
		}
		if err := s.Requests.Delete(ctx, granted.UID); err != nil {
			return err
		}
		s.Dispatch.Send(ctx, notify.ToMemberAndParents(u.UID, st.FamilyUID), event.RequestGranted(*granted, st.UserUID), st.UserUID)
		return nil
	})
	switch {
	case errors.Is(err, errForbidden):
		fail(c, http.StatusForbidden, "forbidden")
	case err != nil:
		failFrom(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"request": granted, "transaction": entry})
	}
}

// declineRequest removes a request without booking anything. A child may
// withdraw their own request; a parent may decline any in the family.
func (s *Server) declineRequest(c *gin.Context) {
	st := state(c)
	userUID := c.Param("user")
	reqUID, ok := requestUIDParam(c)
	if !ok {
		return
	}
	if st.Role == family.RoleChild && userUID != st.UserUID {
		fail(c, http.StatusForbidden, "forbidden")
		return
	}

	var declined *request.Request
	err := s.Tx.WithTx(c.Request.Context(), func(ctx context.Context) error {
		var err error
		if declined, err = s.Requests.GetByUID(ctx, reqUID); err != nil {
			return err
		}
		u, err := s.Users.GetByUID(ctx, userUID)
		if err != nil {
			return err
		}
		if declined.UserUID != u.UID || u.FamilyUID != st.FamilyUID {
			return errForbidden
		}
		if err := s.Requests.Delete(ctx, declined.UID); err != nil {
			return err
		}
		s.Dispatch.Send(ctx, notify.ToMemberAndParents(u.UID, st.FamilyUID), event.RequestDeclined(*declined, st.UserUID), st.UserUID)
		return nil
	})
	switch {
	case errors.Is(err, errForbidden):
		fail(c, http.StatusForbidden, "forbidden")
	case err != nil:
		failFrom(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"request": declined})
	}
}
