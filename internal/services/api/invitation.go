package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"allowly/internal/domain/allowance"
	"allowly/internal/domain/event"
	"allowly/internal/domain/family"
	"allowly/internal/domain/invitation"
	"allowly/internal/notify"
	pg "allowly/internal/repository/postgres"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type createInvitationReq struct {
	Role  family.Role `json:"role" binding:"required"`
	Name  string      `json:"name" binding:"required"`
	Email string      `json:"email" binding:"required"`

	// Allowance is stored on the invitation and materialized on accept.
	Allowance *struct {
		Amount   int64  `json:"amount"`
		Schedule string `json:"schedule"`
	} `json:"allowance"`
}

// createInvitation invites a member-to-be by mail. The invitation carries
// everything needed to create the user once it is accepted.
func (s *Server) createInvitation(c *gin.Context) {
	st := state(c)
	if !st.IsParent() {
		fail(c, http.StatusForbidden, "forbidden")
		return
	}
	var req createInvitationReq
	if err := c.ShouldBindJSON(&req); err != nil || !req.Role.Valid() {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Role == family.RoleParent && req.Allowance != nil {
		fail(c, http.StatusBadRequest, "a parent cannot have an allowance")
		return
	}

	inv := &invitation.Invitation{
		UID:       uuid.NewString(),
		Role:      string(req.Role),
		Name:      req.Name,
		Email:     req.Email,
		Time:      time.Now().UTC(),
		FamilyUID: st.FamilyUID,
	}
	if req.Allowance != nil {
		if _, err := allowance.ParseSchedule(req.Allowance.Schedule); err != nil {
			fail(c, http.StatusBadRequest, "invalid schedule")
			return
		}
		inv.AllowanceAmount = &req.Allowance.Amount
		inv.AllowanceSchedule = &req.Allowance.Schedule
	}

	var fam *family.Family
	err := s.Tx.WithTx(c.Request.Context(), func(ctx context.Context) error {
		if _, err := s.Users.GetByName(ctx, st.FamilyUID, req.Name); err == nil {
			return pg.ErrConflict
		} else if !errors.Is(err, pg.ErrNotFound) {
			return err
		}
		var err error
		if fam, err = s.Families.GetByUID(ctx, st.FamilyUID); err != nil {
			return err
		}
		if err := s.Invites.Create(ctx, inv); err != nil {
			return err
		}
		s.Dispatch.Send(ctx, notify.ToFamily(st.FamilyUID), event.FamilyMemberInvited(*inv, st.UserUID), st.UserUID)
		return nil
	})
	if err != nil {
		failFrom(c, err)
		return
	}
	if err := s.Mail.SendInvitation(inv, fam.Name); err != nil {
		s.Log.Warn("send invitation mail", zap.String("email", inv.Email), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"invitation": inv})
}

// listInvitations returns the pending invitations of the caller's family.
func (s *Server) listInvitations(c *gin.Context) {
	st := state(c)
	if !st.IsParent() {
		fail(c, http.StatusForbidden, "forbidden")
		return
	}
	invs, err := s.Invites.ListByFamily(c.Request.Context(), st.FamilyUID)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": invs})
}

type acceptInvitationReq struct {
	Password string `json:"password" binding:"required"`
}

// acceptInvitation turns an invitation into a member. The invitation uid is
// the bearer credential; no session is required.
func (s *Server) acceptInvitation(c *gin.Context) {
	invUID := c.Param("uid")
	var req acceptInvitationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.Log.Error("hash password", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	var u *family.User
	err = s.Tx.WithTx(c.Request.Context(), func(ctx context.Context) error {
		inv, err := s.Invites.GetByUID(ctx, invUID)
		if err != nil {
			return err
		}
		if _, err := s.Users.GetByName(ctx, inv.FamilyUID, inv.Name); err == nil {
			return pg.ErrConflict
		} else if !errors.Is(err, pg.ErrNotFound) {
			return err
		}
		u = &family.User{
			UID:       uuid.NewString(),
			Role:      family.Role(inv.Role),
			Name:      inv.Name,
			Email:     inv.Email,
			FamilyUID: inv.FamilyUID,
		}
		if err := s.Users.Create(ctx, u); err != nil {
			return err
		}
		if err := s.Passwords.Set(ctx, u.UID, string(hash)); err != nil {
			return err
		}
		if inv.AllowanceAmount != nil && inv.AllowanceSchedule != nil {
			sched, err := allowance.ParseSchedule(*inv.AllowanceSchedule)
			if err != nil {
				return err
			}
			a := &allowance.Allowance{
				UID:      uuid.NewString(),
				UserUID:  u.UID,
				Amount:   *inv.AllowanceAmount,
				Schedule: sched,
			}
			if err := s.Allowances.Create(ctx, a); err != nil {
				return err
			}
		}
		if err := s.Invites.Delete(ctx, inv.UID); err != nil {
			return err
		}
		s.Dispatch.Send(ctx, notify.ToFamily(inv.FamilyUID), event.FamilyMemberAdded(eventMember(u), u.UID), u.UID)
		return nil
	})
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}
