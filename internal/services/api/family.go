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
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var errForbidden = errors.New("forbidden")

// eventMember projects a user into the shape carried by events.
func eventMember(u *family.User) event.Member {
	return event.Member{UID: u.UID, Role: string(u.Role), Name: u.Name, FamilyUID: u.FamilyUID}
}

// assertParentOf rejects callers that are not a parent of familyUID.
func assertParentOf(st State, familyUID string) error {
	if !st.IsParent() || st.FamilyUID != familyUID {
		return errForbidden
	}
	return nil
}

type registerFamilyReq struct {
	FamilyName string `json:"family_name" binding:"required"`
	UserName   string `json:"user_name" binding:"required"`
	Email      string `json:"email"`
	Password   string `json:"password" binding:"required"`
}

// registerFamily bootstraps a tenant: a family plus its first parent.
func (s *Server) registerFamily(c *gin.Context) {
	var req registerFamilyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	fam := &family.Family{UID: uuid.NewString(), Name: req.FamilyName}
	u := &family.User{
		UID:       uuid.NewString(),
		Role:      family.RoleParent,
		Name:      req.UserName,
		Email:     req.Email,
		FamilyUID: fam.UID,
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.Log.Error("hash password", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	err = s.Tx.WithTx(c.Request.Context(), func(ctx context.Context) error {
		if err := s.Families.Create(ctx, fam); err != nil {
			return err
		}
		if err := s.Users.Create(ctx, u); err != nil {
			return err
		}
		return s.Passwords.Set(ctx, u.UID, string(hash))
	})
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"family": fam, "user": u})
}

type addMemberReq struct {
	Role     family.Role `json:"role" binding:"required"`
	Name     string      `json:"name" binding:"required"`
	Email    string      `json:"email"`
	Password string      `json:"password" binding:"required"`

	// Allowance is only allowed for children.
	Allowance *struct {
		Amount   int64  `json:"amount"`
		Schedule string `json:"schedule"`
	} `json:"allowance"`
}

// addMember adds a parent or child to the caller's family, optionally with
// an initial allowance.
func (s *Server) addMember(c *gin.Context) {
	st := state(c)
	familyUID := c.Param("family")
	if err := assertParentOf(st, familyUID); err != nil {
		fail(c, http.StatusForbidden, "forbidden")
		return
	}
	var req addMemberReq
	if err := c.ShouldBindJSON(&req); err != nil || !req.Role.Valid() {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Role == family.RoleParent && req.Allowance != nil {
		fail(c, http.StatusBadRequest, "a parent cannot have an allowance")
		return
	}
	var sched allowance.Schedule
	if req.Allowance != nil {
		var err error
		if sched, err = allowance.ParseSchedule(req.Allowance.Schedule); err != nil {
			fail(c, http.StatusBadRequest, "invalid schedule")
			return
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.Log.Error("hash password", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	u := &family.User{
		UID:       uuid.NewString(),
		Role:      req.Role,
		Name:      req.Name,
		Email:     req.Email,
		FamilyUID: familyUID,
	}
	err = s.Tx.WithTx(c.Request.Context(), func(ctx context.Context) error {
		if _, err := s.Users.GetByName(ctx, familyUID, req.Name); err == nil {
			return pg.ErrConflict
		} else if !errors.Is(err, pg.ErrNotFound) {
			return err
		}
		if err := s.Users.Create(ctx, u); err != nil {
			return err
		}
		if err := s.Passwords.Set(ctx, u.UID, string(hash)); err != nil {
			return err
		}
		if req.Allowance != nil {
			a := &allowance.Allowance{
				UID:      uuid.NewString(),
				UserUID:  u.UID,
				Amount:   req.Allowance.Amount,
				Schedule: sched,
			}
			if err := s.Allowances.Create(ctx, a); err != nil {
				return err
			}
		}
		s.Dispatch.Send(ctx, notify.ToFamily(familyUID), event.FamilyMemberAdded(eventMember(u), st.UserUID), st.UserUID)
		return nil
	})
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// removeMember deletes a member of the caller's family. Callers cannot
// remove themselves.
func (s *Server) removeMember(c *gin.Context) {
	st := state(c)
	familyUID := c.Param("family")
	userUID := c.Param("user")
	if err := assertParentOf(st, familyUID); err != nil {
		fail(c, http.StatusForbidden, "forbidden")
		return
	}
	if userUID == st.UserUID {
		fail(c, http.StatusForbidden, "cannot remove self")
		return
	}

	var removed *family.User
	err := s.Tx.WithTx(c.Request.Context(), func(ctx context.Context) error {
		var err error
		if removed, err = s.Users.GetByUID(ctx, userUID); err != nil {
			return err
		}
		if removed.FamilyUID != familyUID {
			return errForbidden
		}
		if err := s.Users.Delete(ctx, userUID); err != nil {
			return err
		}
		s.Dispatch.Send(ctx, notify.ToFamily(familyUID), event.FamilyMemberRemoved(eventMember(removed), st.UserUID), st.UserUID)
		return nil
	})
	switch {
	case errors.Is(err, errForbidden):
		fail(c, http.StatusForbidden, "forbidden")
	case err != nil:
		failFrom(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"user": removed})
	}
}

// listMembers returns every member of the caller's own family.
func (s *Server) listMembers(c *gin.Context) {
	st := state(c)
	familyUID := c.Param("family")
	if st.FamilyUID != familyUID {
		fail(c, http.StatusForbidden, "forbidden")
		return
	}
	users, err := s.Users.ListByFamily(c.Request.Context(), familyUID)
	if err != nil {
		failFrom(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
