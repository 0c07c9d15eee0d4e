package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"allowly/internal/domain/event"
	"allowly/internal/domain/family"
	"allowly/internal/notify"
	pg "allowly/internal/repository/postgres"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookie = "allowly_session"

// State is the authenticated caller, decoded from the session token.
type State struct {
	UserUID   string
	FamilyUID string
	Role      family.Role
}

func (st State) IsParent() bool { return st.Role == family.RoleParent }

type sessionClaims struct {
	FamilyUID string `json:"fam"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) issueSession(c *gin.Context, u *family.User) error {
	now := time.Now()
	claims := sessionClaims{
		FamilyUID: u.FamilyUID,
		Role:      string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.Auth.SessionTTL)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Auth.JWTSecret))
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, tok, int(s.Auth.SessionTTL/time.Second), "/", "", s.Auth.SecureCookie, true)
	return nil
}

func (s *Server) clearSession(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", s.Auth.SecureCookie, true)
}

func (s *Server) loadState(c *gin.Context) (State, error) {
	tok, err := c.Cookie(sessionCookie)
	if err != nil {
		return State{}, err
	}
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.Auth.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return State{}, errors.New("invalid session")
	}
	return State{
		UserUID:   claims.Subject,
		FamilyUID: claims.FamilyUID,
		Role:      family.Role(claims.Role),
	}, nil
}

const stateKey = "session_state"

func (s *Server) sessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := s.loadState(c)
		if err != nil {
			fail(c, http.StatusUnauthorized, "not logged in")
			return
		}
		c.Set(stateKey, st)
		c.Next()
	}
}

func state(c *gin.Context) State {
	return c.MustGet(stateKey).(State)
}

type loginReq struct {
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

// login authenticates by uid or email plus password.
func (s *Server) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil || (req.UID == "" && req.Email == "") {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	var u *family.User
	err := s.Tx.WithTx(c.Request.Context(), func(ctx context.Context) error {
		var err error
		if req.UID != "" {
			u, err = s.Users.GetByUID(ctx, req.UID)
		} else {
			u, err = s.Users.GetByEmail(ctx, req.Email)
		}
		if err != nil {
			return err
		}
		hash, err := s.Passwords.Hash(ctx, u.UID)
		if err != nil {
			return err
		}
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password))
	})
	if err != nil {
		// A wrong password and an unknown user look identical.
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.issueSession(c, u); err != nil {
		s.Log.Error("issue session", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// logout clears the cookie and forces other live sessions of the same user
// to close.
func (s *Server) logout(c *gin.Context) {
	st := state(c)
	s.Dispatch.Send(c.Request.Context(), notify.ToMember(st.UserUID), event.Logout(), st.UserUID)
	s.clearSession(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) introspect(c *gin.Context) {
	st := state(c)
	c.JSON(http.StatusOK, gin.H{
		"user_uid":   st.UserUID,
		"family_uid": st.FamilyUID,
		"role":       st.Role,
	})
}

type changePasswordReq struct {
	Current string `json:"current_password" binding:"required"`
	New     string `json:"new_password" binding:"required"`
}

// changePassword rotates the caller's password and terminates every other
// live session for the identity.
func (s *Server) changePassword(c *gin.Context) {
	st := state(c)
	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	err := s.Tx.WithTx(c.Request.Context(), func(ctx context.Context) error {
		hash, err := s.Passwords.Hash(ctx, st.UserUID)
		if err != nil {
			return err
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Current)) != nil {
			return errUnauthorized
		}
		newHash, err := bcrypt.GenerateFromPassword([]byte(req.New), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		if err := s.Passwords.Set(ctx, st.UserUID, string(newHash)); err != nil {
			return err
		}
		s.Dispatch.Send(ctx, notify.ToMember(st.UserUID), event.Logout(), st.UserUID)
		return nil
	})
	switch {
	case errors.Is(err, errUnauthorized):
		fail(c, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, pg.ErrNotFound):
		fail(c, http.StatusUnauthorized, "unauthorized")
	case err != nil:
		s.Log.Error("change password", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
	default:
		s.clearSession(c)
		c.Status(http.StatusNoContent)
	}
}

var errUnauthorized = errors.New("unauthorized")
