// Package api exposes the HTTP surface: session management, family and
// allowance administration, purchase requests, and the live event stream.
package api

import (
	"allowly/internal/channel"
	"allowly/internal/config"
	"allowly/internal/domain/allowance"
	"allowly/internal/domain/family"
	"allowly/internal/domain/invitation"
	"allowly/internal/domain/request"
	"allowly/internal/domain/transaction"
	"allowly/internal/notify"
	pg "allowly/internal/repository/postgres"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Mailer delivers invitation mails. Rendering and transport live elsewhere;
// a no-op implementation is fine for development.
type Mailer interface {
	SendInvitation(inv *invitation.Invitation, familyName string) error
}

// NopMailer logs instead of sending.
type NopMailer struct{ Log *zap.Logger }

func (m NopMailer) SendInvitation(inv *invitation.Invitation, familyName string) error {
	m.Log.Info("invitation mail skipped (no mailer configured)",
		zap.String("email", inv.Email),
		zap.String("family", familyName),
	)
	return nil
}

type Server struct {
	Log        *zap.Logger
	Auth       config.Auth
	Tx         pg.Transactor
	Users      family.UserRepo
	Families   family.Repo
	Passwords  family.PasswordRepo
	Allowances allowance.Repo
	Requests   request.Repo
	Ledger     transaction.Repo
	Invites    invitation.Repo
	Dispatch   *notify.Dispatcher
	Channels   channel.Backend
	Mail       Mailer
}

// Router builds the gin engine. Everything except register and login runs
// behind the session middleware.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.POST("/family", s.registerFamily)
	api.POST("/session/login", s.login)

	auth := api.Group("", s.sessionRequired())
	auth.POST("/session/logout", s.logout)
	auth.POST("/session/password", s.changePassword)
	auth.GET("/session", s.introspect)

	auth.POST("/family/:family", s.addMember)
	auth.DELETE("/family/:family/:user", s.removeMember)
	auth.GET("/family/:family", s.listMembers)

	auth.POST("/invitation", s.createInvitation)
	auth.GET("/invitation", s.listInvitations)
	api.POST("/invitation/:uid", s.acceptInvitation) // authenticated by the invitation uid itself

	auth.POST("/request/:user", s.makeRequest)
	auth.GET("/request/:user", s.listRequests)
	auth.POST("/request/:user/:request", s.grantRequest)
	auth.DELETE("/request/:user/:request", s.declineRequest)

	auth.PUT("/user/:user/allowance/:allowance", s.updateAllowance)
	auth.GET("/user/:user", s.getUser)

	auth.GET("/overview/:family", s.overview)

	auth.GET("/transaction/:user", s.listTransactions)
	auth.POST("/transaction/:user", s.createTransaction)

	auth.GET("/events", s.events)

	return r
}
