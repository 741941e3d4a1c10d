package routes

import (
	"github.com/faceoff-app/backend/internal/handlers"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Voting   *handlers.VotingHandler
	Admin    *handlers.AdminHandler
	Realtime *handlers.RealtimeHandler
}

// RegisterPublicRoutes wires the anonymous-readable endpoints. The optional
// auth middleware attaches an identity when present so poll views can report
// the viewer's own vote.
func RegisterPublicRoutes(rg *gin.RouterGroup, h Handlers, optionalAuth gin.HandlerFunc) {
	rg.POST("/auth/register", h.Auth.Register)
	rg.POST("/auth/login", h.Auth.Login)

	rg.GET("/polls", optionalAuth, h.Voting.ListPolls)
	rg.GET("/polls/:id", optionalAuth, h.Voting.GetPoll)

	rg.GET("/realtime", h.Realtime.Subscribe)
}

func RegisterPrivateRoutes(rg *gin.RouterGroup, h Handlers) {
	rg.POST("/polls", h.Voting.CreatePoll)
	rg.POST("/polls/:id/vote", h.Voting.Vote)
	rg.POST("/polls/:id/comments", h.Voting.AddComment)

	rg.GET("/users/me", h.Auth.Me)
	rg.GET("/users/me/history", h.Auth.History)
}

func RegisterAdminRoutes(rg *gin.RouterGroup, h Handlers) {
	rg.GET("/polls/pending", h.Admin.PendingPolls)
	rg.POST("/polls/:id/approve", h.Admin.ApprovePoll)
	rg.DELETE("/polls/:id", h.Admin.DeletePoll)

	rg.POST("/users/:id/ban", h.Admin.BanUser)
	rg.GET("/users", h.Admin.ListUsers)

	rg.GET("/analytics", h.Admin.Analytics)
}
