package handlers

import (
	"net/http"
	"strconv"

	"github.com/faceoff-app/backend/internal/entity"
	"github.com/faceoff-app/backend/internal/services"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	votingService *services.Voting
	authService   *services.Auth
}

func NewAdminHandler(votingService *services.Voting, authService *services.Auth) *AdminHandler {
	return &AdminHandler{votingService: votingService, authService: authService}
}

type ApprovePollRequest struct {
	Status string `json:"status"`
}

type BanUserRequest struct {
	Banned bool `json:"banned"`
}

func (h *AdminHandler) PendingPolls(c *gin.Context) {
	polls, err := h.votingService.PendingPolls(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if polls == nil {
		polls = []entity.Poll{}
	}

	c.JSON(http.StatusOK, polls)
}

// ApprovePoll handles POST /admin/polls/:id/approve. Any status other than
// "rejected" approves the poll.
func (h *AdminHandler) ApprovePoll(c *gin.Context) {
	pollID, ok := pollIDParam(c)
	if !ok {
		return
	}

	var req ApprovePollRequest
	_ = c.ShouldBindJSON(&req)

	status, err := h.votingService.SetPollStatus(c.Request.Context(), pollID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": pollID, "status": status})
}

func (h *AdminHandler) DeletePoll(c *gin.Context) {
	pollID, ok := pollIDParam(c)
	if !ok {
		return
	}

	if err := h.votingService.DeletePoll(c.Request.Context(), pollID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) BanUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req BanUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	user, err := h.authService.SetUserBanned(c.Request.Context(), userID, req.Banned)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": user.ID, "email": user.Email, "banned": user.Banned})
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.authService.Users(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if users == nil {
		users = []entity.User{}
	}

	c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) Analytics(c *gin.Context) {
	stats, err := h.votingService.SiteStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
