package handlers

import (
	"net/http"

	"github.com/faceoff-app/backend/internal/entity"
	"github.com/faceoff-app/backend/internal/middleware"
	"github.com/faceoff-app/backend/internal/services"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService   *services.Auth
	votingService *services.Voting
}

func NewAuthHandler(authService *services.Auth, votingService *services.Voting) *AuthHandler {
	return &AuthHandler{authService: authService, votingService: votingService}
}

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	token, user, err := h.authService.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Me handles GET /users/me.
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.authService.Profile(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// History handles GET /users/me/history: the caller's past votes.
func (h *AuthHandler) History(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	history, err := h.votingService.VoteHistory(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if history == nil {
		history = []entity.VoteHistoryItem{}
	}

	c.JSON(http.StatusOK, history)
}
