package handlers

import (
	"errors"
	"net/http"

	"github.com/faceoff-app/backend/internal/repo"
	"github.com/faceoff-app/backend/internal/services"
	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto the HTTP taxonomy. Unknown errors
// are treated as transient storage failures.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrImageTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image data is too large"})
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, services.ErrUserBanned):
		c.JSON(http.StatusForbidden, gin.H{"error": "user is banned"})
	case errors.Is(err, services.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, repo.ErrPollNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "poll not found"})
	case errors.Is(err, repo.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, services.ErrViewUnavailable):
		// The vote may already be durably recorded: the client should
		// re-read, never re-vote.
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "results temporarily unavailable; your vote may already be recorded, refresh instead of voting again",
		})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable, try again soon"})
	}
}
