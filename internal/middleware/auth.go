package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/faceoff-app/backend/internal/entity"
	"github.com/faceoff-app/backend/internal/services"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

type AuthMiddleware struct {
	auth *services.Auth
}

func NewAuthMiddleware(auth *services.Auth) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Require rejects requests without a valid, non-banned identity.
func (m *AuthMiddleware) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractTokenFromHeader(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing auth token"})
			return
		}

		identity, err := m.auth.VerifyToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, services.ErrUserBanned) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user is banned"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid auth token"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// Optional attaches an identity when a valid credential is present but never
// rejects the request. Used on anonymous-readable endpoints so views can
// report the viewer's own vote.
func (m *AuthMiddleware) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractTokenFromHeader(c.GetHeader("Authorization"))
		if token != "" {
			if identity, err := m.auth.VerifyToken(c.Request.Context(), token); err == nil {
				c.Set(identityKey, identity)
			}
		}
		c.Next()
	}
}

// RequireAdmin must run after Require.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)
		if !ok || !identity.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

func IdentityFromContext(c *gin.Context) (entity.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return entity.Identity{}, false
	}
	identity, ok := value.(entity.Identity)
	return identity, ok
}

func extractTokenFromHeader(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
