package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pf-nexus/papermark/internal/domain"
	"github.com/pf-nexus/papermark/internal/session"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyEmail  = "email"
	ContextKeyClaims = "claims"
)

// RequireSession returns Gin middleware that validates the local session
// cookie and injects the session claims into the context.
func RequireSession(auth *session.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.Authenticate(c.Request)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "missing or invalid session"},
			})
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyEmail, claims.Email)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetUserID extracts the user ID from the Gin context.
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return val.(uuid.UUID), nil
}

// GetClaims extracts the session claims from the Gin context.
func GetClaims(c *gin.Context) (*session.Claims, error) {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil, domain.ErrUnauthorized
	}
	return val.(*session.Claims), nil
}
