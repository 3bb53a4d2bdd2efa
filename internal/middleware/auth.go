package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"syncroom-service/internal/auth"
)

// AuthMiddleware validates the Authorization bearer token and stores the
// resolved identity in the request context.
func AuthMiddleware(identity auth.IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		user, err := identity.CurrentUser(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", user.UserID)
		c.Set("username", user.Username)
		c.Next()
	}
}
