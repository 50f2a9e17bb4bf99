package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"meshline-backend/pkg/jwt"
)

// ContextUserIDKey is the gin context key holding the authenticated user ID
const ContextUserIDKey = "user_id"

// ContextUsernameKey is the gin context key holding the authenticated username
const ContextUsernameKey = "username"

// AuthMiddleware validates the JWT carried on the request and stores the
// caller's identity in the gin context. WebSocket handshakes from browsers
// cannot set headers, so a token query parameter is accepted alongside the
// Authorization header.
func AuthMiddleware(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}

		claims, err := jwtManager.Validate(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		userID := claims.UserID
		if userID == uuid.Nil {
			// Tokens minted by other services may carry the identity only
			// in a registered claim.
			resolved, ok := jwt.UserIDFromClaims(jwtlib.MapClaims{"sub": claims.Subject})
			if !ok {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "token carries no identity"})
				c.Abort()
				return
			}
			userID = resolved
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
