package middleware

import (
	"net/http"
	"strings"

	"github.com/fekuna/flowershop-service/internal/auth"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware requires a bearer token signed with secret and stores the
// employee it names in the request context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := auth.ParseToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx := auth.WithUser(c.Request.Context(), auth.UserContext{
			EmployeeID: claims.EmployeeID,
			Role:       claims.Role,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
