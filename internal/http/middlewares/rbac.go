package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pressflow/newsroom/internal/authz"
)

// Role checks compose after Authenticate. The decision itself lives in the
// authz package; this only adapts it to gin.

func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return requireGuard(authz.RequireAdmin)
}

func (m *AuthMiddleware) RequireEditor() gin.HandlerFunc {
	return requireGuard(authz.RequireEditor)
}

func requireGuard(guard func(authz.Identity) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFromContext(c)

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing identity context",
				},
			})
			return
		}

		if err := guard(id); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Access denied",
				},
			})
			return
		}
		c.Next()
	}
}
