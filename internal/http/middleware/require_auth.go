package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAuth guards routes that need an authenticated session. The React
// storefront handles its own login redirect, so the answer is always JSON.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); ok {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":      "authentication required",
			"request_id": GetRequestID(c),
		})
	}
}
