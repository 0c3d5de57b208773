package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"siteplanner/internal/logging"
)

// AdminAuth guards the admin API. Unlike the page gate it answers 401 JSON.
func AdminAuth(admins AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !admins.IsAdmin(c) {
			logging.Area("AUTH").Warn("admin session missing or invalid")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
