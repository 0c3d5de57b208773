package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"siteplanner/internal/identity"
	"siteplanner/internal/logging"
)

const (
	UserIDKey    = "userId"
	UserEmailKey = "userEmail"
)

// UserAuth validates the identity-provider credential and injects the uid into the context.
func UserAuth(users identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := identity.Authenticate(c.Request.Context(), users, c)
		if err != nil {
			entry := logging.Area("AUTH")
			if errors.Is(err, identity.ErrNoToken) {
				entry.Debug("missing token")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
				return
			}
			entry.WithError(err).Warn("token validation failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(UserIDKey, principal.UID)
		c.Set(UserEmailKey, principal.Email)
		c.Next()
	}
}

// CurrentUserID returns the uid set by UserAuth, or "" when absent.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
