package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"siteplanner/internal/access"
	"siteplanner/internal/identity"
	"siteplanner/internal/logging"
)

// AdminChecker reports whether a request carries a valid admin session.
type AdminChecker interface {
	IsAdmin(c *gin.Context) bool
}

// AccessGate runs before every page handler. It reads only the path and the
// request credentials; it never touches the store and never writes a body.
func AccessGate(users identity.Provider, admins AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if access.Excluded(path) {
			c.Next()
			return
		}

		category := access.Classify(path)
		hasUser, isAdmin := false, false

		switch category {
		case access.UserPath:
			hasUser = hasUserSession(c, users)
		case access.AdminPath:
			isAdmin = admins.IsAdmin(c)
		case access.Public:
			switch access.Normalize(path) {
			case access.LoginPath, access.SignupPath:
				hasUser = hasUserSession(c, users)
			case access.AdminLoginPath:
				isAdmin = admins.IsAdmin(c)
			}
		}

		decision := access.Decide(path, category, hasUser, isAdmin)
		if decision == access.Allow {
			c.Next()
			return
		}

		logging.Area("GATE").WithField("path", path).
			WithField("category", category.String()).
			Debug(decision.String())
		c.Header("Location", decision.Target())
		c.AbortWithStatus(http.StatusFound)
	}
}

func hasUserSession(c *gin.Context, users identity.Provider) bool {
	principal, err := identity.Authenticate(c.Request.Context(), users, c)
	if err != nil {
		return false
	}
	c.Set(UserIDKey, principal.UID)
	return true
}
