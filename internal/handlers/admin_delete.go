package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"siteplanner/internal/models"
)

// ActorResolver names the admin behind a request for audit records.
type ActorResolver interface {
	Actor(c *gin.Context) string
}

func adminActor(c *gin.Context, actors ActorResolver) string {
	if actors != nil {
		if actor := actors.Actor(c); actor != "" {
			return actor
		}
	}
	return models.ActorAdmin
}

func AdminDeleteUser(deleter UserDeleter, actors ActorResolver, stats *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.Param("id"))
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		result, err := deleter.DeleteUser(ctx, userID, adminActor(c, actors))
		if err != nil {
			respondCascadeError(c, "ADMIN", err)
			return
		}
		invalidateAnalytics(stats)
		c.JSON(http.StatusOK, gin.H{"message": "user deleted", "data": result})
	}
}

func AdminDeleteProject(deleter ProjectDeleter, actors ActorResolver, stats *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		result, err := deleter.DeleteProject(ctx, projectID.Hex(), adminActor(c, actors))
		if err != nil {
			respondCascadeError(c, "ADMIN", err)
			return
		}
		invalidateAnalytics(stats)
		c.JSON(http.StatusOK, gin.H{"message": "project deleted", "data": result})
	}
}
