package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"siteplanner/internal/logging"
	"siteplanner/internal/middleware"
)

const requestTimeout = 5 * time.Second

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		logging.Area(route).WithField("panic", r).Error("panic recovered")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func ensureDBConnection(ctx context.Context, db *mongo.Database) error {
	if db == nil {
		return errors.New("database not configured")
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Client().Ping(checkCtx, readpref.Primary())
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	entry := logging.Area(route).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Debug(message)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func respondDBError(c *gin.Context, route string, err error) {
	logging.Area(route).WithError(err).Error("db error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "db error"})
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := fieldPath(fieldError.Namespace())
			switch fieldError.Tag() {
			case "required", "required_if":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
}

// fieldPath turns "Project.LandArea.Unit" into "landArea.unit".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = lowerCamel(p)
	}
	return strings.Join(parts, ".")
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func parseObjectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param(param)))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return primitive.NilObjectID, false
	}
	return id, true
}

func currentUser(c *gin.Context, route string) (string, bool) {
	uid := middleware.CurrentUserID(c)
	if uid == "" {
		logging.Area(route).Warn("userId missing in context")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return uid, true
}
