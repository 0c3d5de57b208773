package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"siteplanner/internal/logging"
	"siteplanner/internal/models"
)

type profileRequest struct {
	Name    string `json:"name" binding:"required,max=120"`
	Phone   string `json:"phone" binding:"max=32"`
	Company string `json:"company" binding:"max=120"`
}

func GetMe(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c, "USER")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		var user models.User
		if err := db.Collection(models.CollectionUsers).FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			respondDBError(c, "USER", err)
			return
		}

		c.JSON(http.StatusOK, user)
	}
}

func UpdateMe(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c, "USER")
		if !ok {
			return
		}

		var req profileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := db.Collection(models.CollectionUsers).UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
			"$set": bson.M{
				"name":      strings.TrimSpace(req.Name),
				"phone":     strings.TrimSpace(req.Phone),
				"company":   strings.TrimSpace(req.Company),
				"updatedAt": time.Now().UTC(),
			},
		})
		if err != nil {
			respondDBError(c, "USER", err)
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		recordActivity(ctx, db, userID, models.ActivityProfileUpdated, "profile updated", "")

		logging.Area("USER").WithField("uid", userID).Info("profile updated")
		c.JSON(http.StatusOK, gin.H{"message": "profile updated"})
	}
}

// GetActivities lists the caller's feed, newest first. Audit rows are admin-only.
func GetActivities(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c, "ACTIVITY")
		if !ok {
			return
		}
		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		cursor, err := db.Collection(models.CollectionActivities).Find(ctx, bson.M{
			"userId": userID,
			"audit":  bson.M{"$ne": true},
		}, pageOptions(page, limit))
		if err != nil {
			respondDBError(c, "ACTIVITY", err)
			return
		}
		defer cursor.Close(ctx)

		activities := make([]models.Activity, 0)
		if err := cursor.All(ctx, &activities); err != nil {
			respondDBError(c, "ACTIVITY", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": activities, "page": page, "limit": limit})
	}
}
