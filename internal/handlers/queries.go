package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"siteplanner/internal/models"
)

type queryRequest struct {
	Query     string `json:"query" binding:"required,max=4000"`
	Response  string `json:"response"`
	ProjectID string `json:"projectId"`
}

func ListQueries(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c, "QUERY")
		if !ok {
			return
		}
		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		filter := bson.M{"userId": userID}
		if projectID := strings.TrimSpace(c.Query("projectId")); projectID != "" {
			filter["projectId"] = projectID
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		cursor, err := db.Collection(models.CollectionQueries).Find(ctx, filter, pageOptions(page, limit))
		if err != nil {
			respondDBError(c, "QUERY", err)
			return
		}
		defer cursor.Close(ctx)

		queries := make([]models.Query, 0)
		if err := cursor.All(ctx, &queries); err != nil {
			respondDBError(c, "QUERY", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": queries, "page": page, "limit": limit})
	}
}

// CreateQuery logs an assistant exchange, optionally scoped to one of the
// caller's projects.
func CreateQuery(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c, "QUERY")
		if !ok {
			return
		}

		var req queryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		query := models.Query{
			UserID:    userID,
			Query:     strings.TrimSpace(req.Query),
			Response:  strings.TrimSpace(req.Response),
			CreatedAt: time.Now().UTC(),
		}

		var projectID primitive.ObjectID
		if raw := strings.TrimSpace(req.ProjectID); raw != "" {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid projectId"})
				return
			}
			projectID = id
			query.ProjectID = id.Hex()
		}
		if err := models.Validate(query); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if !projectID.IsZero() {
			if _, err := findOwnedProject(ctx, db, projectID, userID); err != nil {
				respondProjectLookup(c, err)
				return
			}
		}

		res, err := db.Collection(models.CollectionQueries).InsertOne(ctx, query)
		if err != nil {
			respondDBError(c, "QUERY", err)
			return
		}
		query.ID, _ = res.InsertedID.(primitive.ObjectID)
		recordActivity(ctx, db, userID, models.ActivityQueryAsked, truncate(query.Query, 80), query.ProjectID)

		c.JSON(http.StatusCreated, gin.H{"data": query})
	}
}

func DeleteQuery(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c, "QUERY")
		if !ok {
			return
		}
		queryID, ok := parseObjectID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := db.Collection(models.CollectionQueries).DeleteOne(ctx, bson.M{"_id": queryID, "userId": userID})
		if err != nil {
			respondDBError(c, "QUERY", err)
			return
		}
		if res.DeletedCount == 0 {
			respondWithError(c, http.StatusNotFound, "QUERY", "query not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "query deleted"})
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
