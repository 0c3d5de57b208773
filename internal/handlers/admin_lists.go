package handlers

import (
	"math"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"siteplanner/internal/models"
)

func searchFilter(search string, fields ...string) []bson.M {
	pattern := regexp.QuoteMeta(search)
	or := make([]bson.M, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: bson.M{"$regex": pattern, "$options": "i"}})
	}
	return or
}

// listPage answers one paginated admin listing; out must point to a slice.
func listPage(c *gin.Context, db *mongo.Database, collection string, filter bson.M, out interface{}) {
	page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	total, err := db.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		respondDBError(c, "ADMIN", err)
		return
	}
	totalPages := int64(0)
	if total > 0 {
		totalPages = int64(math.Ceil(float64(total) / float64(limit)))
	}

	cursor, err := db.Collection(collection).Find(ctx, filter, pageOptions(page, limit))
	if err != nil {
		respondDBError(c, "ADMIN", err)
		return
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		respondDBError(c, "ADMIN", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": out,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

func AdminListUsers(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := bson.M{}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["$or"] = searchFilter(search, "email", "name", "company")
		}
		users := make([]models.User, 0)
		listPage(c, db, models.CollectionUsers, filter, &users)
	}
}

func AdminListProjects(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := bson.M{}
		if userID := strings.TrimSpace(c.Query("userId")); userID != "" {
			filter["userId"] = userID
		}
		if status := strings.TrimSpace(c.Query("status")); status != "" {
			filter["status"] = status
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["$or"] = searchFilter(search, "name", "description", "location.city")
		}
		projects := make([]models.Project, 0)
		listPage(c, db, models.CollectionProjects, filter, &projects)
	}
}

func AdminListQueries(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := bson.M{}
		if userID := strings.TrimSpace(c.Query("userId")); userID != "" {
			filter["userId"] = userID
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["$or"] = searchFilter(search, "query", "response")
		}
		queries := make([]models.Query, 0)
		listPage(c, db, models.CollectionQueries, filter, &queries)
	}
}

// AdminListActivities includes audit rows; ?audit=true narrows to them.
func AdminListActivities(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := bson.M{}
		if userID := strings.TrimSpace(c.Query("userId")); userID != "" {
			filter["userId"] = userID
		}
		if strings.EqualFold(strings.TrimSpace(c.Query("audit")), "true") {
			filter["audit"] = true
		}
		if kind := strings.TrimSpace(c.Query("type")); kind != "" {
			filter["type"] = kind
		}
		activities := make([]models.Activity, 0)
		listPage(c, db, models.CollectionActivities, filter, &activities)
	}
}
