package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"siteplanner/internal/models"
)

const (
	analyticsCacheKey = "admin:analytics"
	signupWindowDays  = 30
)

type countBucket struct {
	Key   string `bson:"_id" json:"key"`
	Count int64  `bson:"count" json:"count"`
}

type budgetBucket struct {
	Currency string  `bson:"_id" json:"currency"`
	Total    float64 `bson:"total" json:"total"`
	Projects int64   `bson:"projects" json:"projects"`
}

type Analytics struct {
	Totals           map[string]int64 `json:"totals"`
	ProjectsByStatus []countBucket    `json:"projectsByStatus"`
	SignupsPerDay    []countBucket    `json:"signupsPerDay"`
	BudgetByCurrency []budgetBucket   `json:"budgetByCurrency"`
	GeneratedAt      time.Time        `json:"generatedAt"`
}

// NewAnalyticsCache holds the dashboard numbers for ttl.
func NewAnalyticsCache(ttl time.Duration) *cache.Cache {
	return cache.New(ttl, 2*ttl)
}

func invalidateAnalytics(stats *cache.Cache) {
	if stats != nil {
		stats.Delete(analyticsCacheKey)
	}
}

func AdminAnalytics(db *mongo.Database, stats *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cached, ok := stats.Get(analyticsCacheKey); ok {
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, gin.H{"data": cached})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		result, err := computeAnalytics(ctx, db, time.Now().UTC())
		if err != nil {
			respondDBError(c, "ANALYTICS", err)
			return
		}
		stats.SetDefault(analyticsCacheKey, result)
		c.Header("X-Cache", "MISS")
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

func computeAnalytics(ctx context.Context, db *mongo.Database, now time.Time) (*Analytics, error) {
	result := &Analytics{Totals: map[string]int64{}, GeneratedAt: now}

	for _, name := range []string{
		models.CollectionUsers,
		models.CollectionProjects,
		models.CollectionFloorPlans,
		models.CollectionQueries,
	} {
		n, err := db.Collection(name).EstimatedDocumentCount(ctx)
		if err != nil {
			return nil, err
		}
		result.Totals[name] = n
	}

	var err error
	result.ProjectsByStatus, err = aggregateCounts(ctx, db.Collection(models.CollectionProjects), mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	})
	if err != nil {
		return nil, err
	}

	since := now.AddDate(0, 0, -signupWindowDays)
	result.SignupsPerDay, err = aggregateCounts(ctx, db.Collection(models.CollectionUsers), mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$createdAt"}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	})
	if err != nil {
		return nil, err
	}

	cursor, err := db.Collection(models.CollectionProjects).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":      "$budget.currency",
			"total":    bson.M{"$sum": "$budget.value"},
			"projects": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	result.BudgetByCurrency = make([]budgetBucket, 0)
	if err := cursor.All(ctx, &result.BudgetByCurrency); err != nil {
		return nil, err
	}

	return result, nil
}

func aggregateCounts(ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline) ([]countBucket, error) {
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	buckets := make([]countBucket, 0)
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}
