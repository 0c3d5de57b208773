package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"siteplanner/internal/logging"
	"siteplanner/internal/models"
)

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func single(field, name string) mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetName(name),
	}
}

func indexPlan() []collectionIndexes {
	return []collectionIndexes{
		{models.CollectionUsers, []mongo.IndexModel{{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		}}},
		{models.CollectionProjects, []mongo.IndexModel{
			single("userId", "userId_index"),
		}},
		{models.CollectionFloorPlans, []mongo.IndexModel{
			single("projectId", "projectId_index"),
			single("userId", "userId_index"),
		}},
		{models.CollectionQueries, []mongo.IndexModel{
			single("userId", "userId_index"),
			single("projectId", "projectId_index"),
		}},
		{models.CollectionActivities, []mongo.IndexModel{
			single("userId", "userId_index"),
			single("resourceId", "resourceId_index"),
			{
				Keys:    bson.D{{Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("createdAt_desc"),
			},
		}},
		{models.CollectionOTPs, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "expiresAt", Value: 1}},
				Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0),
			},
			single("email", "email_index"),
		}},
	}
}

// EnsureIndexes creates the lookup indexes the handlers and cascade deletes
// rely on. Failures are reported per collection; the first one is returned.
func EnsureIndexes(db *mongo.Database) error {
	var firstErr error
	for _, plan := range indexPlan() {
		if err := ensure(db, plan); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func ensure(db *mongo.Database, plan collectionIndexes) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entry := logging.Area("DB").WithField("collection", plan.collection)
	names, err := db.Collection(plan.collection).Indexes().CreateMany(ctx, plan.models)
	if err != nil {
		entry.WithError(err).Warn("index creation failed")
		return err
	}
	entry.WithField("indexes", names).Info("indexes ensured")
	return nil
}
