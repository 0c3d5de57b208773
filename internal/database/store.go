package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"siteplanner/internal/cascade"
	"siteplanner/internal/models"
)

// Store runs cascade steps against MongoDB. Each call is a single
// collection operation.
type Store struct {
	db *mongo.Database
}

var _ cascade.Store = (*Store)(nil)

func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

// idValues expands string ids so that a hex value matches both an ObjectID
// _id and a plain string _id (users are keyed by provider uid).
func idValues(values []string) []interface{} {
	out := make([]interface{}, 0, len(values)*2)
	for _, v := range values {
		if oid, err := primitive.ObjectIDFromHex(v); err == nil {
			out = append(out, oid)
		}
		out = append(out, v)
	}
	return out
}

// BuildFilter translates a cascade filter into a Mongo query document.
func BuildFilter(f cascade.Filter) bson.M {
	var values []interface{}
	if f.Field == "_id" {
		values = idValues(f.Values)
	} else {
		values = make([]interface{}, 0, len(f.Values))
		for _, v := range f.Values {
			values = append(values, v)
		}
	}

	filter := bson.M{f.Field: bson.M{"$in": values}}
	if len(values) == 1 {
		filter = bson.M{f.Field: values[0]}
	}
	if f.SkipAudit {
		filter["audit"] = bson.M{"$ne": true}
	}
	return filter
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case primitive.ObjectID:
		return t.Hex()
	default:
		return fmt.Sprint(t)
	}
}

func (s *Store) Values(ctx context.Context, collection string, filter cascade.Filter, field string) ([]string, error) {
	if len(filter.Values) == 0 {
		return nil, nil
	}
	opts := options.Find().SetProjection(bson.M{field: 1})
	cursor, err := s.db.Collection(collection).Find(ctx, BuildFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []string
	for cursor.Next(ctx) {
		var d bson.M
		if err := cursor.Decode(&d); err != nil {
			return nil, err
		}
		if v := stringValue(d[field]); v != "" {
			out = append(out, v)
		}
	}
	return out, cursor.Err()
}

func (s *Store) DeleteMany(ctx context.Context, collection string, filter cascade.Filter) (int64, error) {
	if len(filter.Values) == 0 {
		return 0, nil
	}
	res, err := s.db.Collection(collection).DeleteMany(ctx, BuildFilter(filter))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) InsertActivity(ctx context.Context, activity models.Activity) (string, error) {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	if err := models.Validate(activity); err != nil {
		return "", err
	}
	res, err := s.db.Collection(models.CollectionActivities).InsertOne(ctx, activity)
	if err != nil {
		return "", err
	}
	return stringValue(res.InsertedID), nil
}

// RecordActivity appends a non-audit activity row. Failures are returned but
// callers usually only log them: the feed is best effort.
func RecordActivity(ctx context.Context, db *mongo.Database, userID, kind, details, resourceID string) error {
	_, err := NewStore(db).InsertActivity(ctx, models.Activity{
		UserID:     userID,
		Type:       kind,
		Details:    details,
		ResourceID: resourceID,
	})
	return err
}
