package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"siteplanner/internal/cascade"
	"siteplanner/internal/models"
)

func TestBuildFilter(t *testing.T) {
	oid := primitive.NewObjectID()

	t.Run("id matches object id and string", func(t *testing.T) {
		got := BuildFilter(cascade.Eq("_id", oid.Hex()))
		assert.Equal(t, bson.M{"_id": bson.M{"$in": []interface{}{oid, oid.Hex()}}}, got)
	})

	t.Run("uid stays a string", func(t *testing.T) {
		got := BuildFilter(cascade.Eq("_id", "firebase-uid"))
		assert.Equal(t, bson.M{"_id": "firebase-uid"}, got)
	})

	t.Run("in filter skipping audit rows", func(t *testing.T) {
		f := cascade.In("resourceId", []string{"a", "b"})
		f.SkipAudit = true
		got := BuildFilter(f)
		assert.Equal(t, bson.M{
			"resourceId": bson.M{"$in": []interface{}{"a", "b"}},
			"audit":      bson.M{"$ne": true},
		}, got)
	})
}

func TestStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("delete many reports count", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "acknowledged", Value: true}, {Key: "n", Value: 3}})
		n, err := NewStore(mt.DB).DeleteMany(context.Background(), models.CollectionQueries, cascade.Eq("userId", "u1"))
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), n)
	})

	mt.Run("empty filter is a no-op", func(mt *mtest.T) {
		n, err := NewStore(mt.DB).DeleteMany(context.Background(), models.CollectionQueries, cascade.In("projectId", nil))
		require.NoError(mt, err)
		assert.Zero(mt, n)
	})

	mt.Run("delete error surfaces", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11600, Message: "interrupted"}))
		_, err := NewStore(mt.DB).DeleteMany(context.Background(), models.CollectionProjects, cascade.Eq("userId", "u1"))
		assert.Error(mt, err)
	})

	mt.Run("values stringifies object ids", func(mt *mtest.T) {
		p1, p2 := primitive.NewObjectID(), primitive.NewObjectID()
		ns := mt.DB.Name() + "." + models.CollectionProjects
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: p1}},
			bson.D{{Key: "_id", Value: p2}},
		))
		got, err := NewStore(mt.DB).Values(context.Background(), models.CollectionProjects, cascade.Eq("userId", "u1"), "_id")
		require.NoError(mt, err)
		assert.Equal(mt, []string{p1.Hex(), p2.Hex()}, got)
	})

	mt.Run("insert activity returns id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		id, err := NewStore(mt.DB).InsertActivity(context.Background(), models.Activity{
			UserID: models.ActorAdmin,
			Type:   models.AuditUserDeleted,
			Audit:  true,
		})
		require.NoError(mt, err)
		_, err = primitive.ObjectIDFromHex(id)
		assert.NoError(mt, err)
	})

	mt.Run("invalid activity is rejected", func(mt *mtest.T) {
		_, err := NewStore(mt.DB).InsertActivity(context.Background(), models.Activity{Type: models.ActivityLogin})
		assert.Error(mt, err)
	})
}

func TestIndexPlanCoversCascadeFields(t *testing.T) {
	names := map[string][]string{}
	for _, plan := range indexPlan() {
		for _, m := range plan.models {
			keys := m.Keys.(bson.D)
			names[plan.collection] = append(names[plan.collection], keys[0].Key)
		}
	}
	assert.Contains(t, names[models.CollectionProjects], "userId")
	assert.Contains(t, names[models.CollectionFloorPlans], "projectId")
	assert.Contains(t, names[models.CollectionQueries], "projectId")
	assert.Contains(t, names[models.CollectionActivities], "resourceId")
	assert.Contains(t, names[models.CollectionOTPs], "expiresAt")
}
