package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Query is one assistant exchange. ProjectID is empty when the question was
// asked outside a project.
type Query struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"userId" validate:"required"`
	ProjectID string             `bson:"projectId,omitempty" json:"projectId,omitempty"`
	Query     string             `bson:"query" json:"query" validate:"required,max=4000"`
	Response  string             `bson:"response,omitempty" json:"response,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
