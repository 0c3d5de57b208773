package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FloorPlan struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID   string             `bson:"projectId" json:"projectId" validate:"required"`
	UserID      string             `bson:"userId" json:"userId" validate:"required"`
	Name        string             `bson:"name" json:"name" validate:"required,max=120"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Area        float64            `bson:"area,omitempty" json:"area,omitempty" validate:"gte=0"`
	ImagePath   string             `bson:"imagePath,omitempty" json:"imagePath,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
