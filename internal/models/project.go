package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProjectStatusPlanning   = "planning"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusOnHold     = "on_hold"
	ProjectStatusCompleted  = "completed"
)

// ProjectStatuses lists the accepted status values in display order.
var ProjectStatuses = []string{
	ProjectStatusPlanning,
	ProjectStatusInProgress,
	ProjectStatusOnHold,
	ProjectStatusCompleted,
}

type Dimensions struct {
	Length float64 `bson:"length" json:"length" validate:"gt=0"`
	Width  float64 `bson:"width" json:"width" validate:"gt=0"`
}

// LandArea stores the plot size as entered; unit conversion happens in the client.
type LandArea struct {
	Value      float64     `bson:"value" json:"value" validate:"gt=0"`
	Unit       string      `bson:"unit" json:"unit" validate:"required,oneof=sqft sqm acre hectare gaj bigha"`
	Dimensions *Dimensions `bson:"dimensions,omitempty" json:"dimensions,omitempty"`
}

type Budget struct {
	Value    float64 `bson:"value" json:"value" validate:"gte=0"`
	Currency string  `bson:"currency" json:"currency" validate:"required,len=3,uppercase"`
	Category string  `bson:"category" json:"category" validate:"required,oneof=economy standard premium luxury"`
}

// Location supports two locality schemes: "international" uses region, country
// and city; "domestic" uses state and city.
type Location struct {
	Type    string `bson:"type" json:"type" validate:"required,oneof=international domestic"`
	Region  string `bson:"region,omitempty" json:"region,omitempty" validate:"required_if=Type international"`
	Country string `bson:"country,omitempty" json:"country,omitempty" validate:"required_if=Type international"`
	State   string `bson:"state,omitempty" json:"state,omitempty" validate:"required_if=Type domestic"`
	City    string `bson:"city" json:"city" validate:"required"`
}

type Project struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       string             `bson:"userId" json:"userId" validate:"required"`
	Name         string             `bson:"name" json:"name" validate:"required,max=120"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty" validate:"max=2000"`
	LandArea     LandArea           `bson:"landArea" json:"landArea"`
	Budget       Budget             `bson:"budget" json:"budget"`
	Location     Location           `bson:"location" json:"location"`
	Status       string             `bson:"status" json:"status" validate:"required,oneof=planning in_progress on_hold completed"`
	Requirements StringList         `bson:"requirements" json:"requirements"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
