package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ActivitySignup             = "signup"
	ActivityLogin              = "login"
	ActivityProfileUpdated     = "profile_updated"
	ActivityProjectCreated     = "project_created"
	ActivityProjectUpdated     = "project_updated"
	ActivityFloorPlanAdded     = "floorplan_added"
	ActivityQueryAsked         = "query_asked"
	AuditUserDeleted           = "admin.user_deleted"
	AuditProjectDeleted        = "admin.project_deleted"
	AuditAdminLogin            = "admin.login"
	AuditProjectDeletedByOwner = "project.deleted_by_owner"
	ActorAdmin                 = "admin"
	ActorOwner                 = "owner"
)

// Activity is write-once. Audit rows carry Audit=true and survive cascading
// deletes of the resource they describe. Their UserID names the actor (an
// admin email, ActorAdmin or ActorOwner), never an end-user uid.
type Activity struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"userId" json:"userId" validate:"required"`
	Type       string             `bson:"type" json:"type" validate:"required"`
	Details    string             `bson:"details" json:"details"`
	ResourceID string             `bson:"resourceId,omitempty" json:"resourceId,omitempty"`
	Audit      bool               `bson:"audit" json:"audit"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
