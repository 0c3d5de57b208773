package models

import "time"

const (
	RoleUser = "user"
)

// User is keyed by the identity provider uid, so `_id` is a string rather than
// an ObjectID. Projects, queries and activities reference it through userId.
type User struct {
	ID          string     `bson:"_id" json:"id" validate:"required"`
	Email       string     `bson:"email" json:"email" validate:"required,email"`
	Name        string     `bson:"name" json:"name" validate:"max=120"`
	Phone       string     `bson:"phone,omitempty" json:"phone,omitempty" validate:"max=32"`
	Company     string     `bson:"company,omitempty" json:"company,omitempty" validate:"max=120"`
	Role        string     `bson:"role" json:"role" validate:"required"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
	LastLoginAt *time.Time `bson:"lastLoginAt,omitempty" json:"lastLoginAt,omitempty"`
}
