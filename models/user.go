// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an organization member. JoinYear selects the dues tier from
// TreasurySettings.
type User struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email     string             `json:"email" bson:"email"`
	Password  string             `json:"-" bson:"password"`
	FullName  string             `json:"fullName" bson:"fullName"`
	Role      string             `json:"role" bson:"role"` // "member" or "treasurer"
	JoinYear  string             `json:"joinYear" bson:"joinYear"`
	Phone     string             `json:"phone,omitempty" bson:"phone,omitempty"`
	IsActive  bool               `json:"isActive" bson:"isActive"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"fullName" validate:"required"`
	JoinYear string `json:"joinYear" validate:"required,len=4"`
	Phone    string `json:"phone,omitempty"`
}
